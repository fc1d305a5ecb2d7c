package loaders

import (
	"github.com/g3n/engine/loader/obj"
	"github.com/spaghettifunk/vkmesh/engine/math"
	"github.com/spaghettifunk/vkmesh/engine/renderer/metadata"
	"golang.org/x/exp/slices"
)

// defaultDiffuse is the colour given to OBJ geometry whose material is not defined.
var defaultDiffuse = math.NewVec3(0.6, 0.6, 0.6)

// objMaterials registers every decoded MTL material in name order and returns
// the scene index of each name.
func objMaterials(scene *metadata.Scene, decoded map[string]*obj.Material) map[string]int {
	names := make([]string, 0, len(decoded))
	for name, m := range decoded {
		if m != nil {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	index := make(map[string]int, len(names))
	for _, name := range names {
		d := decoded[name].Diffuse
		index[name] = len(scene.Materials)
		scene.Materials = append(scene.Materials, &metadata.SceneMaterial{
			Name:          name,
			DiffuseColour: math.ClampColour(math.NewVec3(d.R, d.G, d.B)),
		})
	}
	return index
}
