package metadata

import (
	"fmt"
	"strings"
)

// ImportFlags select the post-processing steps run after a scene is parsed.
type ImportFlags uint32

const (
	ImportFlipWindingOrder ImportFlags = 1 << iota
	ImportTriangulate
	ImportPreTransformVertices
	ImportCalcTangentSpace
	ImportGenSmoothNormals
)

/** @brief The flags LoadMesh uses when none are given. */
const DefaultImportFlags = ImportFlipWindingOrder | ImportTriangulate | ImportPreTransformVertices |
	ImportCalcTangentSpace | ImportGenSmoothNormals

var importFlagNames = map[string]ImportFlags{
	"flip_winding_order":     ImportFlipWindingOrder,
	"triangulate":            ImportTriangulate,
	"pre_transform_vertices": ImportPreTransformVertices,
	"calc_tangent_space":     ImportCalcTangentSpace,
	"gen_smooth_normals":     ImportGenSmoothNormals,
}

func (f ImportFlags) Has(flag ImportFlags) bool {
	return f&flag == flag
}

// ParseImportFlags turns config names such as "triangulate" into a flag set.
func ParseImportFlags(names []string) (ImportFlags, error) {
	var flags ImportFlags
	for _, n := range names {
		flag, ok := importFlagNames[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return 0, fmt.Errorf("unknown import flag %q", n)
		}
		flags |= flag
	}
	return flags, nil
}
