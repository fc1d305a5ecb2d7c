package metadata

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/vkmesh/engine/core"
)

// VertexComponent is one attribute of an interleaved vertex.
type VertexComponent uint8

const (
	VertexComponentPosition VertexComponent = iota
	VertexComponentNormal
	VertexComponentColour
	VertexComponentUV
	VertexComponentTangent
	VertexComponentBitangent
	// Padding components, always written as zero.
	VertexComponentDummyFloat
	VertexComponentDummyVec4
)

var vertexComponentNames = [...]string{
	VertexComponentPosition:   "position",
	VertexComponentNormal:     "normal",
	VertexComponentColour:     "colour",
	VertexComponentUV:         "uv",
	VertexComponentTangent:    "tangent",
	VertexComponentBitangent:  "bitangent",
	VertexComponentDummyFloat: "dummy_float",
	VertexComponentDummyVec4:  "dummy_vec4",
}

func (c VertexComponent) String() string {
	if int(c) < len(vertexComponentNames) {
		return vertexComponentNames[c]
	}
	return fmt.Sprintf("VertexComponent(%d)", c)
}

func (c VertexComponent) valid() bool {
	return c <= VertexComponentDummyVec4
}

// ComponentCount is the number of float32 values the component occupies.
func (c VertexComponent) ComponentCount() uint32 {
	switch c {
	case VertexComponentUV:
		return 2
	case VertexComponentDummyFloat:
		return 1
	case VertexComponentDummyVec4:
		return 4
	default:
		return 3
	}
}

// Size is the size of the component in bytes.
func (c VertexComponent) Size() uint32 {
	return c.ComponentCount() * 4
}

// VertexLayout is the ordered list of components written for each vertex.
type VertexLayout []VertexComponent

// Stride is the size of one interleaved vertex in bytes.
func (l VertexLayout) Stride() uint32 {
	var size uint32
	for _, c := range l {
		size += c.Size()
	}
	return size
}

// FloatsPerVertex is Stride expressed in float32 values.
func (l VertexLayout) FloatsPerVertex() uint32 {
	var n uint32
	for _, c := range l {
		n += c.ComponentCount()
	}
	return n
}

func (l VertexLayout) Validate() error {
	if len(l) == 0 {
		return fmt.Errorf("%w: layout has no components", core.ErrInvalidLayout)
	}
	for i, c := range l {
		if !c.valid() {
			return fmt.Errorf("%w: component %d has unknown value %d", core.ErrInvalidLayout, i, c)
		}
	}
	return nil
}

func (l VertexLayout) String() string {
	names := make([]string, len(l))
	for i, c := range l {
		names[i] = c.String()
	}
	return strings.Join(names, ",")
}

// ParseVertexLayout maps config names ("position", "uv", ...) to a layout.
// "color" is accepted as an alias of "colour".
func ParseVertexLayout(names []string) (VertexLayout, error) {
	layout := make(VertexLayout, 0, len(names))
	for _, n := range names {
		key := strings.ToLower(strings.TrimSpace(n))
		if key == "color" {
			key = "colour"
		}
		found := false
		for c, name := range vertexComponentNames {
			if name == key {
				layout = append(layout, VertexComponent(c))
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: unknown component %q", core.ErrInvalidLayout, n)
		}
	}
	return layout, layout.Validate()
}
