package model

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// VertexCount returns the number of interleaved vertices.
func (a *MeshAsset) VertexCount() int {
	if a.Layout.Stride <= 0 {
		return 0
	}
	return len(a.Vertices) / a.Layout.Stride
}

// StaticParts returns the indices of the parts placed by scene nodes.
func (a *MeshAsset) StaticParts() []int {
	var out []int
	for i, p := range a.Parts {
		if p.IsStaticBody {
			out = append(out, i)
		}
	}
	return out
}

// Validate checks the scene graph, the index ranges and that every part is exactly one of a
// static body with a valid scene node or a skinned part without one.
//
// Returns:
//   - error: ErrInvalidSceneNode or ErrInvalidPart describing the first problem found
func (a *MeshAsset) Validate() error {
	for i, n := range a.SceneNodes {
		if n.Parent != -1 && (n.Parent < 0 || n.Parent >= i) {
			return fmt.Errorf("%w: node %d (%q) has parent %d", ErrInvalidSceneNode, i, n.Name, n.Parent)
		}
	}

	for i, p := range a.Parts {
		switch {
		case p.IsStaticBody && p.SceneNodeIndex < 0:
			return fmt.Errorf("%w: static part %d (%q) has no scene node", ErrInvalidPart, i, p.Name)
		case !p.IsStaticBody && p.SceneNodeIndex >= 0:
			return fmt.Errorf("%w: skinned part %d (%q) also references scene node %d", ErrInvalidPart, i, p.Name, p.SceneNodeIndex)
		case p.IsStaticBody && p.SceneNodeIndex >= len(a.SceneNodes):
			return fmt.Errorf("%w: part %d (%q) references scene node %d of %d", ErrInvalidPart, i, p.Name, p.SceneNodeIndex, len(a.SceneNodes))
		}

		if p.IndexOffset < 0 || p.IndexCount < 0 || p.IndexOffset+p.IndexCount > len(a.Indices) {
			return fmt.Errorf("%w: part %d (%q) index range [%d, %d) outside %d indices", ErrInvalidPart, i, p.Name, p.IndexOffset, p.IndexOffset+p.IndexCount, len(a.Indices))
		}
	}

	vc := a.VertexCount()
	for i, idx := range a.Indices {
		if int(idx) >= vc {
			return fmt.Errorf("%w: index %d at %d exceeds %d vertices", ErrInvalidPart, idx, i, vc)
		}
	}
	return nil
}

// NodeWorldMatrices composes every scene node into asset space, reusing out when it is large
// enough.
//
// Parameters:
//   - out: destination buffer, may be nil
//
// Returns:
//   - []mgl32.Mat4: one matrix per scene node
func (a *MeshAsset) NodeWorldMatrices(out []mgl32.Mat4) []mgl32.Mat4 {
	if cap(out) < len(a.SceneNodes) {
		out = make([]mgl32.Mat4, len(a.SceneNodes))
	}
	out = out[:len(a.SceneNodes)]
	for i, n := range a.SceneNodes {
		if n.Parent < 0 {
			out[i] = n.Local
			continue
		}
		out[i] = out[n.Parent].Mul4(n.Local)
	}
	return out
}

// PositionsNormals extracts positions and normals from the interleaved vertices, 6 floats per
// vertex. Vertices without a normal attribute get +Y.
func (a *MeshAsset) PositionsNormals() []float32 {
	vc := a.VertexCount()
	out := make([]float32, 0, vc*6)
	for v := range vc {
		base := v * a.Layout.Stride
		p := a.Vertices[base+a.Layout.PositionOffset:]
		out = append(out, p[0], p[1], p[2])
		if a.Layout.NormalOffset >= 0 {
			n := a.Vertices[base+a.Layout.NormalOffset:]
			out = append(out, n[0], n[1], n[2])
		} else {
			out = append(out, 0, 1, 0)
		}
	}
	return out
}
