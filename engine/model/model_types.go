package model

import (
	"github.com/go-gl/mathgl/mgl32"
)

// MaxInfluences is the largest number of joints that can influence a single vertex.
const MaxInfluences = 4

// --- Skinned Mesh Types ---

// Part is a run of vertices that share the same influence count. Splitting a mesh by
// influence count lets the skinning path handle every vertex of a part the same way.
type Part struct {
	// Positions holds 3 floats per vertex.
	Positions []float32

	// Normals holds 3 floats per vertex, or is empty.
	Normals []float32

	// Tangents holds 4 floats per vertex (xyz direction, w handedness), or is empty.
	Tangents []float32

	// UVs holds 2 floats per vertex, or is empty.
	UVs []float32

	// Colors holds 4 bytes per vertex (RGBA), or is empty.
	Colors []uint8

	// JointIndices holds InfluencesCount() mesh-local joint slots per vertex. A slot indexes
	// Mesh.JointRemaps, not the skeleton.
	JointIndices []uint16

	// JointWeights holds InfluencesCount()-1 weights per vertex. The last weight is implicit
	// and equals one minus the sum of the stored ones.
	JointWeights []float32

	// Indices are triangle indices into this part's vertices.
	Indices []uint32
}

// Mesh is a skinned mesh bound to a skeleton through joint remaps.
type Mesh struct {
	// Name is the mesh identifier.
	Name string

	// Parts are the vertex runs of the mesh.
	Parts []Part

	// JointRemaps maps each mesh-local skinning slot to a skeleton joint index.
	JointRemaps []uint16

	// InverseBindPoses holds one inverse bind matrix per joint remap slot.
	InverseBindPoses []mgl32.Mat4
}

// --- Scene Graph Types ---

// SceneNode is one node of the non-skinned hierarchy of a MeshAsset.
type SceneNode struct {
	// Name is the node identifier.
	Name string

	// Local is the node transform relative to its parent.
	Local mgl32.Mat4

	// Parent is the index of the parent node, or -1 for roots. Parents precede children.
	Parent int
}

// MeshPart is an index range of a MeshAsset drawn either as a static body placed by a scene
// node or as a skinned surface driven by the skeleton.
type MeshPart struct {
	// Name is the part identifier.
	Name string

	// IsStaticBody marks parts placed by SceneNodeIndex instead of the skeleton.
	IsStaticBody bool

	// SceneNodeIndex is the placing node for static bodies and negative for skinned parts.
	SceneNodeIndex int

	// SkinnedMeshIndex points at the skinned Mesh rendering this part, negative for static bodies.
	SkinnedMeshIndex int

	// IndexOffset is the first index of the part in MeshAsset.Indices.
	IndexOffset int

	// IndexCount is the number of indices of the part.
	IndexCount int

	// MaterialIndex references the source material, or -1.
	MaterialIndex int
}

// VertexLayout describes the interleaved float vertex format of a MeshAsset. Offsets are in
// floats; a negative offset means the attribute is absent.
type VertexLayout struct {
	// Stride is the number of floats per vertex.
	Stride int

	// PositionOffset locates the 3 position floats.
	PositionOffset int

	// NormalOffset locates the 3 normal floats.
	NormalOffset int

	// UVOffset locates the 2 texture coordinate floats.
	UVOffset int
}

// DefaultVertexLayout is position, normal and uv packed in 8 floats.
var DefaultVertexLayout = VertexLayout{
	Stride:         8,
	PositionOffset: 0,
	NormalOffset:   3,
	UVOffset:       6,
}

// MeshAsset is a scene-graph aware container: one interleaved vertex buffer, one index
// buffer and the parts and nodes that partition them.
type MeshAsset struct {
	// Name is the asset identifier.
	Name string

	// Layout describes Vertices.
	Layout VertexLayout

	// Vertices is the interleaved vertex buffer.
	Vertices []float32

	// Indices is the index buffer shared by all parts.
	Indices []uint32

	// Parts partition Indices.
	Parts []MeshPart

	// SceneNodes is the flattened non-skinned hierarchy.
	SceneNodes []SceneNode
}
