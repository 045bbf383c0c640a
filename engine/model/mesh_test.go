package model

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoInfluenceMesh() *Mesh {
	return &Mesh{
		Name: "quad",
		Parts: []Part{{
			Positions:    []float32{0, 0, 0, 1, 0, 0, 1, 1, 0},
			Normals:      []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
			JointIndices: []uint16{0, 1, 0, 1, 1, 0},
			JointWeights: []float32{0.5, 0.25, 1},
			Indices:      []uint32{0, 1, 2},
		}},
		JointRemaps:      []uint16{3, 1},
		InverseBindPoses: []mgl32.Mat4{mgl32.Ident4(), mgl32.Ident4()},
	}
}

func TestMeshQueries(t *testing.T) {
	m := twoInfluenceMesh()

	require.NoError(t, m.Validate(4))
	assert.Equal(t, 3, m.VertexCount())
	assert.Equal(t, 3, m.TriangleIndexCount())
	assert.True(t, m.Skinned())
	assert.Equal(t, 2, m.NumJoints())
	assert.Equal(t, 3, m.HighestJointIndex())
	assert.Equal(t, 2, m.MaxInfluencesCount())
	assert.False(t, m.Parts[0].Empty())
}

func TestMeshValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *Mesh)
	}{
		{"remap beyond skeleton", func(m *Mesh) { m.JointRemaps[0] = 4 }},
		{"missing inverse bind", func(m *Mesh) { m.InverseBindPoses = m.InverseBindPoses[:1] }},
		{"joint index beyond remaps", func(m *Mesh) { m.Parts[0].JointIndices[2] = 2 }},
		{"short weights", func(m *Mesh) { m.Parts[0].JointWeights = m.Parts[0].JointWeights[:2] }},
		{"short normals", func(m *Mesh) { m.Parts[0].Normals = m.Parts[0].Normals[:3] }},
		{"triangle index out of range", func(m *Mesh) { m.Parts[0].Indices[2] = 3 }},
		{"skinned part without influences", func(m *Mesh) {
			m.Parts[0].JointIndices = nil
			m.Parts[0].JointWeights = nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := twoInfluenceMesh()
			tt.mutate(m)
			assert.ErrorIs(t, m.Validate(4), ErrInvalidMesh)
		})
	}
}

func TestMeshValidateInfluenceFreeParts(t *testing.T) {
	t.Run("empty skinned part", func(t *testing.T) {
		m := twoInfluenceMesh()
		m.Parts = append(m.Parts, Part{})
		assert.NoError(t, m.Validate(4))
	})
	t.Run("unskinned mesh", func(t *testing.T) {
		m := &Mesh{Name: "rigid", Parts: []Part{{
			Positions: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0},
			Indices:   []uint32{0, 1, 2},
		}}}
		assert.NoError(t, m.Validate(0))
	})
}

func TestMeshAssetPartDisjointness(t *testing.T) {
	base := func() *MeshAsset {
		return &MeshAsset{
			Layout:     DefaultVertexLayout,
			Vertices:   make([]float32, 3*DefaultVertexLayout.Stride),
			Indices:    []uint32{0, 1, 2, 2, 1, 0},
			SceneNodes: []SceneNode{{Name: "root", Local: mgl32.Ident4(), Parent: -1}},
		}
	}

	tests := []struct {
		name string
		part MeshPart
		ok   bool
	}{
		{"static with node", MeshPart{IsStaticBody: true, SceneNodeIndex: 0, SkinnedMeshIndex: -1, IndexCount: 3}, true},
		{"skinned without node", MeshPart{IsStaticBody: false, SceneNodeIndex: -1, SkinnedMeshIndex: 0, IndexOffset: 3, IndexCount: 3}, true},
		{"both set", MeshPart{IsStaticBody: false, SceneNodeIndex: 0, IndexCount: 3}, false},
		{"neither set", MeshPart{IsStaticBody: true, SceneNodeIndex: -1, IndexCount: 3}, false},
		{"node out of range", MeshPart{IsStaticBody: true, SceneNodeIndex: 1, IndexCount: 3}, false},
		{"index range overflow", MeshPart{IsStaticBody: true, SceneNodeIndex: 0, IndexOffset: 4, IndexCount: 3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := base()
			a.Parts = []MeshPart{tt.part}
			err := a.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidPart)
		})
	}
}

func TestMeshAssetNodeWorldMatrices(t *testing.T) {
	a := &MeshAsset{
		SceneNodes: []SceneNode{
			{Name: "root", Local: mgl32.Translate3D(1, 0, 0), Parent: -1},
			{Name: "child", Local: mgl32.Translate3D(0, 2, 0), Parent: 0},
			{Name: "bad", Local: mgl32.Ident4(), Parent: 5},
		},
	}
	assert.ErrorIs(t, a.Validate(), ErrInvalidSceneNode)

	a.SceneNodes = a.SceneNodes[:2]
	require.NoError(t, a.Validate())

	world := a.NodeWorldMatrices(nil)
	require.Len(t, world, 2)
	assert.Equal(t, mgl32.Vec3{1, 2, 0}, world[1].Col(3).Vec3())

	reused := a.NodeWorldMatrices(world)
	assert.Same(t, &world[0], &reused[0])
}

func TestPartInfluences(t *testing.T) {
	part := &twoInfluenceMesh().Parts[0]

	joints, weights := part.Influences(1)
	assert.Equal(t, [MaxInfluences]uint16{0, 1, 0, 0}, joints)
	assert.InDelta(t, 0.25, weights[0], 1e-6)
	assert.InDelta(t, 0.75, weights[1], 1e-6)
	assert.Zero(t, weights[2])

	joints, weights = part.Influences(2)
	assert.Equal(t, uint16(1), joints[0])
	assert.InDelta(t, 1, weights[0], 1e-6)
	assert.InDelta(t, 0, weights[1], 1e-6)

	single := &Part{Positions: []float32{0, 0, 0}, JointIndices: []uint16{3}}
	joints, weights = single.Influences(0)
	assert.Equal(t, uint16(3), joints[0])
	assert.Equal(t, float32(1), weights[0])
}

func TestMeshAssetPositionsNormals(t *testing.T) {
	asset := &MeshAsset{
		Layout:   VertexLayout{Stride: 5, PositionOffset: 2, NormalOffset: -1, UVOffset: 0},
		Vertices: []float32{9, 9, 1, 2, 3, 9, 9, 4, 5, 6},
	}
	assert.Equal(t, []float32{1, 2, 3, 0, 1, 0, 4, 5, 6, 0, 1, 0}, asset.PositionsNormals())
}
