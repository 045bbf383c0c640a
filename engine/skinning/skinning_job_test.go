package skinning

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobSingleInfluence(t *testing.T) {
	out := make([]float32, 6)
	normals := make([]float32, 6)
	job := Job{
		VertexCount:   2,
		Influences:    1,
		JointMatrices: []mgl32.Mat4{mgl32.Translate3D(1, 0, 0), mgl32.HomogRotate3DZ(mgl32.DegToRad(90))},
		JointIndices:  []uint16{0, 1},
		InPositions:   []float32{0, 0, 0, 1, 0, 0},
		OutPositions:  out,
		InNormals:     []float32{0, 0, 1, 1, 0, 0},
		OutNormals:    normals,
	}
	require.NoError(t, job.Run())

	assert.InDeltaSlice(t, []float32{1, 0, 0, 0, 1, 0}, out, 1e-6)
	// Translation does not move normals.
	assert.InDeltaSlice(t, []float32{0, 0, 1, 0, 1, 0}, normals, 1e-6)
}

func TestJobImplicitLastWeight(t *testing.T) {
	out := make([]float32, 3)
	tangents := make([]float32, 4)
	job := Job{
		VertexCount:   1,
		Influences:    3,
		JointMatrices: []mgl32.Mat4{mgl32.Translate3D(4, 0, 0), mgl32.Translate3D(0, 8, 0), mgl32.Translate3D(0, 0, 16)},
		JointIndices:  []uint16{0, 1, 2},
		JointWeights:  []float32{0.5, 0.25},
		InPositions:   []float32{0, 0, 0},
		OutPositions:  out,
		InTangents:    []float32{1, 0, 0, -1},
		OutTangents:   tangents,
	}
	require.NoError(t, job.Run())

	// The third joint gets 1 - 0.5 - 0.25.
	assert.InDeltaSlice(t, []float32{2, 2, 4}, out, 1e-6)
	assert.InDeltaSlice(t, []float32{1, 0, 0, -1}, tangents, 1e-6)
}

func TestJobStrides(t *testing.T) {
	interleaved := []float32{1, 2, 3, 99, 4, 5, 6, 99}
	out := make([]float32, 8)
	job := Job{
		VertexCount:     2,
		Influences:      1,
		JointMatrices:   []mgl32.Mat4{mgl32.Scale3D(2, 2, 2)},
		JointIndices:    []uint16{0, 0},
		InPositions:     interleaved,
		InPositionsStr:  4,
		OutPositions:    out,
		OutPositionsStr: 4,
	}
	require.NoError(t, job.Run())
	assert.Equal(t, []float32{2, 4, 6, 0, 8, 10, 12, 0}, out)
}

func TestJobValidate(t *testing.T) {
	valid := func() Job {
		return Job{
			VertexCount:   2,
			Influences:    2,
			JointMatrices: []mgl32.Mat4{mgl32.Ident4(), mgl32.Ident4()},
			JointIndices:  []uint16{0, 1, 1, 0},
			JointWeights:  []float32{0.5, 0.5},
			InPositions:   make([]float32, 6),
			OutPositions:  make([]float32, 6),
		}
	}

	tests := []struct {
		name   string
		mutate func(j *Job)
	}{
		{"no influences", func(j *Job) { j.Influences = 0 }},
		{"too many influences", func(j *Job) { j.Influences = model.MaxInfluences + 1 }},
		{"short indices", func(j *Job) { j.JointIndices = j.JointIndices[:3] }},
		{"short weights", func(j *Job) { j.JointWeights = j.JointWeights[:1] }},
		{"short output", func(j *Job) { j.OutPositions = j.OutPositions[:5] }},
		{"normals without output", func(j *Job) { j.InNormals = make([]float32, 6) }},
		{"joint index out of range", func(j *Job) { j.JointIndices[3] = 2 }},
	}

	j := valid()
	require.NoError(t, j.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := valid()
			tt.mutate(&j)
			assert.ErrorIs(t, j.Run(), ErrInvalidJob)
		})
	}
}

func TestSkinPart(t *testing.T) {
	part := &model.Part{
		Positions:    []float32{0, 1, 0},
		Normals:      []float32{0, 1, 0},
		JointIndices: []uint16{1},
		Indices:      []uint32{0, 0, 0},
	}
	positions := make([]float32, 3)
	normals := make([]float32, 3)

	require.NoError(t, SkinPart(part, []mgl32.Mat4{mgl32.Ident4(), mgl32.Translate3D(0, 0, 5)}, positions, normals))
	assert.Equal(t, []float32{0, 1, 5}, positions)
	assert.Equal(t, []float32{0, 1, 0}, normals)
}
