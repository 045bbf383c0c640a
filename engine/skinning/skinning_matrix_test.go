package skinning

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSkinningMatricesIdentityBind(t *testing.T) {
	models := []mgl32.Mat4{
		mgl32.Translate3D(1, 2, 3),
		mgl32.HomogRotate3DY(0.5),
		mgl32.Translate3D(-4, 0, 1).Mul4(mgl32.Scale3D(2, 2, 2)),
	}
	mesh := &model.Mesh{
		JointRemaps:      []uint16{2, 0},
		InverseBindPoses: []mgl32.Mat4{mgl32.Ident4(), mgl32.Ident4()},
	}

	out := make([]mgl32.Mat4, 2)
	require.NoError(t, BuildSkinningMatrices(models, mesh, out))
	assert.Equal(t, models[2], out[0])
	assert.Equal(t, models[0], out[1])
}

func TestBuildSkinningMatricesAppliesInverseBind(t *testing.T) {
	bind := mgl32.Translate3D(0, 5, 0)
	models := []mgl32.Mat4{mgl32.Translate3D(0, 7, 0)}
	mesh := &model.Mesh{
		JointRemaps:      []uint16{0},
		InverseBindPoses: []mgl32.Mat4{bind.Inv()},
	}

	out := make([]mgl32.Mat4, 1)
	require.NoError(t, BuildSkinningMatrices(models, mesh, out))

	// A vertex bound at the bind pose follows the joint's displacement.
	moved := out[0].Mul4x1(mgl32.Vec4{0, 5, 0, 1})
	assert.True(t, moved.Vec3().ApproxEqual(mgl32.Vec3{0, 7, 0}))
}

func TestBuildSkinningMatricesErrors(t *testing.T) {
	mesh := &model.Mesh{
		JointRemaps:      []uint16{3},
		InverseBindPoses: []mgl32.Mat4{mgl32.Ident4()},
	}

	err := BuildSkinningMatrices(make([]mgl32.Mat4, 2), mesh, make([]mgl32.Mat4, 1))
	assert.ErrorIs(t, err, ErrRemapOutOfRange)

	err = BuildSkinningMatrices(make([]mgl32.Mat4, 4), mesh, nil)
	assert.ErrorIs(t, err, ErrInvalidJob)
}
