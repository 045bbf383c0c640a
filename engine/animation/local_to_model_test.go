package animation

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertMat4Near compares element-wise against an absolute tolerance. ApproxEqualThreshold
// is relative and rejects float noise on entries that should be zero.
func assertMat4Near(t *testing.T, want, got mgl32.Mat4) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5, "element %d of %v, want %v", i, got, want)
	}
}

func TestLocalToModelThreeJointChain(t *testing.T) {
	rot := IdentityTransform()
	rot.Rotation = mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	rot.Translation = mgl32.Vec3{1, 0, 0}

	scaled := translated(0, 2, 0)
	scaled.Scale = mgl32.Vec3{2, 2, 2}

	skel, err := NewSkeleton([]Joint{
		{Name: "root", Parent: NoParent, Rest: rot},
		{Name: "mid", Parent: 0, Rest: scaled},
		{Name: "tip", Parent: 1, Rest: translated(0, 0, 3)},
	})
	require.NoError(t, err)

	models := make([]mgl32.Mat4, skel.NumJoints())
	require.NoError(t, LocalToModel(skel, skel.RestPoses(), models))

	l0, l1, l2 := rot.Matrix(), scaled.Matrix(), translated(0, 0, 3).Matrix()
	assertMat4Near(t, l0, models[0])
	assertMat4Near(t, l0.Mul4(l1), models[1])
	assertMat4Near(t, l0.Mul4(l1).Mul4(l2), models[2])

	// The tip sits at root + R*(mid + 2*(0,0,3)), with R a 90 degree turn about Y.
	tip := models[2].Col(3).Vec3()
	assert.InDelta(t, 0, tip.Sub(mgl32.Vec3{7, 2, 0}).Len(), 1e-5, "tip at %v", tip)
}

func TestLocalToModelRootOverride(t *testing.T) {
	skel := chainSkeleton(t)
	root := mgl32.Translate3D(10, 0, 0)

	models := make([]mgl32.Mat4, skel.NumJoints())
	job := LocalToModelJob{
		Skeleton: skel,
		Root:     &root,
		From:     NoParent,
		To:       NoParent,
		Input:    skel.RestPoses(),
		Output:   models,
	}
	require.NoError(t, job.Run())

	assert.True(t, models[2].Col(3).Vec3().ApproxEqual(mgl32.Vec3{11, 2, 3}))
}

func TestLocalToModelPartialUpdate(t *testing.T) {
	skel, err := NewSkeleton([]Joint{
		{Name: "root", Parent: NoParent, Rest: translated(1, 0, 0)},
		{Name: "left", Parent: 0, Rest: translated(0, 1, 0)},
		{Name: "right", Parent: 0, Rest: translated(0, 0, 1)},
		{Name: "left_tip", Parent: 1, Rest: translated(0, 1, 0)},
	})
	require.NoError(t, err)

	models := make([]mgl32.Mat4, skel.NumJoints())
	require.NoError(t, LocalToModel(skel, skel.RestPoses(), models))

	locals := make([]SoaTransform, skel.NumSoaJoints())
	copy(locals, skel.RestPoses())
	SetJointTransform(locals, 1, translated(0, 5, 0))
	SetJointTransform(locals, 2, translated(0, 0, 9))

	job := LocalToModelJob{
		Skeleton: skel,
		From:     1,
		To:       NoParent,
		Input:    locals,
		Output:   models,
	}
	require.NoError(t, job.Run())

	assert.Equal(t, mgl32.Vec3{1, 5, 0}, models[1].Col(3).Vec3())
	assert.Equal(t, mgl32.Vec3{1, 6, 0}, models[3].Col(3).Vec3())
	// Sibling outside the subtree is untouched.
	assert.Equal(t, mgl32.Vec3{1, 0, 1}, models[2].Col(3).Vec3())
}

func TestLocalToModelRejectsShortSpans(t *testing.T) {
	skel := chainSkeleton(t)

	err := LocalToModel(skel, skel.RestPoses(), make([]mgl32.Mat4, 2))
	assert.ErrorIs(t, err, ErrOutputTooSmall)

	err = LocalToModel(skel, nil, make([]mgl32.Mat4, 3))
	assert.ErrorIs(t, err, ErrOutputTooSmall)

	job := LocalToModelJob{Input: skel.RestPoses()}
	assert.ErrorIs(t, job.Run(), ErrInvalidJob)
}
