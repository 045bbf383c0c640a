package animation

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdaterParallelMatchesSerial(t *testing.T) {
	skel := chainSkeleton(t)
	anim := slideAnimation(t)

	serial, err := NewUpdater(skel, anim)
	require.NoError(t, err)
	defer serial.Close()

	parallel, err := NewUpdater(skel, anim, WithWorkers(4), WithChunkSize(3))
	require.NoError(t, err)
	defer parallel.Close()

	for i := range 20 {
		world := mgl32.Translate3D(float32(i), 0, 0)
		serial.AddInstance(world).Controller.SetSpeed(float32(i%3) + 1)
		parallel.AddInstance(world).Controller.SetSpeed(float32(i%3) + 1)
	}

	for range 5 {
		require.NoError(t, serial.Update(0.1))
		require.NoError(t, parallel.Update(0.1))
	}

	for i, in := range serial.Instances() {
		other := parallel.Instances()[i]
		assert.Equal(t, in.Controller.TimeRatio(), other.Controller.TimeRatio())
		for j := range in.Models() {
			assert.True(t, in.Models()[j].ApproxEqual(other.Models()[j]), "instance %d joint %d", i, j)
		}
	}
}

func TestUpdaterInstances(t *testing.T) {
	skel := chainSkeleton(t)
	anim := slideAnimation(t)

	u, err := NewUpdater(skel, anim)
	require.NoError(t, err)
	defer u.Close()

	assert.False(t, u.Bounds().Valid())

	a := u.AddInstance(mgl32.Ident4())
	b := u.AddInstance(mgl32.Translate3D(100, 0, 0))
	assert.Equal(t, 2, u.InstanceCount())

	bounds := u.Bounds()
	assert.True(t, bounds.Valid())
	assert.Equal(t, float32(1), bounds.Min[0])
	assert.Equal(t, float32(101), bounds.Max[0])

	assert.True(t, u.RemoveInstance(a.ID))
	assert.False(t, u.RemoveInstance(a.ID))
	assert.Equal(t, b.ID, u.Instances()[0].ID)
}

func TestUpdaterRejectsIncompatibleAnimation(t *testing.T) {
	skel := chainSkeleton(t)
	short, err := NewAnimation("short", 1, []JointTrack{{}})
	require.NoError(t, err)

	_, err = NewUpdater(skel, short)
	assert.ErrorIs(t, err, ErrTrackMismatch)

	u, err := NewUpdater(skel, slideAnimation(t))
	require.NoError(t, err)
	assert.ErrorIs(t, u.SetAnimation(short), ErrTrackMismatch)
}
