package vtf

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func distinctMatrix(seed int) mgl32.Mat4 {
	var m mgl32.Mat4
	for k := range m {
		m[k] = float32(seed*100 + k)
	}
	return m
}

func readMatrix(buf []float32, offset int) mgl32.Mat4 {
	var m mgl32.Mat4
	copy(m[:], buf[offset:offset+FloatsPerMatrix])
	return m
}

func TestPackSingleMatrix(t *testing.T) {
	p := NewPacker(4, 1)
	buf := make([]float32, p.Capacity())
	for i := range buf {
		buf[i] = -1
	}

	m := distinctMatrix(7)
	written, err := p.Pack(buf, [][]mgl32.Mat4{{m}}, 1)
	require.NoError(t, err)

	assert.Equal(t, 16, written)
	assert.Equal(t, m, readMatrix(buf, 0))
	assert.Equal(t, 1, p.Rows(written))
}

func TestPackOffsets(t *testing.T) {
	const instances, joints = 3, 5
	p := NewPacker(64, 1)
	buf := make([]float32, p.Capacity())
	for i := range buf {
		buf[i] = -1
	}

	skins := make([][]mgl32.Mat4, instances)
	for i := range skins {
		skins[i] = make([]mgl32.Mat4, joints)
		for j := range skins[i] {
			skins[i][j] = distinctMatrix(i*joints + j)
		}
	}

	written, err := p.Pack(buf, skins, joints)
	require.NoError(t, err)
	assert.Equal(t, instances*joints*FloatsPerMatrix, written)

	for i := range instances {
		for j := range joints {
			off := Offset(i, j, joints)
			assert.Equal(t, (i*joints+j)*16, off)
			assert.Equal(t, skins[i][j], readMatrix(buf, off), "instance %d slot %d", i, j)
		}
	}

	// Unused tail is zeroed.
	for _, f := range buf[written:] {
		require.Zero(t, f)
	}
}

func TestPackRejectsOverflow(t *testing.T) {
	// 10 matrices fit: 40 texels.
	p := NewPacker(40, 1)
	require.Equal(t, 10, p.MatrixCapacity())
	buf := make([]float32, p.Capacity())
	for i := range buf {
		buf[i] = 3
	}

	skins := make([][]mgl32.Mat4, 11)
	for i := range skins {
		skins[i] = []mgl32.Mat4{mgl32.Ident4()}
	}

	_, err := p.Pack(buf, skins, 1)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	// Nothing was written.
	for _, f := range buf {
		require.Equal(t, float32(3), f)
	}

	written, err := p.Pack(buf, skins[:10], 1)
	require.NoError(t, err)
	assert.Equal(t, p.Capacity(), written)
}

func TestPackRejectsShortInstances(t *testing.T) {
	p := NewPacker(16, 1)
	buf := make([]float32, p.Capacity())

	_, err := p.Pack(buf, [][]mgl32.Mat4{{mgl32.Ident4()}}, 2)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCapacityExceeded)
}

func TestPackerDimensions(t *testing.T) {
	p := NewPacker(512, 512)

	assert.Equal(t, 512*512*4, p.Capacity())
	assert.Equal(t, 65536, p.MatrixCapacity())
	assert.Equal(t, 256, p.MaxInstances(256))
	assert.Equal(t, 0, p.MaxInstances(0))
	assert.Equal(t, 0, p.Rows(0))
	assert.Equal(t, 1, p.Rows(1))
	assert.Equal(t, 1, p.Rows(2048))
	assert.Equal(t, 2, p.Rows(2049))
}
