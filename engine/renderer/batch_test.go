package renderer_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/stretchr/testify/assert"
)

func TestBatches(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		size   int
		counts []int
	}{
		{name: "no instances", n: 0, size: 256, counts: nil},
		{name: "exactly one batch", n: 256, size: 256, counts: []int{256}},
		{name: "one past a batch", n: 257, size: 256, counts: []int{256, 1}},
		{name: "several batches", n: 1000, size: 256, counts: []int{256, 256, 256, 232}},
		{name: "zero size", n: 10, size: 0, counts: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := renderer.Batches(tt.n, tt.size)
			assert.Len(t, batches, len(tt.counts))
			assert.Equal(t, len(tt.counts), renderer.BatchCount(tt.n, tt.size))

			next := 0
			for i, b := range batches {
				assert.Equal(t, next, b.Start, "batch %d start", i)
				assert.Equal(t, tt.counts[i], b.Count, "batch %d count", i)
				next += b.Count
			}
			if len(tt.counts) > 0 {
				assert.Equal(t, tt.n, next)
			}
		})
	}
}

func TestSkinningPolicy(t *testing.T) {
	for _, name := range []string{"vtf", "cpu", "auto"} {
		p, err := renderer.ParseSkinningPolicy(name)
		assert.NoError(t, err)
		assert.Equal(t, name, p.String())
	}
	_, err := renderer.ParseSkinningPolicy("software")
	assert.Error(t, err)

	assert.False(t, renderer.PolicyVTF.UseCPU(1, 100))
	assert.True(t, renderer.PolicyCPU.UseCPU(1000, 0))
	assert.True(t, renderer.PolicyAuto.UseCPU(4, 4))
	assert.False(t, renderer.PolicyAuto.UseCPU(5, 4))
}
