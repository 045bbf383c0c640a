package renderer

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithTextureSize sets the skinning texture dimensions in texels. The texture holds
// width*height/4 matrices. Defaults to 512x512.
//
// Parameters:
//   - width: texture width
//   - height: texture height
//
// Returns:
//   - RendererBuilderOption: a function that applies the texture size option to a renderer
func WithTextureSize(width, height int) RendererBuilderOption {
	return func(r *renderer) {
		r.textureWidth = width
		r.textureHeight = height
	}
}

// WithBatchSize fixes the number of instances per draw batch. A batch that does not fit the
// skinning texture fails with vtf.ErrCapacityExceeded. Zero derives the size from the
// texture capacity per mesh.
//
// Parameters:
//   - size: instances per batch
//
// Returns:
//   - RendererBuilderOption: a function that applies the batch size option to a renderer
func WithBatchSize(size int) RendererBuilderOption {
	return func(r *renderer) {
		r.batchSize = size
	}
}

// WithSkinningPolicy sets how DrawSkinned chooses between CPU and texture fetch skinning.
//
// Parameters:
//   - policy: the skinning policy
//   - cpuThreshold: the largest instance count skinned on the CPU under PolicyAuto
//
// Returns:
//   - RendererBuilderOption: a function that applies the policy option to a renderer
func WithSkinningPolicy(policy SkinningPolicy, cpuThreshold int) RendererBuilderOption {
	return func(r *renderer) {
		r.policy = policy
		r.cpuThreshold = cpuThreshold
	}
}

// WithClearColor sets the RGBA color the frame is cleared to.
//
// Parameters:
//   - color: the clear color
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(color [4]float32) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = color
	}
}
