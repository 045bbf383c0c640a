package renderer

import (
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// MeshHandle identifies geometry uploaded to a Device.
type MeshHandle int

// TextureHandle identifies a texture created on a Device.
type TextureHandle int

// Capabilities reports what a Device supports.
type Capabilities struct {
	// InstancedArrays is true when per-instance vertex attributes (divisor 1) are available.
	InstancedArrays bool

	// MaxTextureSize is the largest 2D texture dimension in texels.
	MaxTextureSize int
}

// Device is the GPU command submission interface the Renderer drives. Implementations own
// every GPU object; the Renderer only holds handles. Calls are made from the thread owning
// the GPU context, in submission order.
type Device interface {
	// Capabilities returns the device's feature set.
	//
	// Returns:
	//   - Capabilities: the capabilities
	Capabilities() Capabilities

	// CreateSkinningTexture allocates immutable RGBA32F storage of the given size. It is called
	// once; the texture is never reallocated.
	//
	// Parameters:
	//   - width: texture width in texels
	//   - height: texture height in texels
	//
	// Returns:
	//   - TextureHandle: the texture
	//   - error: an error if allocation fails
	CreateSkinningTexture(width, height int) (TextureHandle, error)

	// UpdateSkinningTexture replaces the first rows of the texture with data, which holds
	// exactly rows*width*4 floats.
	//
	// Parameters:
	//   - tex: the skinning texture
	//   - rows: number of texture rows written, starting at row 0
	//   - data: packed matrices
	//
	// Returns:
	//   - error: an error if the update fails
	UpdateSkinningTexture(tex TextureHandle, rows int, data []float32) error

	// UploadInstanceMatrices replaces the per-instance world matrix attribute buffer with
	// data, 16 floats per instance. The buffer grows as needed.
	//
	// Parameters:
	//   - data: column-major world matrices
	//
	// Returns:
	//   - error: an error if the upload fails
	UploadInstanceMatrices(data []float32) error

	// UploadMesh uploads the static attributes of a skinned mesh, one vertex and index
	// buffer per part.
	//
	// Parameters:
	//   - mesh: the mesh
	//
	// Returns:
	//   - MeshHandle: the uploaded mesh
	//   - error: an error if buffer creation fails
	UploadMesh(mesh *model.Mesh) (MeshHandle, error)

	// UploadMeshAsset uploads the interleaved buffers of a mesh asset.
	//
	// Parameters:
	//   - asset: the asset
	//
	// Returns:
	//   - MeshHandle: the uploaded asset
	//   - error: an error if buffer creation fails
	UploadMeshAsset(asset *model.MeshAsset) (MeshHandle, error)

	// ReleaseMesh frees the buffers of an uploaded skinned mesh. The handle becomes invalid,
	// other handles are unaffected. Unknown handles are ignored.
	//
	// Parameters:
	//   - mesh: the mesh handle
	ReleaseMesh(mesh MeshHandle)

	// ReleaseMeshAsset frees the buffers of an uploaded mesh asset. The handle becomes
	// invalid, other handles are unaffected. Unknown handles are ignored.
	//
	// Parameters:
	//   - asset: the asset handle
	ReleaseMeshAsset(asset MeshHandle)

	// UploadSkinnedVertices replaces the positions and normals of a mesh part with CPU
	// skinned values, 3 floats per vertex each. normals may be nil.
	//
	// Parameters:
	//   - mesh: the mesh handle
	//   - part: the part index
	//   - positions: skinned positions
	//   - normals: skinned normals or nil
	//
	// Returns:
	//   - error: an error if the upload fails
	UploadSkinnedVertices(mesh MeshHandle, part int, positions, normals []float32) error

	// SetViewProjection sets the camera matrices used by subsequent draws.
	//
	// Parameters:
	//   - view: the view matrix
	//   - projection: the projection matrix
	SetViewProjection(view, projection mgl32.Mat4)

	// DrawSkinnedVtf issues one instanced draw of a mesh part, skinned in the vertex shader
	// from the skinning texture and placed by the instance matrix buffer.
	//
	// Parameters:
	//   - mesh: the mesh handle
	//   - part: the part index
	//   - tex: the skinning texture
	//   - instances: number of instances
	//   - jointCount: skinning matrices per instance
	//
	// Returns:
	//   - error: an error if the draw fails
	DrawSkinnedVtf(mesh MeshHandle, part int, tex TextureHandle, instances, jointCount int) error

	// DrawSkinned draws a mesh part from its last uploaded skinned vertices.
	//
	// Parameters:
	//   - mesh: the mesh handle
	//   - part: the part index
	//   - world: the instance world matrix
	//
	// Returns:
	//   - error: an error if the draw fails
	DrawSkinned(mesh MeshHandle, part int, world mgl32.Mat4) error

	// DrawStatic draws one part of a mesh asset once.
	//
	// Parameters:
	//   - asset: the mesh asset handle
	//   - part: the part index
	//   - world: the world matrix
	//
	// Returns:
	//   - error: an error if the draw fails
	DrawStatic(asset MeshHandle, part int, world mgl32.Mat4) error

	// DrawStaticInstanced draws one part of a mesh asset once per uploaded instance matrix.
	// Only valid when Capabilities().InstancedArrays is true.
	//
	// Parameters:
	//   - asset: the mesh asset handle
	//   - part: the part index
	//   - instances: number of instances
	//
	// Returns:
	//   - error: an error if the draw fails
	DrawStaticInstanced(asset MeshHandle, part int, instances int) error

	// Resize updates the drawable size.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height int)

	// BeginFrame acquires the next drawable and clears it.
	//
	// Parameters:
	//   - clear: RGBA clear color
	//
	// Returns:
	//   - error: an error if the frame cannot start
	BeginFrame(clear [4]float32) error

	// EndFrame submits the frame's work and presents it.
	//
	// Returns:
	//   - error: an error if submission fails
	EndFrame() error

	// Release destroys every GPU object.
	Release()
}
