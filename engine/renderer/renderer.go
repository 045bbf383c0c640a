package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/animation"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/vtf"
	"github.com/Carmen-Shannon/oxy-skin/engine/skinning"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"
)

// Stats counts the work submitted since the last BeginFrame.
type Stats struct {
	Batches             int
	DrawCalls           int
	TextureUploads      int
	InstanceUploads     int
	VertexUploads       int
	SkippedParts        int
	VtfInstances        int
	CPUSkinnedInstances int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu     *sync.Mutex
	logger *log.Logger

	device Device

	textureWidth  int
	textureHeight int
	batchSize     int
	policy        SkinningPolicy
	cpuThreshold  int
	clearColor    [4]float32

	initialized  bool
	packer       vtf.Packer
	texture      TextureHandle
	meshHandles  map[*model.Mesh]MeshHandle
	assetHandles map[*model.MeshAsset]MeshHandle
	bonePiece    *model.MeshAsset

	// Scratch buffers, grown on demand and never shrunk.
	packed       []float32
	cpuPositions []float32
	cpuNormals   []float32
	nodeWorlds   []mgl32.Mat4
	boneMatrices []mgl32.Mat4

	stats Stats
}

// Renderer draws animated instances of skinned meshes with a bounded number of draw calls.
//
// Skinning matrices for a mesh are packed batch by batch into one fixed-size skinning texture
// that is allocated once. Each batch uploads the written texture rows and its instances'
// world matrices, then issues one instanced draw per mesh part. A CPU skinning path and a
// skeleton posture path cover the cases where texture fetch is not wanted.
type Renderer interface {
	// Initialize allocates the skinning texture and the packing buffer. It must be called
	// once before any draw.
	//
	// Returns:
	//   - error: ErrTextureTooLarge if the texture exceeds the device limit, or a device error
	Initialize() error

	// Device returns the GPU device the renderer submits to.
	//
	// Returns:
	//   - Device: the device
	Device() Device

	// Policy returns the skinning policy used by DrawSkinned.
	//
	// Returns:
	//   - SkinningPolicy: the policy
	Policy() SkinningPolicy

	// SetPolicy changes the skinning policy used by DrawSkinned.
	//
	// Parameters:
	//   - policy: the new policy
	SetPolicy(policy SkinningPolicy)

	// BatchSize returns the number of instances per batch for a mesh with jointCount remaps.
	// A configured size is returned as is; otherwise the texture capacity decides.
	//
	// Parameters:
	//   - jointCount: skinning matrices per instance
	//
	// Returns:
	//   - int: instances per batch
	BatchSize(jointCount int) int

	// SetCamera sets the view and projection used by subsequent draws.
	//
	// Parameters:
	//   - view: the view matrix
	//   - projection: the projection matrix
	SetCamera(view, projection mgl32.Mat4)

	// BeginFrame resets the stats and starts a device frame.
	//
	// Returns:
	//   - error: a device error
	BeginFrame() error

	// EndFrame submits and presents the frame.
	//
	// Returns:
	//   - error: a device error
	EndFrame() error

	// DrawSkinned draws instances of a skinned mesh through the path selected by the policy.
	//
	// Parameters:
	//   - mesh: the mesh
	//   - skins: per-instance skinning matrices, mesh.NumJoints() each
	//   - worlds: per-instance world matrices
	//
	// Returns:
	//   - error: the error of the selected path
	DrawSkinned(mesh *model.Mesh, skins [][]mgl32.Mat4, worlds []mgl32.Mat4) error

	// DrawSkinnedMeshVtf draws instances of a skinned mesh skinned in the vertex shader from
	// the skinning texture, in ceil(N/batch size) batches.
	//
	// Parameters:
	//   - mesh: the mesh
	//   - skins: per-instance skinning matrices, mesh.NumJoints() each
	//   - worlds: per-instance world matrices
	//
	// Returns:
	//   - error: vtf.ErrCapacityExceeded if a batch does not fit the texture, detected before
	//     that batch uploads anything, or a device error
	DrawSkinnedMeshVtf(mesh *model.Mesh, skins [][]mgl32.Mat4, worlds []mgl32.Mat4) error

	// DrawSkinnedMesh skins every instance on the CPU and draws it with its own draw call.
	//
	// Parameters:
	//   - mesh: the mesh
	//   - skins: per-instance skinning matrices, mesh.NumJoints() each
	//   - worlds: per-instance world matrices
	//
	// Returns:
	//   - error: skinning.ErrInvalidJob for malformed parts, or a device error
	DrawSkinnedMesh(mesh *model.Mesh, skins [][]mgl32.Mat4, worlds []mgl32.Mat4) error

	// DrawPosture draws one bone piece per parented joint of a skeleton pose. Bone pieces are
	// instanced when the device supports instanced arrays, drawn one by one otherwise.
	//
	// Parameters:
	//   - skel: the skeleton
	//   - models: model-space joint matrices
	//   - world: the instance world matrix
	//
	// Returns:
	//   - error: a device error
	DrawPosture(skel *animation.Skeleton, models []mgl32.Mat4, world mgl32.Mat4) error

	// DrawMeshAsset draws the static parts of a mesh asset, placed by their scene nodes, once
	// per world matrix. Skinned parts are drawn through their skinned meshes instead.
	//
	// Parameters:
	//   - asset: the mesh asset
	//   - worlds: one world matrix per copy
	//
	// Returns:
	//   - error: a device error
	DrawMeshAsset(asset *model.MeshAsset, worlds []mgl32.Mat4) error

	// ReleaseMesh frees the device buffers of a skinned mesh uploaded by an earlier draw. A
	// later draw of the same mesh uploads it again. Meshes never drawn are ignored.
	//
	// Parameters:
	//   - mesh: the mesh
	ReleaseMesh(mesh *model.Mesh)

	// ReleaseMeshAsset frees the device buffers of a mesh asset uploaded by an earlier draw.
	//
	// Parameters:
	//   - asset: the mesh asset
	ReleaseMeshAsset(asset *model.MeshAsset)

	// Stats returns the counters accumulated since BeginFrame.
	//
	// Returns:
	//   - Stats: the frame counters
	Stats() Stats

	// Resize forwards a drawable size change to the device.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height int)

	// Release destroys the device resources.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer submitting to the given device.
//
// Parameters:
//   - device: the GPU device
//   - options: functional options to configure the renderer
//
// Returns:
//   - Renderer: the renderer, to be initialized before use
func NewRenderer(device Device, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:            &sync.Mutex{},
		logger:        common.Logger().WithPrefix("renderer"),
		device:        device,
		textureWidth:  512,
		textureHeight: 512,
		policy:        PolicyVTF,
		cpuThreshold:  4,
		clearColor:    [4]float32{0.4, 0.42, 0.38, 1},
		meshHandles:   make(map[*model.Mesh]MeshHandle),
		assetHandles:  make(map[*model.MeshAsset]MeshHandle),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

func (r *renderer) Initialize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return nil
	}

	limit := r.device.Capabilities().MaxTextureSize
	if limit > 0 && (r.textureWidth > limit || r.textureHeight > limit) {
		return fmt.Errorf("%w: %dx%d, limit %d", ErrTextureTooLarge, r.textureWidth, r.textureHeight, limit)
	}
	if r.textureWidth <= 0 || r.textureHeight <= 0 {
		return fmt.Errorf("invalid skinning texture size %dx%d", r.textureWidth, r.textureHeight)
	}

	tex, err := r.device.CreateSkinningTexture(r.textureWidth, r.textureHeight)
	if err != nil {
		return fmt.Errorf("create skinning texture: %w", err)
	}

	r.bonePiece = newBonePiece()
	if _, err := r.assetHandle(r.bonePiece); err != nil {
		return fmt.Errorf("upload bone piece: %w", err)
	}

	r.texture = tex
	r.packer = vtf.NewPacker(r.textureWidth, r.textureHeight)
	r.packed = make([]float32, r.packer.Capacity())
	r.initialized = true

	r.logger.Info("initialized",
		"texture", fmt.Sprintf("%dx%d", r.textureWidth, r.textureHeight),
		"matrices", r.packer.MatrixCapacity(),
		"policy", r.policy,
		"instanced_arrays", r.device.Capabilities().InstancedArrays,
	)
	return nil
}

func (r *renderer) Device() Device {
	return r.device
}

func (r *renderer) Policy() SkinningPolicy {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.policy
}

func (r *renderer) SetPolicy(policy SkinningPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policy = policy
}

func (r *renderer) BatchSize(jointCount int) int {
	if r.batchSize > 0 {
		return r.batchSize
	}
	return vtf.NewPacker(r.textureWidth, r.textureHeight).MaxInstances(jointCount)
}

func (r *renderer) SetCamera(view, projection mgl32.Mat4) {
	r.device.SetViewProjection(view, projection)
}

func (r *renderer) BeginFrame() error {
	r.mu.Lock()
	r.stats = Stats{}
	r.mu.Unlock()
	return r.device.BeginFrame(r.clearColor)
}

func (r *renderer) EndFrame() error {
	return r.device.EndFrame()
}

func (r *renderer) DrawSkinned(mesh *model.Mesh, skins [][]mgl32.Mat4, worlds []mgl32.Mat4) error {
	r.mu.Lock()
	cpu := r.policy.UseCPU(len(skins), r.cpuThreshold)
	r.mu.Unlock()

	if cpu {
		return r.DrawSkinnedMesh(mesh, skins, worlds)
	}
	return r.DrawSkinnedMeshVtf(mesh, skins, worlds)
}

func (r *renderer) DrawSkinnedMeshVtf(mesh *model.Mesh, skins [][]mgl32.Mat4, worlds []mgl32.Mat4) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return ErrNotInitialized
	}
	if len(skins) != len(worlds) {
		return fmt.Errorf("%w: %d skins, %d worlds", ErrInstanceMismatch, len(skins), len(worlds))
	}
	if !mesh.Skinned() || mesh.TriangleIndexCount() == 0 {
		r.stats.SkippedParts += len(mesh.Parts)
		return nil
	}

	handle, err := r.meshHandle(mesh)
	if err != nil {
		return err
	}

	jointCount := mesh.NumJoints()
	batchSize := r.BatchSize(jointCount)
	if batchSize <= 0 {
		return fmt.Errorf("draw %q: %w: %d joints do not fit a %dx%d texture",
			mesh.Name, vtf.ErrCapacityExceeded, jointCount, r.textureWidth, r.textureHeight)
	}

	n := len(skins)
	for start := 0; start < n; start += batchSize {
		count := min(batchSize, n-start)

		written, err := r.packer.Pack(r.packed, skins[start:start+count], jointCount)
		if err != nil {
			return fmt.Errorf("draw %q batch at instance %d: %w", mesh.Name, start, err)
		}

		rows := r.packer.Rows(written)
		region := r.packed[:rows*r.textureWidth*vtf.FloatsPerTexel]
		if err := r.device.UpdateSkinningTexture(r.texture, rows, region); err != nil {
			return fmt.Errorf("draw %q: update skinning texture: %w", mesh.Name, err)
		}
		r.stats.TextureUploads++

		if err := r.device.UploadInstanceMatrices(common.Mat4Floats(worlds[start : start+count])); err != nil {
			return fmt.Errorf("draw %q: upload instance matrices: %w", mesh.Name, err)
		}
		r.stats.InstanceUploads++

		for p := range mesh.Parts {
			if mesh.Parts[p].Empty() {
				r.stats.SkippedParts++
				continue
			}
			if err := r.device.DrawSkinnedVtf(handle, p, r.texture, count, jointCount); err != nil {
				return fmt.Errorf("draw %q part %d: %w", mesh.Name, p, err)
			}
			r.stats.DrawCalls++
		}
		r.stats.Batches++
	}
	r.stats.VtfInstances += n
	return nil
}

func (r *renderer) DrawSkinnedMesh(mesh *model.Mesh, skins [][]mgl32.Mat4, worlds []mgl32.Mat4) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return ErrNotInitialized
	}
	if len(skins) != len(worlds) {
		return fmt.Errorf("%w: %d skins, %d worlds", ErrInstanceMismatch, len(skins), len(worlds))
	}
	if !mesh.Skinned() || mesh.TriangleIndexCount() == 0 {
		r.stats.SkippedParts += len(mesh.Parts)
		return nil
	}

	handle, err := r.meshHandle(mesh)
	if err != nil {
		return err
	}

	for i := range skins {
		for p := range mesh.Parts {
			part := &mesh.Parts[p]
			if part.Empty() {
				r.stats.SkippedParts++
				continue
			}

			vc := part.VertexCount()
			r.cpuPositions = common.Grow(r.cpuPositions, vc*3)
			var normals []float32
			if len(part.Normals) > 0 {
				r.cpuNormals = common.Grow(r.cpuNormals, vc*3)
				normals = r.cpuNormals
			}
			if err := skinning.SkinPart(part, skins[i], r.cpuPositions, normals); err != nil {
				return fmt.Errorf("skin %q part %d instance %d: %w", mesh.Name, p, i, err)
			}

			if err := r.device.UploadSkinnedVertices(handle, p, r.cpuPositions, normals); err != nil {
				return fmt.Errorf("draw %q part %d: upload skinned vertices: %w", mesh.Name, p, err)
			}
			r.stats.VertexUploads++

			if err := r.device.DrawSkinned(handle, p, worlds[i]); err != nil {
				return fmt.Errorf("draw %q part %d: %w", mesh.Name, p, err)
			}
			r.stats.DrawCalls++
		}
	}
	r.stats.CPUSkinnedInstances += len(skins)
	return nil
}

func (r *renderer) DrawPosture(skel *animation.Skeleton, models []mgl32.Mat4, world mgl32.Mat4) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return ErrNotInitialized
	}
	handle, err := r.assetHandle(r.bonePiece)
	if err != nil {
		return err
	}

	r.boneMatrices = boneMatrices(skel, models, world, r.boneMatrices)
	if len(r.boneMatrices) == 0 {
		return nil
	}

	if r.device.Capabilities().InstancedArrays {
		if err := r.device.UploadInstanceMatrices(common.Mat4Floats(r.boneMatrices)); err != nil {
			return fmt.Errorf("draw posture: upload bone matrices: %w", err)
		}
		r.stats.InstanceUploads++
		if err := r.device.DrawStaticInstanced(handle, 0, len(r.boneMatrices)); err != nil {
			return fmt.Errorf("draw posture: %w", err)
		}
		r.stats.DrawCalls++
		return nil
	}

	for _, m := range r.boneMatrices {
		if err := r.device.DrawStatic(handle, 0, m); err != nil {
			return fmt.Errorf("draw posture: %w", err)
		}
		r.stats.DrawCalls++
	}
	return nil
}

func (r *renderer) DrawMeshAsset(asset *model.MeshAsset, worlds []mgl32.Mat4) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return ErrNotInitialized
	}
	handle, err := r.assetHandle(asset)
	if err != nil {
		return err
	}

	r.nodeWorlds = asset.NodeWorldMatrices(r.nodeWorlds)
	for _, world := range worlds {
		for p, part := range asset.Parts {
			if !part.IsStaticBody {
				continue
			}
			if part.IndexCount == 0 {
				r.stats.SkippedParts++
				continue
			}
			if err := r.device.DrawStatic(handle, p, world.Mul4(r.nodeWorlds[part.SceneNodeIndex])); err != nil {
				return fmt.Errorf("draw %q part %d: %w", asset.Name, p, err)
			}
			r.stats.DrawCalls++
		}
	}
	return nil
}

func (r *renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *renderer) Resize(width, height int) {
	r.device.Resize(width, height)
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.device.Release()
	r.initialized = false
	clear(r.meshHandles)
	clear(r.assetHandles)
}

func (r *renderer) ReleaseMesh(mesh *model.Mesh) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.meshHandles[mesh]
	if !ok {
		return
	}
	delete(r.meshHandles, mesh)
	r.device.ReleaseMesh(h)
	r.logger.Debug("released mesh", "name", mesh.Name)
}

func (r *renderer) ReleaseMeshAsset(asset *model.MeshAsset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.assetHandles[asset]
	if !ok || asset == r.bonePiece {
		return
	}
	delete(r.assetHandles, asset)
	r.device.ReleaseMeshAsset(h)
}

// meshHandle returns the device handle of mesh, uploading it on first use.
// Caller must hold the mutex.
func (r *renderer) meshHandle(mesh *model.Mesh) (MeshHandle, error) {
	if h, ok := r.meshHandles[mesh]; ok {
		return h, nil
	}
	h, err := r.device.UploadMesh(mesh)
	if err != nil {
		return 0, fmt.Errorf("upload mesh %q: %w", mesh.Name, err)
	}
	r.meshHandles[mesh] = h
	r.logger.Debug("uploaded mesh", "name", mesh.Name, "parts", len(mesh.Parts), "vertices", mesh.VertexCount(), "joints", mesh.NumJoints())
	return h, nil
}

// assetHandle returns the device handle of asset, uploading it on first use.
// Caller must hold the mutex.
func (r *renderer) assetHandle(asset *model.MeshAsset) (MeshHandle, error) {
	if h, ok := r.assetHandles[asset]; ok {
		return h, nil
	}
	h, err := r.device.UploadMeshAsset(asset)
	if err != nil {
		return 0, fmt.Errorf("upload mesh asset %q: %w", asset.Name, err)
	}
	r.assetHandles[asset] = h
	return h, nil
}
