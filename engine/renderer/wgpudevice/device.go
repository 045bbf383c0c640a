// Package wgpudevice implements renderer.Device on WebGPU.
//
// Every draw is recorded into its own render pass and submitted immediately. Queue writes made
// between draws (skinning texture rows, instance matrices, per-draw uniforms) are therefore
// ordered before the draw that reads them, which lets one skinning texture and one instance
// buffer serve every batch of a frame.
package wgpudevice

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/shader"
	"github.com/charmbracelet/log"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	depthFormat = wgpu.TextureFormatDepth24Plus

	// skinnedVertexWords is position(3) normal(3) joints(4) weights(4), 4 bytes each.
	skinnedVertexWords = 14

	// meshVertexFloats is position(3) normal(3).
	meshVertexFloats = 6

	skinningTexture renderer.TextureHandle = 1
)

var errNoFrame = errors.New("draw outside BeginFrame/EndFrame")

type gpuPart struct {
	vertices   *wgpu.Buffer
	skinned    *wgpu.Buffer
	indices    *wgpu.Buffer
	indexCount uint32
}

type gpuAsset struct {
	vertices *wgpu.Buffer
	indices  *wgpu.Buffer
	parts    []model.MeshPart
}

// Device is a renderer.Device drawing to a WebGPU surface.
type Device struct {
	mu     *sync.Mutex
	logger *log.Logger

	presentMode          renderer.PresentMode
	forceFallbackAdapter bool

	instance      *wgpu.Instance
	adapter       *wgpu.Adapter
	surface       *wgpu.Surface
	device        *wgpu.Device
	queue         *wgpu.Queue
	surfaceFormat wgpu.TextureFormat
	alphaMode     wgpu.CompositeAlphaMode
	width, height int

	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView

	skinnedPipeline   pipeline.Pipeline
	meshPipeline      pipeline.Pipeline
	instancedPipeline pipeline.Pipeline

	cameraBuffer *wgpu.Buffer
	drawBuffer   *wgpu.Buffer
	objectBuffer *wgpu.Buffer

	skinnedCamera   *wgpu.BindGroup
	meshCamera      *wgpu.BindGroup
	instancedCamera *wgpu.BindGroup
	skinnedGroup    *wgpu.BindGroup
	meshGroup       *wgpu.BindGroup

	instanceBuffer   *wgpu.Buffer
	instanceCapacity uint64

	skinTexture *wgpu.Texture
	skinView    *wgpu.TextureView
	skinWidth   int

	meshes [][]gpuPart
	assets []gpuAsset

	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
	clearPending bool
	clearColor   wgpu.Color

	scratch []float32
}

var _ renderer.Device = &Device{}

// New creates the WebGPU instance, adapter, device and surface, and builds the pipelines.
//
// Parameters:
//   - surfaceDescriptor: the platform surface of the window
//   - width: the drawable width in pixels
//   - height: the drawable height in pixels
//   - options: functional options to configure the device
//
// Returns:
//   - *Device: the device
//   - error: an error if any GPU object cannot be created
func New(surfaceDescriptor *wgpu.SurfaceDescriptor, width, height int, options ...DeviceBuilderOption) (*Device, error) {
	runtime.LockOSThread()

	d := &Device{
		mu:          &sync.Mutex{},
		logger:      common.Logger().WithPrefix("wgpu"),
		presentMode: renderer.PresentModeVSync,
	}
	for _, option := range options {
		option(d)
	}

	d.instance = wgpu.CreateInstance(nil)
	d.surface = d.instance.CreateSurface(surfaceDescriptor)

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surfaceFormat = capabilities.Formats[0]
	d.alphaMode = capabilities.AlphaModes[0]
	if err := d.configureSurface(width, height); err != nil {
		return nil, err
	}

	if err := d.buildPipelines(); err != nil {
		return nil, err
	}

	d.logger.Info("device ready", "format", d.surfaceFormat, "size", fmt.Sprintf("%dx%d", width, height))
	return d, nil
}

func (d *Device) configureSurface(width, height int) error {
	d.width, d.height = max(width, 1), max(height, 1)

	mode := wgpu.PresentModeFifo
	if d.presentMode == renderer.PresentModeUncapped {
		mode = wgpu.PresentModeImmediate
	}
	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       uint32(d.width),
		Height:      uint32(d.height),
		PresentMode: mode,
		AlphaMode:   d.alphaMode,
	})

	if d.depthView != nil {
		d.depthView.Release()
		d.depthTexture.Release()
	}
	depthTexture, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(d.width),
			Height:             uint32(d.height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("create depth texture: %w", err)
	}
	d.depthTexture = depthTexture
	d.depthView, err = depthTexture.CreateView(nil)
	return err
}

func (d *Device) buildPipelines() error {
	build := func(key, vertexSource string, opts ...pipeline.PipelineBuilderOption) (pipeline.Pipeline, error) {
		vs, err := shader.NewShader(key+" vertex", shader.ShaderTypeVertex, vertexSource)
		if err != nil {
			return nil, err
		}
		fs, err := shader.NewShader(key+" fragment", shader.ShaderTypeFragment, shadeSource)
		if err != nil {
			return nil, err
		}
		p := pipeline.NewPipeline(key, append(opts, pipeline.WithVertexShader(vs), pipeline.WithFragmentShader(fs))...)
		return p, p.Build(d.device, d.surfaceFormat, depthFormat, 1)
	}

	var err error
	if d.skinnedPipeline, err = build("skinned vtf", skinnedVtfSource); err != nil {
		return err
	}
	if d.meshPipeline, err = build("mesh", meshSource); err != nil {
		return err
	}
	if d.instancedPipeline, err = build("mesh instanced", meshInstancedSource); err != nil {
		return err
	}

	if d.cameraBuffer, err = d.uniformBuffer("Camera", 2*64); err != nil {
		return err
	}
	if d.drawBuffer, err = d.uniformBuffer("Draw", 16); err != nil {
		return err
	}
	if d.objectBuffer, err = d.uniformBuffer("Object", 64); err != nil {
		return err
	}

	if d.skinnedCamera, err = d.bufferGroup(d.skinnedPipeline, 0, d.cameraBuffer); err != nil {
		return err
	}
	if d.meshCamera, err = d.bufferGroup(d.meshPipeline, 0, d.cameraBuffer); err != nil {
		return err
	}
	if d.instancedCamera, err = d.bufferGroup(d.instancedPipeline, 0, d.cameraBuffer); err != nil {
		return err
	}
	d.meshGroup, err = d.bufferGroup(d.meshPipeline, 1, d.objectBuffer)
	return err
}

func (d *Device) uniformBuffer(label string, size uint64) (*wgpu.Buffer, error) {
	return d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Uniform",
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
}

func (d *Device) bufferGroup(p pipeline.Pipeline, group int, buf *wgpu.Buffer) (*wgpu.BindGroup, error) {
	return d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  fmt.Sprintf("%s group %d", p.PipelineKey(), group),
		Layout: p.BindGroupLayout(group),
		Entries: []wgpu.BindGroupEntry{{
			Binding: 0,
			Buffer:  buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		}},
	})
}

func (d *Device) Capabilities() renderer.Capabilities {
	return renderer.Capabilities{
		InstancedArrays: true,
		MaxTextureSize:  int(d.adapter.GetLimits().Limits.MaxTextureDimension2D),
	}
}

func (d *Device) CreateSkinningTexture(width, height int) (renderer.TextureHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.skinTexture != nil {
		return 0, errors.New("skinning texture already created")
	}

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     "Skinning Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA32Float,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return 0, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return 0, err
	}

	group, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "skinned vtf group 1",
		Layout: d.skinnedPipeline.BindGroupLayout(1),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: view},
			{Binding: 1, Buffer: d.drawBuffer, Offset: 0, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		view.Release()
		tex.Release()
		return 0, err
	}

	d.skinTexture, d.skinView, d.skinnedGroup = tex, view, group
	d.skinWidth = width
	return skinningTexture, nil
}

func (d *Device) UpdateSkinningTexture(tex renderer.TextureHandle, rows int, data []float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if tex != skinningTexture || d.skinTexture == nil {
		return fmt.Errorf("unknown skinning texture %d", tex)
	}
	if rows == 0 {
		return nil
	}
	if len(data) != rows*d.skinWidth*4 {
		return fmt.Errorf("skinning update of %d rows carries %d floats", rows, len(data))
	}

	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  d.skinTexture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		common.SliceToBytes(data),
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(d.skinWidth * 16),
			RowsPerImage: uint32(rows),
		},
		&wgpu.Extent3D{
			Width:              uint32(d.skinWidth),
			Height:             uint32(rows),
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (d *Device) UploadInstanceMatrices(data []float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	size := uint64(len(data) * 4)
	if size == 0 {
		return nil
	}
	if size > d.instanceCapacity {
		capacity := max(size, 2*d.instanceCapacity, 64*64)
		buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Instance Buffer",
			Size:  capacity,
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		if d.instanceBuffer != nil {
			d.instanceBuffer.Release()
		}
		d.instanceBuffer, d.instanceCapacity = buf, capacity
		d.logger.Debug("grew instance buffer", "bytes", capacity)
	}
	d.queue.WriteBuffer(d.instanceBuffer, 0, common.SliceToBytes(data))
	return nil
}

func (d *Device) vertexBuffer(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	d.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

func (d *Device) UploadMesh(mesh *model.Mesh) (renderer.MeshHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	parts := make([]gpuPart, len(mesh.Parts))
	for p := range mesh.Parts {
		part := &mesh.Parts[p]
		if part.Empty() {
			continue
		}

		vc := part.VertexCount()
		words := make([]uint32, 0, vc*skinnedVertexWords)
		bind := make([]float32, 0, vc*meshVertexFloats)
		for v := range vc {
			pos := part.Positions[v*3 : v*3+3]
			normal := []float32{0, 1, 0}
			if len(part.Normals) > 0 {
				normal = part.Normals[v*3 : v*3+3]
			}
			joints, weights := part.Influences(v)

			for _, f := range pos {
				words = append(words, math.Float32bits(f))
			}
			for _, f := range normal {
				words = append(words, math.Float32bits(f))
			}
			for _, j := range joints {
				words = append(words, uint32(j))
			}
			for _, w := range weights {
				words = append(words, math.Float32bits(w))
			}
			bind = append(bind, pos...)
			bind = append(bind, normal...)
		}

		label := fmt.Sprintf("%s part %d", mesh.Name, p)
		var err error
		if parts[p].vertices, err = d.vertexBuffer(label+" Vertex Buffer", common.SliceToBytes(words), wgpu.BufferUsageVertex); err != nil {
			return 0, err
		}
		if parts[p].skinned, err = d.vertexBuffer(label+" Skinned Buffer", common.SliceToBytes(bind), wgpu.BufferUsageVertex); err != nil {
			return 0, err
		}
		if parts[p].indices, err = d.vertexBuffer(label+" Index Buffer", common.SliceToBytes(part.Indices), wgpu.BufferUsageIndex); err != nil {
			return 0, err
		}
		parts[p].indexCount = uint32(len(part.Indices))
	}

	d.meshes = append(d.meshes, parts)
	return renderer.MeshHandle(len(d.meshes)), nil
}

func (d *Device) UploadMeshAsset(asset *model.MeshAsset) (renderer.MeshHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var a gpuAsset
	a.parts = asset.Parts
	if len(asset.Indices) > 0 {
		var err error
		if a.vertices, err = d.vertexBuffer(asset.Name+" Vertex Buffer", common.SliceToBytes(asset.PositionsNormals()), wgpu.BufferUsageVertex); err != nil {
			return 0, err
		}
		if a.indices, err = d.vertexBuffer(asset.Name+" Index Buffer", common.SliceToBytes(asset.Indices), wgpu.BufferUsageIndex); err != nil {
			return 0, err
		}
	}

	d.assets = append(d.assets, a)
	return renderer.MeshHandle(len(d.assets)), nil
}

func (d *Device) meshPart(mesh renderer.MeshHandle, part int) (*gpuPart, error) {
	i := int(mesh) - 1
	if i < 0 || i >= len(d.meshes) || part < 0 || part >= len(d.meshes[i]) {
		return nil, fmt.Errorf("unknown mesh %d part %d", mesh, part)
	}
	return &d.meshes[i][part], nil
}

func (d *Device) assetPart(asset renderer.MeshHandle, part int) (*gpuAsset, *model.MeshPart, error) {
	i := int(asset) - 1
	if i < 0 || i >= len(d.assets) || part < 0 || part >= len(d.assets[i].parts) {
		return nil, nil, fmt.Errorf("unknown mesh asset %d part %d", asset, part)
	}
	return &d.assets[i], &d.assets[i].parts[part], nil
}

func (d *Device) UploadSkinnedVertices(mesh renderer.MeshHandle, part int, positions, normals []float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	gp, err := d.meshPart(mesh, part)
	if err != nil {
		return err
	}
	if gp.skinned == nil {
		return nil
	}

	vc := len(positions) / 3
	d.scratch = common.Grow(d.scratch, vc*meshVertexFloats)
	for v := range vc {
		out := d.scratch[v*meshVertexFloats : v*meshVertexFloats+meshVertexFloats]
		copy(out[:3], positions[v*3:v*3+3])
		if normals != nil {
			copy(out[3:], normals[v*3:v*3+3])
		} else {
			out[3], out[4], out[5] = 0, 1, 0
		}
	}
	d.queue.WriteBuffer(gp.skinned, 0, common.SliceToBytes(d.scratch[:vc*meshVertexFloats]))
	return nil
}

func (d *Device) SetViewProjection(view, projection mgl32.Mat4) {
	d.mu.Lock()
	defer d.mu.Unlock()

	matrices := [2]mgl32.Mat4{view, projection}
	d.queue.WriteBuffer(d.cameraBuffer, 0, common.SliceToBytes(common.Mat4Floats(matrices[:])))
}

// submitPass records one render pass over the current frame and submits it. The first pass of
// a frame clears color and depth; later passes load them.
func (d *Device) submitPass(record func(pass *wgpu.RenderPassEncoder)) error {
	if d.frameView == nil {
		return errNoFrame
	}

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	load := wgpu.LoadOpLoad
	if d.clearPending {
		load = wgpu.LoadOpClear
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       d.frameView,
			LoadOp:     load,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: d.clearColor,
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            d.depthView,
			DepthLoadOp:     load,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	if record != nil {
		record(pass)
	}
	pass.End()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	d.queue.Submit(commandBuffer)
	commandBuffer.Release()
	d.clearPending = false
	return nil
}

func (d *Device) DrawSkinnedVtf(mesh renderer.MeshHandle, part int, tex renderer.TextureHandle, instances, jointCount int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	gp, err := d.meshPart(mesh, part)
	if err != nil {
		return err
	}
	if gp.vertices == nil || instances == 0 {
		return nil
	}
	if tex != skinningTexture || d.skinnedGroup == nil {
		return fmt.Errorf("unknown skinning texture %d", tex)
	}

	draw := [4]uint32{uint32(jointCount)}
	d.queue.WriteBuffer(d.drawBuffer, 0, common.SliceToBytes(draw[:]))

	return d.submitPass(func(pass *wgpu.RenderPassEncoder) {
		pass.SetPipeline(d.skinnedPipeline.RenderPipeline())
		pass.SetBindGroup(0, d.skinnedCamera, nil)
		pass.SetBindGroup(1, d.skinnedGroup, nil)
		pass.SetVertexBuffer(0, gp.vertices, 0, wgpu.WholeSize)
		pass.SetVertexBuffer(1, d.instanceBuffer, 0, wgpu.WholeSize)
		pass.SetIndexBuffer(gp.indices, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		pass.DrawIndexed(gp.indexCount, uint32(instances), 0, 0, 0)
	})
}

func (d *Device) DrawSkinned(mesh renderer.MeshHandle, part int, world mgl32.Mat4) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	gp, err := d.meshPart(mesh, part)
	if err != nil {
		return err
	}
	if gp.skinned == nil {
		return nil
	}

	d.queue.WriteBuffer(d.objectBuffer, 0, common.SliceToBytes(world[:]))
	return d.submitPass(func(pass *wgpu.RenderPassEncoder) {
		pass.SetPipeline(d.meshPipeline.RenderPipeline())
		pass.SetBindGroup(0, d.meshCamera, nil)
		pass.SetBindGroup(1, d.meshGroup, nil)
		pass.SetVertexBuffer(0, gp.skinned, 0, wgpu.WholeSize)
		pass.SetIndexBuffer(gp.indices, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		pass.DrawIndexed(gp.indexCount, 1, 0, 0, 0)
	})
}

func (d *Device) DrawStatic(asset renderer.MeshHandle, part int, world mgl32.Mat4) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	a, p, err := d.assetPart(asset, part)
	if err != nil {
		return err
	}
	if a.vertices == nil || p.IndexCount == 0 {
		return nil
	}

	d.queue.WriteBuffer(d.objectBuffer, 0, common.SliceToBytes(world[:]))
	return d.submitPass(func(pass *wgpu.RenderPassEncoder) {
		pass.SetPipeline(d.meshPipeline.RenderPipeline())
		pass.SetBindGroup(0, d.meshCamera, nil)
		pass.SetBindGroup(1, d.meshGroup, nil)
		pass.SetVertexBuffer(0, a.vertices, 0, wgpu.WholeSize)
		pass.SetIndexBuffer(a.indices, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		pass.DrawIndexed(uint32(p.IndexCount), 1, uint32(p.IndexOffset), 0, 0)
	})
}

func (d *Device) DrawStaticInstanced(asset renderer.MeshHandle, part int, instances int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	a, p, err := d.assetPart(asset, part)
	if err != nil {
		return err
	}
	if a.vertices == nil || p.IndexCount == 0 || instances == 0 {
		return nil
	}

	return d.submitPass(func(pass *wgpu.RenderPassEncoder) {
		pass.SetPipeline(d.instancedPipeline.RenderPipeline())
		pass.SetBindGroup(0, d.instancedCamera, nil)
		pass.SetVertexBuffer(0, a.vertices, 0, wgpu.WholeSize)
		pass.SetVertexBuffer(1, d.instanceBuffer, 0, wgpu.WholeSize)
		pass.SetIndexBuffer(a.indices, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		pass.DrawIndexed(uint32(p.IndexCount), uint32(instances), uint32(p.IndexOffset), 0, 0)
	})
}

func (d *Device) Resize(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if width <= 0 || height <= 0 || (width == d.width && height == d.height) {
		return
	}
	if err := d.configureSurface(width, height); err != nil {
		d.logger.Error("resize failed", "width", width, "height", height, "err", err)
	}
}

func (d *Device) BeginFrame(clear [4]float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	d.frameSurface, d.frameView = surfaceTexture, view
	d.clearPending = true
	d.clearColor = wgpu.Color{R: float64(clear[0]), G: float64(clear[1]), B: float64(clear[2]), A: float64(clear[3])}
	return nil
}

func (d *Device) EndFrame() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameSurface == nil {
		return nil
	}

	var err error
	if d.clearPending {
		err = d.submitPass(nil)
	}
	d.surface.Present()

	d.frameView.Release()
	d.frameSurface.Release()
	d.frameView, d.frameSurface = nil, nil
	return err
}

func (d *Device) ReleaseMesh(mesh renderer.MeshHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := int(mesh) - 1
	if i < 0 || i >= len(d.meshes) {
		return
	}
	releaseParts(d.meshes[i])
	d.meshes[i] = nil
}

func (d *Device) ReleaseMeshAsset(asset renderer.MeshHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := int(asset) - 1
	if i < 0 || i >= len(d.assets) {
		return
	}
	releaseAsset(&d.assets[i])
	d.assets[i] = gpuAsset{}
}

func releaseParts(parts []gpuPart) {
	for _, p := range parts {
		for _, b := range []*wgpu.Buffer{p.vertices, p.skinned, p.indices} {
			if b != nil {
				b.Release()
			}
		}
	}
}

func releaseAsset(a *gpuAsset) {
	if a.vertices != nil {
		a.vertices.Release()
		a.indices.Release()
	}
}

func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, parts := range d.meshes {
		releaseParts(parts)
	}
	for i := range d.assets {
		releaseAsset(&d.assets[i])
	}
	d.meshes, d.assets = nil, nil

	for _, g := range []*wgpu.BindGroup{d.skinnedCamera, d.meshCamera, d.instancedCamera, d.skinnedGroup, d.meshGroup} {
		if g != nil {
			g.Release()
		}
	}
	for _, b := range []*wgpu.Buffer{d.cameraBuffer, d.drawBuffer, d.objectBuffer, d.instanceBuffer} {
		if b != nil {
			b.Release()
		}
	}
	for _, p := range []pipeline.Pipeline{d.skinnedPipeline, d.meshPipeline, d.instancedPipeline} {
		if p != nil {
			p.Release()
		}
	}
	if d.skinView != nil {
		d.skinView.Release()
		d.skinTexture.Release()
	}
	if d.depthView != nil {
		d.depthView.Release()
		d.depthTexture.Release()
	}
	d.queue.Release()
	d.device.Release()
	d.adapter.Release()
	d.surface.Release()
	d.instance.Release()
}
