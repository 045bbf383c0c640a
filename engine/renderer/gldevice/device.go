// Package gldevice implements renderer.Device on OpenGL 4.1 core. The caller owns the GL
// context and must make it current on the calling thread before New and every later call.
package gldevice

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/charmbracelet/log"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	skinnedVertexStride = 14 * 4
	meshVertexStride    = 6 * 4
	instanceStride      = 16 * 4

	// instanceLocation is the first of four vec4 attribute slots holding the world matrix.
	instanceLocation = 4
)

type glPart struct {
	vtfVAO     uint32
	cpuVAO     uint32
	vertices   uint32
	skinned    uint32
	indices    uint32
	indexCount int32
}

type glAsset struct {
	vao      uint32
	vertices uint32
	indices  uint32
	parts    []model.MeshPart
}

// Device is a renderer.Device issuing OpenGL calls on the current context.
type Device struct {
	logger *log.Logger

	swap            func()
	instancedArrays bool

	skinned   *program
	mesh      *program
	instanced *program

	instanceBuffer uint32
	instanceBytes  int

	texture       uint32
	textureWidth  int32
	textureHeight int32

	view       mgl32.Mat4
	projection mgl32.Mat4

	meshes [][]glPart
	assets []glAsset

	scratch []float32
}

var _ renderer.Device = &Device{}

// New loads the GL function pointers for the current context and compiles the programs.
//
// Parameters:
//   - options: functional options to configure the device
//
// Returns:
//   - *Device: the device
//   - error: an error if GL cannot be loaded or a program fails to build
func New(options ...DeviceBuilderOption) (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("gl init: %w", err)
	}

	d := &Device{
		logger:          common.Logger().WithPrefix("gl"),
		instancedArrays: true,
		view:            mgl32.Ident4(),
		projection:      mgl32.Ident4(),
	}
	for _, option := range options {
		option(d)
	}

	var err error
	if d.skinned, err = newProgram(skinnedVtfSource, shadeSource); err != nil {
		return nil, fmt.Errorf("skinned program: %w", err)
	}
	if d.mesh, err = newProgram(meshSource, shadeSource); err != nil {
		return nil, fmt.Errorf("mesh program: %w", err)
	}
	if d.instanced, err = newProgram(meshInstancedSource, shadeSource); err != nil {
		return nil, fmt.Errorf("instanced program: %w", err)
	}

	gl.GenBuffers(1, &d.instanceBuffer)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)
	gl.FrontFace(gl.CCW)

	d.logger.Info("device ready", "version", gl.GoStr(gl.GetString(gl.VERSION)))
	return d, nil
}

func (d *Device) Capabilities() renderer.Capabilities {
	var maxSize int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxSize)
	return renderer.Capabilities{
		InstancedArrays: d.instancedArrays,
		MaxTextureSize:  int(maxSize),
	}
}

func (d *Device) CreateSkinningTexture(width, height int) (renderer.TextureHandle, error) {
	if d.texture != 0 {
		return 0, fmt.Errorf("skinning texture already created")
	}

	gl.GenTextures(1, &d.texture)
	gl.BindTexture(gl.TEXTURE_2D, d.texture)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(width), int32(height), 0, gl.RGBA, gl.FLOAT, nil)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		gl.DeleteTextures(1, &d.texture)
		d.texture = 0
		return 0, fmt.Errorf("allocate %dx%d skinning texture: gl error 0x%x", width, height, code)
	}

	d.textureWidth, d.textureHeight = int32(width), int32(height)
	return renderer.TextureHandle(d.texture), nil
}

func (d *Device) UpdateSkinningTexture(tex renderer.TextureHandle, rows int, data []float32) error {
	if uint32(tex) != d.texture || d.texture == 0 {
		return fmt.Errorf("unknown skinning texture %d", tex)
	}
	if rows == 0 {
		return nil
	}
	if len(data) != rows*int(d.textureWidth)*4 {
		return fmt.Errorf("skinning update of %d rows carries %d floats", rows, len(data))
	}

	gl.BindTexture(gl.TEXTURE_2D, d.texture)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, d.textureWidth, int32(rows), gl.RGBA, gl.FLOAT, gl.Ptr(&data[0]))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

func (d *Device) UploadInstanceMatrices(data []float32) error {
	if len(data) == 0 {
		return nil
	}

	size := len(data) * 4
	gl.BindBuffer(gl.ARRAY_BUFFER, d.instanceBuffer)
	if size > d.instanceBytes {
		d.instanceBytes = max(size, 2*d.instanceBytes)
		gl.BufferData(gl.ARRAY_BUFFER, d.instanceBytes, nil, gl.DYNAMIC_DRAW)
		d.logger.Debug("grew instance buffer", "bytes", d.instanceBytes)
	}
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, size, gl.Ptr(&data[0]))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return nil
}

// bindInstanceAttributes points the four world matrix columns of the bound VAO at the
// instance buffer, advancing once per instance.
func (d *Device) bindInstanceAttributes() {
	gl.BindBuffer(gl.ARRAY_BUFFER, d.instanceBuffer)
	for c := range uint32(4) {
		loc := instanceLocation + c
		gl.EnableVertexAttribArray(loc)
		gl.VertexAttribPointer(loc, 4, gl.FLOAT, false, instanceStride, gl.PtrOffset(int(c)*16))
		gl.VertexAttribDivisor(loc, 1)
	}
}

func staticBuffer(target uint32, data []byte, usage uint32) uint32 {
	var buf uint32
	gl.GenBuffers(1, &buf)
	gl.BindBuffer(target, buf)
	gl.BufferData(target, len(data), gl.Ptr(&data[0]), usage)
	return buf
}

func positionNormalAttributes(stride int32) {
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, stride, gl.PtrOffset(12))
}

func (d *Device) UploadMesh(mesh *model.Mesh) (renderer.MeshHandle, error) {
	parts := make([]glPart, len(mesh.Parts))
	for p := range mesh.Parts {
		part := &mesh.Parts[p]
		if part.Empty() {
			continue
		}

		vc := part.VertexCount()
		words := make([]uint32, 0, vc*14)
		bind := make([]float32, 0, vc*6)
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

		gp := &parts[p]
		gp.indexCount = int32(len(part.Indices))

		gl.GenVertexArrays(1, &gp.vtfVAO)
		gl.BindVertexArray(gp.vtfVAO)
		gp.vertices = staticBuffer(gl.ARRAY_BUFFER, common.SliceToBytes(words), gl.STATIC_DRAW)
		positionNormalAttributes(skinnedVertexStride)
		gl.EnableVertexAttribArray(2)
		gl.VertexAttribIPointer(2, 4, gl.UNSIGNED_INT, skinnedVertexStride, gl.PtrOffset(24))
		gl.EnableVertexAttribArray(3)
		gl.VertexAttribPointer(3, 4, gl.FLOAT, false, skinnedVertexStride, gl.PtrOffset(40))
		d.bindInstanceAttributes()
		gp.indices = staticBuffer(gl.ELEMENT_ARRAY_BUFFER, common.SliceToBytes(part.Indices), gl.STATIC_DRAW)

		gl.GenVertexArrays(1, &gp.cpuVAO)
		gl.BindVertexArray(gp.cpuVAO)
		gp.skinned = staticBuffer(gl.ARRAY_BUFFER, common.SliceToBytes(bind), gl.DYNAMIC_DRAW)
		positionNormalAttributes(meshVertexStride)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gp.indices)

		gl.BindVertexArray(0)
	}

	d.meshes = append(d.meshes, parts)
	return renderer.MeshHandle(len(d.meshes)), nil
}

func (d *Device) UploadMeshAsset(asset *model.MeshAsset) (renderer.MeshHandle, error) {
	a := glAsset{parts: asset.Parts}
	if len(asset.Indices) > 0 {
		gl.GenVertexArrays(1, &a.vao)
		gl.BindVertexArray(a.vao)
		a.vertices = staticBuffer(gl.ARRAY_BUFFER, common.SliceToBytes(asset.PositionsNormals()), gl.STATIC_DRAW)
		positionNormalAttributes(meshVertexStride)
		if d.instancedArrays {
			d.bindInstanceAttributes()
		}
		a.indices = staticBuffer(gl.ELEMENT_ARRAY_BUFFER, common.SliceToBytes(asset.Indices), gl.STATIC_DRAW)
		gl.BindVertexArray(0)
	}

	d.assets = append(d.assets, a)
	return renderer.MeshHandle(len(d.assets)), nil
}

func (d *Device) meshPart(mesh renderer.MeshHandle, part int) (*glPart, error) {
	i := int(mesh) - 1
	if i < 0 || i >= len(d.meshes) || part < 0 || part >= len(d.meshes[i]) {
		return nil, fmt.Errorf("unknown mesh %d part %d", mesh, part)
	}
	return &d.meshes[i][part], nil
}

func (d *Device) assetPart(asset renderer.MeshHandle, part int) (*glAsset, *model.MeshPart, error) {
	i := int(asset) - 1
	if i < 0 || i >= len(d.assets) || part < 0 || part >= len(d.assets[i].parts) {
		return nil, nil, fmt.Errorf("unknown mesh asset %d part %d", asset, part)
	}
	return &d.assets[i], &d.assets[i].parts[part], nil
}

func (d *Device) UploadSkinnedVertices(mesh renderer.MeshHandle, part int, positions, normals []float32) error {
	gp, err := d.meshPart(mesh, part)
	if err != nil {
		return err
	}
	if gp.skinned == 0 {
		return nil
	}

	vc := len(positions) / 3
	d.scratch = common.Grow(d.scratch, vc*6)
	for v := range vc {
		out := d.scratch[v*6 : v*6+6]
		copy(out[:3], positions[v*3:v*3+3])
		if normals != nil {
			copy(out[3:], normals[v*3:v*3+3])
		} else {
			out[3], out[4], out[5] = 0, 1, 0
		}
	}

	gl.BindBuffer(gl.ARRAY_BUFFER, gp.skinned)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, vc*meshVertexStride, gl.Ptr(&d.scratch[0]))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return nil
}

func (d *Device) SetViewProjection(view, projection mgl32.Mat4) {
	d.view, d.projection = view, projection
}

func (d *Device) use(p *program) {
	gl.UseProgram(p.handle)
	gl.UniformMatrix4fv(p.view, 1, false, &d.view[0])
	gl.UniformMatrix4fv(p.projection, 1, false, &d.projection[0])
}

func (d *Device) DrawSkinnedVtf(mesh renderer.MeshHandle, part int, tex renderer.TextureHandle, instances, jointCount int) error {
	gp, err := d.meshPart(mesh, part)
	if err != nil {
		return err
	}
	if gp.vtfVAO == 0 || instances == 0 {
		return nil
	}
	if uint32(tex) != d.texture || d.texture == 0 {
		return fmt.Errorf("unknown skinning texture %d", tex)
	}

	d.use(d.skinned)
	gl.Uniform1i(d.skinned.jointCount, int32(jointCount))
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, d.texture)
	gl.Uniform1i(d.skinned.skinning, 0)

	gl.BindVertexArray(gp.vtfVAO)
	gl.DrawElementsInstanced(gl.TRIANGLES, gp.indexCount, gl.UNSIGNED_INT, nil, int32(instances))
	gl.BindVertexArray(0)
	return nil
}

func (d *Device) DrawSkinned(mesh renderer.MeshHandle, part int, world mgl32.Mat4) error {
	gp, err := d.meshPart(mesh, part)
	if err != nil {
		return err
	}
	if gp.cpuVAO == 0 {
		return nil
	}

	d.use(d.mesh)
	gl.UniformMatrix4fv(d.mesh.world, 1, false, &world[0])
	gl.BindVertexArray(gp.cpuVAO)
	gl.DrawElements(gl.TRIANGLES, gp.indexCount, gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
	return nil
}

func (d *Device) DrawStatic(asset renderer.MeshHandle, part int, world mgl32.Mat4) error {
	a, p, err := d.assetPart(asset, part)
	if err != nil {
		return err
	}
	if a.vao == 0 || p.IndexCount == 0 {
		return nil
	}

	d.use(d.mesh)
	gl.UniformMatrix4fv(d.mesh.world, 1, false, &world[0])
	gl.BindVertexArray(a.vao)
	gl.DrawElements(gl.TRIANGLES, int32(p.IndexCount), gl.UNSIGNED_INT, gl.PtrOffset(p.IndexOffset*4))
	gl.BindVertexArray(0)
	return nil
}

func (d *Device) DrawStaticInstanced(asset renderer.MeshHandle, part int, instances int) error {
	if !d.instancedArrays {
		return fmt.Errorf("instanced arrays disabled")
	}
	a, p, err := d.assetPart(asset, part)
	if err != nil {
		return err
	}
	if a.vao == 0 || p.IndexCount == 0 || instances == 0 {
		return nil
	}

	d.use(d.instanced)
	gl.BindVertexArray(a.vao)
	gl.DrawElementsInstanced(gl.TRIANGLES, int32(p.IndexCount), gl.UNSIGNED_INT, gl.PtrOffset(p.IndexOffset*4), int32(instances))
	gl.BindVertexArray(0)
	return nil
}

func (d *Device) Resize(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

func (d *Device) BeginFrame(clear [4]float32) error {
	gl.ClearColor(clear[0], clear[1], clear[2], clear[3])
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	return nil
}

func (d *Device) EndFrame() error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		d.logger.Warn("gl error during frame", "code", fmt.Sprintf("0x%x", code))
	}
	if d.swap != nil {
		d.swap()
	}
	return nil
}

func (d *Device) ReleaseMesh(mesh renderer.MeshHandle) {
	i := int(mesh) - 1
	if i < 0 || i >= len(d.meshes) {
		return
	}
	releaseParts(d.meshes[i])
	d.meshes[i] = nil
}

func (d *Device) ReleaseMeshAsset(asset renderer.MeshHandle) {
	i := int(asset) - 1
	if i < 0 || i >= len(d.assets) {
		return
	}
	releaseAsset(&d.assets[i])
	d.assets[i] = glAsset{}
}

func releaseParts(parts []glPart) {
	for i := range parts {
		p := &parts[i]
		if p.vtfVAO == 0 {
			continue
		}
		gl.DeleteVertexArrays(1, &p.vtfVAO)
		gl.DeleteVertexArrays(1, &p.cpuVAO)
		gl.DeleteBuffers(1, &p.vertices)
		gl.DeleteBuffers(1, &p.skinned)
		gl.DeleteBuffers(1, &p.indices)
	}
}

func releaseAsset(a *glAsset) {
	if a.vao == 0 {
		return
	}
	gl.DeleteVertexArrays(1, &a.vao)
	gl.DeleteBuffers(1, &a.vertices)
	gl.DeleteBuffers(1, &a.indices)
}

func (d *Device) Release() {
	for _, parts := range d.meshes {
		releaseParts(parts)
	}
	for i := range d.assets {
		releaseAsset(&d.assets[i])
	}
	d.meshes, d.assets = nil, nil

	if d.texture != 0 {
		gl.DeleteTextures(1, &d.texture)
		d.texture = 0
	}
	gl.DeleteBuffers(1, &d.instanceBuffer)
	for _, p := range []*program{d.skinned, d.mesh, d.instanced} {
		if p != nil {
			gl.DeleteProgram(p.handle)
		}
	}
}
