// Package gputest provides an in-memory renderer.Device that records submitted work.
package gputest

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

// CallKind names a recorded Device method.
type CallKind int

const (
	CallUpdateTexture CallKind = iota
	CallUploadInstances
	CallUploadVertices
	CallDrawVtf
	CallDrawSkinned
	CallDrawStatic
	CallDrawStaticInstanced
)

func (k CallKind) String() string {
	switch k {
	case CallUpdateTexture:
		return "UpdateSkinningTexture"
	case CallUploadInstances:
		return "UploadInstanceMatrices"
	case CallUploadVertices:
		return "UploadSkinnedVertices"
	case CallDrawVtf:
		return "DrawSkinnedVtf"
	case CallDrawSkinned:
		return "DrawSkinned"
	case CallDrawStatic:
		return "DrawStatic"
	case CallDrawStaticInstanced:
		return "DrawStaticInstanced"
	}
	return fmt.Sprintf("CallKind(%d)", int(k))
}

// Call is one recorded submission.
type Call struct {
	Kind       CallKind
	Mesh       renderer.MeshHandle
	Part       int
	Rows       int
	Floats     int
	Instances  int
	JointCount int
	World      mgl32.Mat4
}

// Draw is the device state captured at a DrawSkinnedVtf call when KeepData is set.
type Draw struct {
	Part       int
	Instances  int
	JointCount int
	Texture    []float32
	World      []float32
}

// Device is a renderer.Device backed by plain slices. The skinning texture and the instance
// buffer are emulated so tests can replay the vertex shader on recorded data.
type Device struct {
	Caps renderer.Capabilities

	// KeepData snapshots the texture and instance buffer at every texture fetch draw.
	KeepData bool

	// FailOn makes the named call return an error.
	FailOn map[CallKind]error

	Calls []Call
	Draws []Draw

	Meshes []*model.Mesh
	Assets []*model.MeshAsset

	// ReleasedMeshes and ReleasedAssets list the handles passed to ReleaseMesh and
	// ReleaseMeshAsset, in call order.
	ReleasedMeshes []renderer.MeshHandle
	ReleasedAssets []renderer.MeshHandle

	TextureWidth  int
	TextureHeight int
	Texture       []float32
	Instances     []float32

	View       mgl32.Mat4
	Projection mgl32.Mat4

	Frames   int
	Released bool
}

var _ renderer.Device = &Device{}

// NewDevice creates a Device with instanced arrays and a 4096 texel texture limit.
func NewDevice() *Device {
	return &Device{
		Caps: renderer.Capabilities{InstancedArrays: true, MaxTextureSize: 4096},
	}
}

// Reset drops the recorded calls and draws and keeps their storage.
func (d *Device) Reset() {
	d.Calls = d.Calls[:0]
	d.Draws = d.Draws[:0]
}

// Count returns the number of recorded calls of kind.
func (d *Device) Count(kind CallKind) int {
	n := 0
	for _, c := range d.Calls {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

func (d *Device) record(c Call) error {
	if err := d.FailOn[c.Kind]; err != nil {
		return err
	}
	d.Calls = append(d.Calls, c)
	return nil
}

func (d *Device) Capabilities() renderer.Capabilities {
	return d.Caps
}

func (d *Device) CreateSkinningTexture(width, height int) (renderer.TextureHandle, error) {
	d.TextureWidth = width
	d.TextureHeight = height
	d.Texture = make([]float32, width*height*4)
	return 1, nil
}

func (d *Device) UpdateSkinningTexture(_ renderer.TextureHandle, rows int, data []float32) error {
	if want := rows * d.TextureWidth * 4; len(data) != want {
		return fmt.Errorf("texture update of %d rows carries %d floats, want %d", rows, len(data), want)
	}
	if err := d.record(Call{Kind: CallUpdateTexture, Rows: rows, Floats: len(data)}); err != nil {
		return err
	}
	copy(d.Texture, data)
	return nil
}

func (d *Device) UploadInstanceMatrices(data []float32) error {
	if err := d.record(Call{Kind: CallUploadInstances, Floats: len(data), Instances: len(data) / 16}); err != nil {
		return err
	}
	if cap(d.Instances) < len(data) {
		d.Instances = make([]float32, len(data))
	}
	d.Instances = d.Instances[:len(data)]
	copy(d.Instances, data)
	return nil
}

func (d *Device) UploadMesh(mesh *model.Mesh) (renderer.MeshHandle, error) {
	d.Meshes = append(d.Meshes, mesh)
	return renderer.MeshHandle(len(d.Meshes)), nil
}

func (d *Device) UploadMeshAsset(asset *model.MeshAsset) (renderer.MeshHandle, error) {
	d.Assets = append(d.Assets, asset)
	return renderer.MeshHandle(len(d.Assets)), nil
}

func (d *Device) ReleaseMesh(mesh renderer.MeshHandle) {
	if i := int(mesh) - 1; i >= 0 && i < len(d.Meshes) {
		d.Meshes[i] = nil
		d.ReleasedMeshes = append(d.ReleasedMeshes, mesh)
	}
}

func (d *Device) ReleaseMeshAsset(asset renderer.MeshHandle) {
	if i := int(asset) - 1; i >= 0 && i < len(d.Assets) {
		d.Assets[i] = nil
		d.ReleasedAssets = append(d.ReleasedAssets, asset)
	}
}

func (d *Device) UploadSkinnedVertices(mesh renderer.MeshHandle, part int, positions, normals []float32) error {
	return d.record(Call{Kind: CallUploadVertices, Mesh: mesh, Part: part, Floats: len(positions)})
}

func (d *Device) SetViewProjection(view, projection mgl32.Mat4) {
	d.View = view
	d.Projection = projection
}

func (d *Device) DrawSkinnedVtf(mesh renderer.MeshHandle, part int, _ renderer.TextureHandle, instances, jointCount int) error {
	if err := d.record(Call{Kind: CallDrawVtf, Mesh: mesh, Part: part, Instances: instances, JointCount: jointCount}); err != nil {
		return err
	}
	if d.KeepData {
		d.Draws = append(d.Draws, Draw{
			Part:       part,
			Instances:  instances,
			JointCount: jointCount,
			Texture:    slices.Clone(d.Texture),
			World:      slices.Clone(d.Instances),
		})
	}
	return nil
}

func (d *Device) DrawSkinned(mesh renderer.MeshHandle, part int, world mgl32.Mat4) error {
	return d.record(Call{Kind: CallDrawSkinned, Mesh: mesh, Part: part, World: world})
}

func (d *Device) DrawStatic(asset renderer.MeshHandle, part int, world mgl32.Mat4) error {
	return d.record(Call{Kind: CallDrawStatic, Mesh: asset, Part: part, World: world})
}

func (d *Device) DrawStaticInstanced(asset renderer.MeshHandle, part int, instances int) error {
	if !d.Caps.InstancedArrays {
		return fmt.Errorf("instanced draw without instanced arrays")
	}
	return d.record(Call{Kind: CallDrawStaticInstanced, Mesh: asset, Part: part, Instances: instances})
}

func (d *Device) Resize(width, height int) {}

func (d *Device) BeginFrame(clear [4]float32) error {
	d.Frames++
	return nil
}

func (d *Device) EndFrame() error {
	return nil
}

func (d *Device) Release() {
	d.Released = true
}

// FetchMatrix reads the matrix at float offset from a texture snapshot the way the vertex
// shader does: four consecutive RGBA texels, one column each.
func FetchMatrix(texture []float32, offset int) mgl32.Mat4 {
	var m mgl32.Mat4
	copy(m[:], texture[offset:offset+16])
	return m
}
