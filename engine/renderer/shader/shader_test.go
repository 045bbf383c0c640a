package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVertexSource = `
struct Camera {
    view: mat4x4<f32>,
    projection: mat4x4<f32>,
}

struct Draw {
    joint_count: u32,
}

@group(0) @binding(0) var<uniform> camera: Camera;
//@oxy:unfilterable
@group(1) @binding(0) var skinning: texture_2d<f32>;
@group(1) @binding(1) var<uniform> draw: Draw;

struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) joints: vec4<u32>,
    @location(3) weights: vec4<f32>,
}

// one world matrix per instance
//@oxy:instance
struct InstanceInput {
    @location(4) c0: vec4<f32>,
    @location(5) c1: vec4<f32>,
    @location(6) c2: vec4<f32>,
    @location(7) c3: vec4<f32>,
}

struct VertexOutput {
    @builtin(position) clip: vec4<f32>,
    @location(0) normal: vec3<f32>,
}

@vertex
fn vs_main(v: VertexInput, i: InstanceInput, @builtin(instance_index) id: u32) -> VertexOutput {
    var out: VertexOutput;
    return out;
}
`

func TestNewShaderVertexLayouts(t *testing.T) {
	s, err := NewShader("skinned", ShaderTypeVertex, testVertexSource)
	require.NoError(t, err)
	assert.Equal(t, "vs_main", s.EntryPoint())

	layouts := s.VertexLayouts()
	require.Len(t, layouts, 2)

	assert.Equal(t, wgpu.VertexStepModeVertex, layouts[0].StepMode)
	assert.Equal(t, uint64(12+12+16+16), layouts[0].ArrayStride)
	require.Len(t, layouts[0].Attributes, 4)
	assert.Equal(t, wgpu.VertexFormatUint32x4, layouts[0].Attributes[2].Format)
	assert.Equal(t, uint64(24), layouts[0].Attributes[2].Offset)

	assert.Equal(t, wgpu.VertexStepModeInstance, layouts[1].StepMode)
	assert.Equal(t, uint64(64), layouts[1].ArrayStride)
	assert.Equal(t, uint32(7), layouts[1].Attributes[3].ShaderLocation)
}

func TestNewShaderBindGroups(t *testing.T) {
	s, err := NewShader("skinned", ShaderTypeVertex, testVertexSource)
	require.NoError(t, err)

	groups := s.BindGroupLayoutDescriptors()
	require.Len(t, groups, 2)

	camera := groups[0].Entries[0]
	assert.Equal(t, wgpu.BufferBindingTypeUniform, camera.Buffer.Type)
	assert.Equal(t, uint64(128), camera.Buffer.MinBindingSize)
	assert.Equal(t, wgpu.ShaderStageVertex, camera.Visibility)

	require.Len(t, groups[1].Entries, 2)
	tex := groups[1].Entries[0]
	assert.Equal(t, wgpu.TextureSampleTypeUnfilterableFloat, tex.Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension2D, tex.Texture.ViewDimension)
	assert.Equal(t, uint64(4), groups[1].Entries[1].Buffer.MinBindingSize)

	binding, ok := s.BindGroupFromVarName(1, "draw")
	assert.True(t, ok)
	assert.Equal(t, 1, binding)
	_, ok = s.BindGroupFromVarName(1, "missing")
	assert.False(t, ok)
}

func TestNewShaderMissingEntryPoint(t *testing.T) {
	_, err := NewShader("broken", ShaderTypeFragment, testVertexSource)
	assert.Error(t, err)
}

func TestParseAnnotations(t *testing.T) {
	annotations := parseAnnotations(`
//@oxy:instance
// plain comment
struct A { @location(0) x: f32, }
//@oxy:bogus
struct B { @location(1) y: f32, }
`)
	require.Len(t, annotations, 1)
	assert.Equal(t, AnnotationTypeInstance, annotations[0].Type)
	assert.Equal(t, map[string]bool{"A": true}, instanceStructs(annotations))
}

func TestMergeBindGroupLayouts(t *testing.T) {
	vertex := map[int]wgpu.BindGroupLayoutDescriptor{
		0: {Entries: []wgpu.BindGroupLayoutEntry{{Binding: 0, Visibility: wgpu.ShaderStageVertex}}},
	}
	fragment := map[int]wgpu.BindGroupLayoutDescriptor{
		0: {Entries: []wgpu.BindGroupLayoutEntry{{Binding: 0, Visibility: wgpu.ShaderStageFragment}, {Binding: 1, Visibility: wgpu.ShaderStageFragment}}},
	}

	merged := MergeBindGroupLayouts(vertex, fragment)
	require.Len(t, merged[0].Entries, 2)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, merged[0].Entries[0].Visibility)
	assert.Equal(t, wgpu.ShaderStageVertex, vertex[0].Entries[0].Visibility)
}
