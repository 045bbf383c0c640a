package shader

import (
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// roundUpAlign rounds value up to the next multiple of a power of two alignment.
func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// primitiveLayout returns the host-shareable size and alignment of a WGSL scalar, vector or
// matrix type. Both the templated (vec3<f32>) and the shorthand (vec3f) spellings are
// accepted; f16 is not.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
func primitiveLayout(typeName string) (wgslTypeLayout, bool) {
	switch typeName {
	case "f32", "i32", "u32", "bool":
		return wgslTypeLayout{size: 4, align: 4}, true
	}

	base, param := splitTypeParams(typeName)
	if param == "" && len(base) > 0 {
		switch base[len(base)-1] {
		case 'f', 'i', 'u':
			base, param = base[:len(base)-1], "32"
		}
	}
	if param != "" && param != "f32" && param != "i32" && param != "u32" && param != "32" {
		return wgslTypeLayout{}, false
	}

	vec := func(n uint64) wgslTypeLayout {
		align := uint64(8)
		if n > 2 {
			align = 16
		}
		return wgslTypeLayout{size: 4 * n, align: align}
	}

	switch {
	case len(base) == 4 && strings.HasPrefix(base, "vec"):
		n := uint64(base[3] - '0')
		if n < 2 || n > 4 {
			return wgslTypeLayout{}, false
		}
		return vec(n), true

	case len(base) == 6 && strings.HasPrefix(base, "mat") && base[4] == 'x':
		cols, rows := uint64(base[3]-'0'), uint64(base[5]-'0')
		if cols < 2 || cols > 4 || rows < 2 || rows > 4 {
			return wgslTypeLayout{}, false
		}
		column := vec(rows)
		return wgslTypeLayout{size: cols * roundUpAlign(column.align, column.size), align: column.align}, true
	}
	return wgslTypeLayout{}, false
}

// typeSizer resolves buffer type sizes against the structs declared in one shader.
type typeSizer struct {
	structs  map[string]parsedStruct
	resolved map[string]wgslTypeLayout
	visiting map[string]bool
}

func newTypeSizer(structs []parsedStruct) *typeSizer {
	ts := &typeSizer{
		structs:  make(map[string]parsedStruct, len(structs)),
		resolved: make(map[string]wgslTypeLayout),
		visiting: make(map[string]bool),
	}
	for _, ps := range structs {
		ts.structs[ps.name] = ps
	}
	return ts
}

// layout returns the size and alignment of typeName. A runtime-sized array counts as one
// element, and a struct ending in one counts its fixed prefix, so the result is the smallest
// binding the shader can use.
func (ts *typeSizer) layout(typeName string) (wgslTypeLayout, bool) {
	if l, ok := primitiveLayout(typeName); ok {
		return l, true
	}
	if l, ok := ts.resolved[typeName]; ok {
		return l, true
	}

	if strings.HasPrefix(typeName, "array<") && strings.HasSuffix(typeName, ">") {
		elemType, count, fixed := strings.Cut(typeName[len("array<"):len(typeName)-1], ",")
		elem, ok := ts.layout(strings.TrimSpace(elemType))
		if !ok {
			return wgslTypeLayout{}, false
		}
		stride := roundUpAlign(elem.align, elem.size)
		if !fixed {
			return wgslTypeLayout{size: stride, align: elem.align}, true
		}
		n, err := strconv.ParseUint(strings.TrimSpace(count), 10, 64)
		if err != nil {
			return wgslTypeLayout{}, false
		}
		return wgslTypeLayout{size: n * stride, align: elem.align}, true
	}

	ps, ok := ts.structs[typeName]
	if !ok || ts.visiting[typeName] {
		return wgslTypeLayout{}, false
	}
	ts.visiting[typeName] = true
	defer delete(ts.visiting, typeName)

	var offset uint64
	align := uint64(1)
	for i, f := range ps.fields {
		if f.isBuiltin {
			continue
		}
		fl, ok := ts.layout(f.typeName)
		if !ok {
			return wgslTypeLayout{}, false
		}
		align = max(align, fl.align)
		offset = roundUpAlign(fl.align, offset)
		if i == len(ps.fields)-1 && isRuntimeArray(f.typeName) && offset > 0 {
			break
		}
		offset += fl.size
	}
	l := wgslTypeLayout{size: roundUpAlign(align, offset), align: align}
	ts.resolved[typeName] = l
	return l, true
}

func isRuntimeArray(typeName string) bool {
	return strings.HasPrefix(typeName, "array<") && !strings.Contains(typeName, ",")
}

// classifyResource builds the layout entry of one resource declaration. Declarations with an
// address space are buffers; the rest are textures or samplers, told apart by type name.
func classifyResource(binding uint32, visibility wgpu.ShaderStage, addressSpace, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: visibility}

	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case strings.HasPrefix(addressSpace, "storage") && strings.Contains(addressSpace, "read_write"):
		entry.Buffer.Type = wgpu.BufferBindingTypeStorage
	case strings.HasPrefix(addressSpace, "storage"):
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
	case typeName == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case strings.HasPrefix(typeName, "texture_"):
		base, param := splitTypeParams(typeName)
		if dim, ok := wgslSampledTextureMap[base]; ok {
			entry.Texture.ViewDimension = dim
		}
		if st, ok := wgslSampleTypeMap[param]; ok {
			entry.Texture.SampleType = st
		}
	}
	return entry
}

// splitTypeParams splits "texture_2d<f32>" into "texture_2d" and "f32". Types without
// parameters come back unchanged with an empty parameter.
func splitTypeParams(typeName string) (base string, params string) {
	before, after, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	return before, strings.TrimSpace(strings.TrimSuffix(after, ">"))
}

// stripComments removes line comments and nested block comments in a single pass.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))

	depth := 0
	for i := 0; i < len(source); i++ {
		switch {
		case strings.HasPrefix(source[i:], "/*"):
			depth++
			i++
		case depth > 0 && strings.HasPrefix(source[i:], "*/"):
			depth--
			i++
		case depth > 0:
			if source[i] == '\n' {
				sb.WriteByte('\n')
			}
		case strings.HasPrefix(source[i:], "//"):
			end := strings.IndexByte(source[i:], '\n')
			if end < 0 {
				return sb.String()
			}
			i += end - 1
		default:
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}

// isVertexInputStruct reports whether ps only carries @location fields. Vertex outputs mix
// in @builtin(position) and are skipped.
func isVertexInputStruct(ps parsedStruct) bool {
	located := false
	for _, f := range ps.fields {
		if f.isBuiltin {
			return false
		}
		located = located || f.location >= 0
	}
	return located
}

// buildVertexBufferLayout packs the fields of a vertex input struct tightly in declaration
// order. It fails on field types that have no vertex format.
func buildVertexBufferLayout(ps parsedStruct) (wgpu.VertexBufferLayout, bool) {
	layout := wgpu.VertexBufferLayout{
		StepMode:   wgpu.VertexStepModeVertex,
		Attributes: make([]wgpu.VertexAttribute, 0, len(ps.fields)),
	}
	for _, f := range ps.fields {
		info, ok := wgslVertexFormatMap[f.typeName]
		if !ok {
			return wgpu.VertexBufferLayout{}, false
		}
		layout.Attributes = append(layout.Attributes, wgpu.VertexAttribute{
			Format:         info.format,
			Offset:         layout.ArrayStride,
			ShaderLocation: uint32(f.location),
		})
		layout.ArrayStride += info.size
	}
	return layout, true
}

// splitAtTopLevelCommas splits a struct body at commas outside angle brackets, keeping
// types such as array<mat4x4<f32>, 4> whole.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, c := range s {
		switch {
		case c == '<':
			depth++
		case c == '>' && depth > 0:
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
