package wgpudevice

import (
	_ "embed"
)

var (
	//go:embed shaders/skinned_vtf.wgsl
	skinnedVtfSource string

	//go:embed shaders/mesh.wgsl
	meshSource string

	//go:embed shaders/mesh_instanced.wgsl
	meshInstancedSource string

	//go:embed shaders/shade.wgsl
	shadeSource string
)
