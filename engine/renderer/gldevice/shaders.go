package gldevice

import (
	_ "embed"
)

var (
	//go:embed shaders/skinned_vtf.vert
	skinnedVtfSource string

	//go:embed shaders/mesh.vert
	meshSource string

	//go:embed shaders/mesh_instanced.vert
	meshInstancedSource string

	//go:embed shaders/shade.frag
	shadeSource string
)
