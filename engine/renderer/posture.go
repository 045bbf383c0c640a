package renderer

import (
	"github.com/Carmen-Shannon/oxy-skin/engine/animation"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// bonePiece proportions along the bone axis, as fractions of the bone length.
const (
	boneWaist  = 0.2
	boneRadius = 0.1
)

// newBonePiece builds an octahedral bone piece pointing down +X from the origin to (1, 0, 0),
// widest at boneWaist. Every face has its own vertices so normals stay flat.
func newBonePiece() *model.MeshAsset {
	tail := mgl32.Vec3{0, 0, 0}
	head := mgl32.Vec3{1, 0, 0}
	ring := [4]mgl32.Vec3{
		{boneWaist, boneRadius, boneRadius},
		{boneWaist, boneRadius, -boneRadius},
		{boneWaist, -boneRadius, -boneRadius},
		{boneWaist, -boneRadius, boneRadius},
	}

	layout := model.DefaultVertexLayout
	vertices := make([]float32, 0, 24*layout.Stride)
	indices := make([]uint32, 0, 24)
	face := func(a, b, c mgl32.Vec3) {
		n := b.Sub(a).Cross(c.Sub(a)).Normalize()
		for _, p := range [3]mgl32.Vec3{a, b, c} {
			indices = append(indices, uint32(len(vertices)/layout.Stride))
			vertices = append(vertices, p[0], p[1], p[2], n[0], n[1], n[2], 0, 0)
		}
	}
	for i := range ring {
		a, b := ring[i], ring[(i+1)%len(ring)]
		face(tail, a, b)
		face(head, b, a)
	}

	return &model.MeshAsset{
		Name:     "bone_piece",
		Layout:   layout,
		Vertices: vertices,
		Indices:  indices,
		Parts: []model.MeshPart{{
			Name:             "bone",
			IsStaticBody:     true,
			SceneNodeIndex:   0,
			SkinnedMeshIndex: -1,
			IndexCount:       len(indices),
			MaterialIndex:    -1,
		}},
		SceneNodes: []model.SceneNode{{Name: "root", Local: mgl32.Ident4(), Parent: -1}},
	}
}

// boneMatrices appends to out[:0] one world matrix per parented joint, mapping the bone piece
// from the parent joint origin to the child joint origin. Zero length bones are skipped.
func boneMatrices(skel *animation.Skeleton, models []mgl32.Mat4, world mgl32.Mat4, out []mgl32.Mat4) []mgl32.Mat4 {
	out = out[:0]
	parents := skel.JointParents()
	n := min(len(parents), len(models))
	for i := range n {
		parent := int(parents[i])
		if parent == animation.NoParent || parent >= n {
			continue
		}

		from := models[parent].Col(3).Vec3()
		to := models[i].Col(3).Vec3()
		dir := to.Sub(from)
		length := dir.Len()
		if length < 1e-6 {
			continue
		}

		x := dir.Mul(1 / length)
		up := mgl32.Vec3{0, 1, 0}
		if abs32(x.Dot(up)) > 0.99 {
			up = mgl32.Vec3{0, 0, 1}
		}
		z := x.Cross(up).Normalize()
		y := z.Cross(x)

		bone := mgl32.Mat4FromCols(
			x.Mul(length).Vec4(0),
			y.Mul(length).Vec4(0),
			z.Mul(length).Vec4(0),
			from.Vec4(1),
		)
		out = append(out, world.Mul4(bone))
	}
	return out
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
