package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-skin/engine/model"
)

// influence is one joint weight of a vertex, addressed by remap slot.
type influence struct {
	slot   uint16
	weight float32
}

// vertexInfluences holds a vertex's influences sorted by decreasing weight and normalized to
// sum to one.
type vertexInfluences struct {
	count int
	inf   [model.MaxInfluences]influence
}

// partBuilder collects the vertices of one influence count. Source vertices are copied on
// first use, so a vertex shared by triangles landing in different parts is duplicated.
type partBuilder struct {
	part       model.Part
	influences int
	remap      map[uint32]uint32
}

func newPartBuilder(influences int) *partBuilder {
	return &partBuilder{influences: influences, remap: make(map[uint32]uint32)}
}

func (b *partBuilder) vertex(v uint32, data *gltfPrimitiveData, vi *vertexInfluences) uint32 {
	if idx, ok := b.remap[v]; ok {
		return idx
	}
	idx := uint32(b.part.VertexCount())
	b.remap[v] = idx

	p := &b.part
	p.Positions = append(p.Positions, data.positions[v][:]...)
	if data.normals != nil {
		p.Normals = append(p.Normals, data.normals[v][:]...)
	}
	if data.tangents != nil {
		p.Tangents = append(p.Tangents, data.tangents[v][:]...)
	}
	if data.uvs != nil {
		p.UVs = append(p.UVs, data.uvs[v][:]...)
	}
	if data.colors != nil {
		p.Colors = append(p.Colors, data.colors[v][:]...)
	}

	// Vertices with fewer influences than the part are padded with zero weights on their
	// strongest slot. The padded weights come last, so the implicit weight stays correct.
	for k := range b.influences {
		in := vi.inf[0]
		if k < vi.count {
			in = vi.inf[k]
		} else {
			in.weight = 0
		}
		p.JointIndices = append(p.JointIndices, in.slot)
		if k < b.influences-1 {
			p.JointWeights = append(p.JointWeights, in.weight)
		}
	}
	return idx
}

// buildSkinnedParts splits a primitive into parts by influence count. Each triangle goes to
// the part matching the largest influence count among its vertices. New skeleton joints are
// appended to the mesh's remaps, with their inverse bind matrix, in first use order.
//
// Parameters:
//   - data: the decoded primitive
//   - binding: the skin binding
//   - mesh: the mesh receiving remaps and inverse binds
//   - slots: skeleton joint to remap slot, shared across the mesh's primitives
//
// Returns:
//   - []model.Part: non-empty parts in increasing influence count
//   - error: error if a vertex references a joint outside the skin
func buildSkinnedParts(data *gltfPrimitiveData, binding *gltfSkinBinding, mesh *model.Mesh, slots map[int]uint16) ([]model.Part, error) {
	infl := make([]vertexInfluences, len(data.positions))
	for v := range infl {
		vi, err := gatherInfluences(data.joints[v], data.weights[v], binding, mesh, slots)
		if err != nil {
			return nil, fmt.Errorf("vertex %d: %w", v, err)
		}
		infl[v] = vi
	}

	var builders [model.MaxInfluences + 1]*partBuilder
	for t := 0; t < len(data.indices); t += 3 {
		tri := data.indices[t : t+3]
		k := max(infl[tri[0]].count, infl[tri[1]].count, infl[tri[2]].count)
		if builders[k] == nil {
			builders[k] = newPartBuilder(k)
		}
		b := builders[k]
		for _, v := range tri {
			b.part.Indices = append(b.part.Indices, b.vertex(v, data, &infl[v]))
		}
	}

	var parts []model.Part
	for _, b := range builders {
		if b != nil && !b.part.Empty() {
			parts = append(parts, b.part)
		}
	}
	return parts, nil
}

// gatherInfluences merges duplicate joints, drops non-positive weights, keeps the strongest
// MaxInfluences and renormalizes. A vertex with no positive weight is bound rigidly to its
// first joint.
func gatherInfluences(joints [4]uint16, weights [4]float32, binding *gltfSkinBinding, mesh *model.Mesh, slots map[int]uint16) (vertexInfluences, error) {
	var vi vertexInfluences

	add := func(skinJoint uint16, w float32) error {
		if int(skinJoint) >= len(binding.skinJoint) {
			return fmt.Errorf("joint %d outside skin of %d joints", skinJoint, len(binding.skinJoint))
		}
		slot := remapSlot(int(skinJoint), binding, mesh, slots)
		for i := range vi.count {
			if vi.inf[i].slot == slot {
				vi.inf[i].weight += w
				return nil
			}
		}
		vi.inf[vi.count] = influence{slot: slot, weight: w}
		vi.count++
		return nil
	}

	for c := range weights {
		if !(weights[c] > 0) {
			continue
		}
		if err := add(joints[c], weights[c]); err != nil {
			return vi, err
		}
	}
	if vi.count == 0 {
		if err := add(joints[0], 1); err != nil {
			return vi, err
		}
	}

	// Insertion sort, strongest first.
	for i := 1; i < vi.count; i++ {
		for j := i; j > 0 && vi.inf[j].weight > vi.inf[j-1].weight; j-- {
			vi.inf[j], vi.inf[j-1] = vi.inf[j-1], vi.inf[j]
		}
	}

	sum := float32(0)
	for i := range vi.count {
		sum += vi.inf[i].weight
	}
	for i := range vi.count {
		vi.inf[i].weight /= sum
	}
	return vi, nil
}

func remapSlot(skinJoint int, binding *gltfSkinBinding, mesh *model.Mesh, slots map[int]uint16) uint16 {
	joint := binding.skinJoint[skinJoint]
	if slot, ok := slots[joint]; ok {
		return slot
	}
	slot := uint16(len(mesh.JointRemaps))
	slots[joint] = slot
	mesh.JointRemaps = append(mesh.JointRemaps, uint16(joint))
	mesh.InverseBindPoses = append(mesh.InverseBindPoses, binding.inverseBinds[skinJoint])
	return slot
}
