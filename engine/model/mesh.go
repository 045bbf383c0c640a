package model

import (
	"fmt"
)

// VertexCount returns the number of vertices of the part.
func (p *Part) VertexCount() int {
	return len(p.Positions) / 3
}

// InfluencesCount returns how many joints influence each vertex of the part.
func (p *Part) InfluencesCount() int {
	vc := p.VertexCount()
	if vc == 0 {
		return 0
	}
	return len(p.JointIndices) / vc
}

// Empty reports whether the part has nothing to draw.
func (p *Part) Empty() bool {
	return p.VertexCount() == 0 || len(p.Indices) == 0
}

func (p *Part) validate(slots int) error {
	vc := p.VertexCount()
	if len(p.Positions) != vc*3 {
		return fmt.Errorf("positions length %d is not a multiple of 3", len(p.Positions))
	}
	if len(p.Normals) != 0 && len(p.Normals) != vc*3 {
		return fmt.Errorf("normals length %d, want %d", len(p.Normals), vc*3)
	}
	if len(p.Tangents) != 0 && len(p.Tangents) != vc*4 {
		return fmt.Errorf("tangents length %d, want %d", len(p.Tangents), vc*4)
	}
	if len(p.UVs) != 0 && len(p.UVs) != vc*2 {
		return fmt.Errorf("uvs length %d, want %d", len(p.UVs), vc*2)
	}
	if len(p.Colors) != 0 && len(p.Colors) != vc*4 {
		return fmt.Errorf("colors length %d, want %d", len(p.Colors), vc*4)
	}

	influences := p.InfluencesCount()
	if vc > 0 && len(p.JointIndices) != vc*influences {
		return fmt.Errorf("joint indices length %d is not a multiple of %d vertices", len(p.JointIndices), vc)
	}
	if slots > 0 && !p.Empty() && influences < 1 {
		return fmt.Errorf("skinned part of %d vertices has no joint influences", vc)
	}
	if influences > MaxInfluences {
		return fmt.Errorf("%d influences per vertex exceeds maximum of %d", influences, MaxInfluences)
	}
	if influences > 0 && len(p.JointWeights) != vc*(influences-1) {
		return fmt.Errorf("joint weights length %d, want %d", len(p.JointWeights), vc*(influences-1))
	}
	for i, j := range p.JointIndices {
		if int(j) >= slots {
			return fmt.Errorf("joint index %d at %d exceeds %d remap slots", j, i, slots)
		}
	}
	for i, idx := range p.Indices {
		if int(idx) >= vc {
			return fmt.Errorf("triangle index %d at %d exceeds %d vertices", idx, i, vc)
		}
	}
	return nil
}

// VertexCount returns the number of vertices across all parts.
func (m *Mesh) VertexCount() int {
	n := 0
	for i := range m.Parts {
		n += m.Parts[i].VertexCount()
	}
	return n
}

// TriangleIndexCount returns the number of triangle indices across all parts.
func (m *Mesh) TriangleIndexCount() int {
	n := 0
	for i := range m.Parts {
		n += len(m.Parts[i].Indices)
	}
	return n
}

// Skinned reports whether the mesh has joint remaps to skin with.
func (m *Mesh) Skinned() bool {
	return len(m.JointRemaps) > 0
}

// NumJoints returns the number of skinning matrix slots the mesh needs.
func (m *Mesh) NumJoints() int {
	return len(m.JointRemaps)
}

// HighestJointIndex returns the highest skeleton joint referenced by the remaps, or -1.
func (m *Mesh) HighestJointIndex() int {
	highest := -1
	for _, j := range m.JointRemaps {
		highest = max(highest, int(j))
	}
	return highest
}

// MaxInfluencesCount returns the largest per-vertex influence count among the parts.
func (m *Mesh) MaxInfluencesCount() int {
	n := 0
	for i := range m.Parts {
		n = max(n, m.Parts[i].InfluencesCount())
	}
	return n
}

// Validate checks the mesh against a skeleton of numJoints joints.
//
// Parameters:
//   - numJoints: joint count of the skeleton driving the mesh
//
// Returns:
//   - error: ErrInvalidMesh describing the first broken invariant
func (m *Mesh) Validate(numJoints int) error {
	if len(m.JointRemaps) != len(m.InverseBindPoses) {
		return fmt.Errorf("%w: %q has %d joint remaps and %d inverse bind poses", ErrInvalidMesh, m.Name, len(m.JointRemaps), len(m.InverseBindPoses))
	}
	if highest := m.HighestJointIndex(); highest >= numJoints {
		return fmt.Errorf("%w: %q remaps to joint %d, skeleton has %d joints", ErrInvalidMesh, m.Name, highest, numJoints)
	}
	for i := range m.Parts {
		if err := m.Parts[i].validate(len(m.JointRemaps)); err != nil {
			return fmt.Errorf("%w: %q part %d: %v", ErrInvalidMesh, m.Name, i, err)
		}
	}
	return nil
}

// Influences returns the skinning slots and weights of vertex v padded to MaxInfluences. The
// implicit last weight is made explicit and unused influences get slot 0 with weight 0, so a
// shader can always blend four matrices.
//
// Parameters:
//   - v: the vertex index
//
// Returns:
//   - [MaxInfluences]uint16: remap slots
//   - [MaxInfluences]float32: weights summing to one
func (p *Part) Influences(v int) ([MaxInfluences]uint16, [MaxInfluences]float32) {
	var joints [MaxInfluences]uint16
	var weights [MaxInfluences]float32

	k := p.InfluencesCount()
	if k == 0 {
		return joints, weights
	}
	copy(joints[:], p.JointIndices[v*k:v*k+k])

	last := float32(1)
	for i := range k - 1 {
		w := p.JointWeights[v*(k-1)+i]
		weights[i] = w
		last -= w
	}
	weights[k-1] = last
	return joints, weights
}
