package skinning

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// Job skins a run of vertices on the CPU. Every vertex is transformed by the weighted sum of
// its joints' skinning matrices, with the last weight implied by the others. Strides are in
// floats; a zero stride defaults to the attribute's tight packing.
type Job struct {
	// VertexCount is the number of vertices to skin.
	VertexCount int

	// Influences is the number of joints per vertex, 1 to model.MaxInfluences.
	Influences int

	// JointMatrices are the skinning matrices indexed by JointIndices.
	JointMatrices []mgl32.Mat4

	// JointInverseTransposes, if set, transform normals and tangents instead of
	// JointMatrices. Needed when skinning matrices carry non-uniform scale.
	JointInverseTransposes []mgl32.Mat4

	// JointIndices holds Influences indices per vertex.
	JointIndices []uint16

	// JointWeights holds Influences-1 weights per vertex.
	JointWeights []float32

	InPositions     []float32
	InPositionsStr  int
	OutPositions    []float32
	OutPositionsStr int

	// Normals are optional. When InNormals is set, OutNormals must be too.
	InNormals     []float32
	InNormalsStr  int
	OutNormals    []float32
	OutNormalsStr int

	// Tangents are optional and carry a handedness w that is copied through.
	InTangents     []float32
	InTangentsStr  int
	OutTangents    []float32
	OutTangentsStr int
}

func spanFits(span []float32, count, stride, width int) bool {
	if count == 0 {
		return true
	}
	return stride >= width && len(span) >= (count-1)*stride+width
}

func (j *Job) defaults() {
	if j.InPositionsStr == 0 {
		j.InPositionsStr = 3
	}
	if j.OutPositionsStr == 0 {
		j.OutPositionsStr = 3
	}
	if j.InNormalsStr == 0 {
		j.InNormalsStr = 3
	}
	if j.OutNormalsStr == 0 {
		j.OutNormalsStr = 3
	}
	if j.InTangentsStr == 0 {
		j.InTangentsStr = 4
	}
	if j.OutTangentsStr == 0 {
		j.OutTangentsStr = 4
	}
}

// Validate checks that every span is large enough for VertexCount vertices and that every
// joint index addresses a matrix.
//
// Returns:
//   - error: ErrInvalidJob describing the first malformed span
func (j *Job) Validate() error {
	j.defaults()
	n := j.VertexCount

	if j.Influences < 1 || j.Influences > model.MaxInfluences {
		return fmt.Errorf("%w: %d influences, want 1 to %d", ErrInvalidJob, j.Influences, model.MaxInfluences)
	}
	if n < 0 {
		return fmt.Errorf("%w: negative vertex count", ErrInvalidJob)
	}
	if len(j.JointIndices) < n*j.Influences {
		return fmt.Errorf("%w: %d joint indices for %d vertices", ErrInvalidJob, len(j.JointIndices), n)
	}
	if len(j.JointWeights) < n*(j.Influences-1) {
		return fmt.Errorf("%w: %d joint weights for %d vertices", ErrInvalidJob, len(j.JointWeights), n)
	}
	if !spanFits(j.InPositions, n, j.InPositionsStr, 3) || !spanFits(j.OutPositions, n, j.OutPositionsStr, 3) {
		return fmt.Errorf("%w: position spans too small for %d vertices", ErrInvalidJob, n)
	}
	if j.InNormals != nil && (!spanFits(j.InNormals, n, j.InNormalsStr, 3) || !spanFits(j.OutNormals, n, j.OutNormalsStr, 3)) {
		return fmt.Errorf("%w: normal spans too small for %d vertices", ErrInvalidJob, n)
	}
	if j.InTangents != nil && (!spanFits(j.InTangents, n, j.InTangentsStr, 4) || !spanFits(j.OutTangents, n, j.OutTangentsStr, 4)) {
		return fmt.Errorf("%w: tangent spans too small for %d vertices", ErrInvalidJob, n)
	}
	if j.JointInverseTransposes != nil && len(j.JointInverseTransposes) < len(j.JointMatrices) {
		return fmt.Errorf("%w: %d inverse transposes for %d joint matrices", ErrInvalidJob, len(j.JointInverseTransposes), len(j.JointMatrices))
	}
	for i, idx := range j.JointIndices[:n*j.Influences] {
		if int(idx) >= len(j.JointMatrices) {
			return fmt.Errorf("%w: joint index %d at %d exceeds %d matrices", ErrInvalidJob, idx, i, len(j.JointMatrices))
		}
	}
	return nil
}

// Run validates and executes the job.
//
// Returns:
//   - error: ErrInvalidJob if the job is malformed, in which case no output is written
func (j *Job) Run() error {
	if err := j.Validate(); err != nil {
		return err
	}

	normalMatrices := j.JointMatrices
	if j.JointInverseTransposes != nil {
		normalMatrices = j.JointInverseTransposes
	}

	for v := range j.VertexCount {
		indices := j.JointIndices[v*j.Influences : (v+1)*j.Influences]
		weights := j.JointWeights[v*(j.Influences-1) : (v+1)*(j.Influences-1)]

		skin := blend(j.JointMatrices, indices, weights)

		ip := j.InPositions[v*j.InPositionsStr:]
		p := skin.Mul4x1(mgl32.Vec4{ip[0], ip[1], ip[2], 1})
		op := j.OutPositions[v*j.OutPositionsStr:]
		op[0], op[1], op[2] = p[0], p[1], p[2]

		if j.InNormals == nil && j.InTangents == nil {
			continue
		}
		nskin := skin
		if j.JointInverseTransposes != nil {
			nskin = blend(normalMatrices, indices, weights)
		}

		if j.InNormals != nil {
			in := j.InNormals[v*j.InNormalsStr:]
			n := nskin.Mul4x1(mgl32.Vec4{in[0], in[1], in[2], 0})
			on := j.OutNormals[v*j.OutNormalsStr:]
			on[0], on[1], on[2] = n[0], n[1], n[2]
		}
		if j.InTangents != nil {
			it := j.InTangents[v*j.InTangentsStr:]
			t := nskin.Mul4x1(mgl32.Vec4{it[0], it[1], it[2], 0})
			ot := j.OutTangents[v*j.OutTangentsStr:]
			ot[0], ot[1], ot[2], ot[3] = t[0], t[1], t[2], it[3]
		}
	}
	return nil
}

// blend sums the weighted joint matrices of one vertex. The last weight is one minus the
// sum of the stored weights.
func blend(matrices []mgl32.Mat4, indices []uint16, weights []float32) mgl32.Mat4 {
	if len(indices) == 1 {
		return matrices[indices[0]]
	}
	var out mgl32.Mat4
	last := float32(1)
	for k, w := range weights {
		out = out.Add(matrices[indices[k]].Mul(w))
		last -= w
	}
	return out.Add(matrices[indices[len(indices)-1]].Mul(last))
}

// SkinPart prepares a Job for one mesh part, writing into caller-owned position and normal
// buffers of 3 floats per vertex.
//
// Parameters:
//   - part: the part to skin
//   - matrices: skinning matrices indexed by the part's joint slots
//   - positions: output positions, at least 3*part.VertexCount() floats
//   - normals: output normals, ignored when the part has none
//
// Returns:
//   - error: ErrInvalidJob if the part and buffers do not fit together
func SkinPart(part *model.Part, matrices []mgl32.Mat4, positions, normals []float32) error {
	job := Job{
		VertexCount:   part.VertexCount(),
		Influences:    part.InfluencesCount(),
		JointMatrices: matrices,
		JointIndices:  part.JointIndices,
		JointWeights:  part.JointWeights,
		InPositions:   part.Positions,
		OutPositions:  positions,
	}
	if len(part.Normals) > 0 {
		job.InNormals = part.Normals
		job.OutNormals = normals
	}
	return job.Run()
}
