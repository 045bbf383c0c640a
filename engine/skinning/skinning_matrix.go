package skinning

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// BuildSkinningMatrices maps skeleton-indexed model-space matrices to the mesh's remap slots:
// out[j] = models[mesh.JointRemaps[j]] * mesh.InverseBindPoses[j].
//
// Parameters:
//   - models: model-space joint matrices of one instance, indexed by skeleton joint
//   - mesh: the mesh whose remaps and inverse bind poses are applied
//   - out: destination, at least mesh.NumJoints() matrices
//
// Returns:
//   - error: ErrRemapOutOfRange for a remap past len(models), ErrInvalidJob for a short out
func BuildSkinningMatrices(models []mgl32.Mat4, mesh *model.Mesh, out []mgl32.Mat4) error {
	if len(out) < len(mesh.JointRemaps) {
		return fmt.Errorf("%w: need %d skinning matrices, got %d", ErrInvalidJob, len(mesh.JointRemaps), len(out))
	}
	if len(mesh.InverseBindPoses) < len(mesh.JointRemaps) {
		return fmt.Errorf("%w: %q has %d inverse bind poses for %d remaps", ErrInvalidJob, mesh.Name, len(mesh.InverseBindPoses), len(mesh.JointRemaps))
	}

	for j, joint := range mesh.JointRemaps {
		if int(joint) >= len(models) {
			return fmt.Errorf("%w: slot %d maps to joint %d of %d", ErrRemapOutOfRange, j, joint, len(models))
		}
		out[j] = models[joint].Mul4(mesh.InverseBindPoses[j])
	}
	return nil
}
