package animation

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// LocalToModelJob converts local joint transforms into model-space matrices with a single
// top-down pass, relying on the skeleton's parent-before-child order.
type LocalToModelJob struct {
	// Skeleton provides the hierarchy. Required.
	Skeleton *Skeleton

	// Root, when set, is applied to every root joint. Defaults to identity.
	Root *mgl32.Mat4

	// From is the joint whose subtree is updated. NoParent updates the whole hierarchy.
	// Joints outside the subtree keep their current Output values and are used as parents.
	From int

	// FromExcluded leaves From itself untouched and only updates its descendants.
	FromExcluded bool

	// To is the last joint index processed. NoParent, or any index past the end, processes
	// every joint.
	To int

	// Input holds local transforms, at least Skeleton.NumSoaJoints() entries.
	Input []SoaTransform

	// Output receives model-space matrices, at least Skeleton.NumJoints() entries.
	Output []mgl32.Mat4
}

// Validate checks the job's inputs without running it.
func (j *LocalToModelJob) Validate() error {
	if j.Skeleton == nil {
		return fmt.Errorf("%w: local to model job has no skeleton", ErrInvalidJob)
	}
	if len(j.Input) < j.Skeleton.NumSoaJoints() {
		return fmt.Errorf("%w: need %d input soa transforms, got %d", ErrOutputTooSmall, j.Skeleton.NumSoaJoints(), len(j.Input))
	}
	if len(j.Output) < j.Skeleton.NumJoints() {
		return fmt.Errorf("%w: need %d output matrices, got %d", ErrOutputTooSmall, j.Skeleton.NumJoints(), len(j.Output))
	}
	if j.From < NoParent || j.From >= max(j.Skeleton.NumJoints(), 1) {
		return fmt.Errorf("%w: from joint %d out of range", ErrInvalidJob, j.From)
	}
	return nil
}

// Run executes the job.
func (j *LocalToModelJob) Run() error {
	if err := j.Validate(); err != nil {
		return err
	}

	root := mgl32.Ident4()
	if j.Root != nil {
		root = *j.Root
	}

	parents := j.Skeleton.JointParents()
	end := min(j.To+1, len(parents))
	if j.To < 0 {
		end = len(parents)
	}

	if j.From == NoParent {
		for i := 0; i < end; i++ {
			local := JointTransform(j.Input, i).Matrix()
			if p := parents[i]; p == NoParent {
				j.Output[i] = root.Mul4(local)
			} else {
				j.Output[i] = j.Output[p].Mul4(local)
			}
		}
		return nil
	}

	// Subtree membership for a partial update. MaxJoints bits fit on the stack.
	var inSubtree [MaxJoints / 64]uint64
	mark := func(i int) { inSubtree[i/64] |= 1 << (i % 64) }
	marked := func(i int) bool { return inSubtree[i/64]&(1<<(i%64)) != 0 }

	mark(j.From)
	for i := j.From; i < end; i++ {
		p := int(parents[i])
		if i != j.From {
			if p == NoParent || !marked(p) {
				continue
			}
			mark(i)
		} else if j.FromExcluded {
			continue
		}

		local := JointTransform(j.Input, i).Matrix()
		if p == NoParent {
			j.Output[i] = root.Mul4(local)
		} else {
			j.Output[i] = j.Output[p].Mul4(local)
		}
	}
	return nil
}

// LocalToModel composes the whole hierarchy: model[root] = local[root] and
// model[i] = model[parent[i]] * local[i].
//
// Parameters:
//   - skel: the hierarchy
//   - locals: local transforms in SoA layout
//   - out: receives one model-space matrix per joint
//
// Returns:
//   - error: an error if the spans are too small
func LocalToModel(skel *Skeleton, locals []SoaTransform, out []mgl32.Mat4) error {
	job := LocalToModelJob{
		Skeleton: skel,
		From:     NoParent,
		To:       NoParent,
		Input:    locals,
		Output:   out,
	}
	return job.Run()
}
