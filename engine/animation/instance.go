package animation

import (
	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Instance is one animated character: its playhead, placement in the world and the per-frame
// buffers produced by sampling. Buffers are allocated once for the skeleton size.
type Instance struct {
	// ID identifies the instance for removal and logging.
	ID uuid.UUID

	// Controller drives the instance's playhead.
	Controller *PlaybackController

	// World places the instance in the scene.
	World mgl32.Mat4

	context *SamplingContext
	locals  []SoaTransform
	models  []mgl32.Mat4
}

// NewInstance allocates sampling buffers for skel and places the instance at world.
func NewInstance(skel *Skeleton, world mgl32.Mat4) *Instance {
	in := &Instance{
		ID:         uuid.New(),
		Controller: NewPlaybackController(),
		World:      world,
		context:    NewSamplingContext(skel.NumJoints()),
		locals:     make([]SoaTransform, skel.NumSoaJoints()),
		models:     make([]mgl32.Mat4, skel.NumJoints()),
	}
	copy(in.locals, skel.RestPoses())
	_ = LocalToModel(skel, in.locals, in.models)
	return in
}

// Update advances the playhead and recomputes the model-space pose.
//
// Parameters:
//   - skel: the skeleton the instance was created for
//   - anim: the animation to play
//   - dt: elapsed time in seconds
//
// Returns:
//   - error: a sampling or composition error
func (in *Instance) Update(skel *Skeleton, anim *Animation, dt float32) error {
	in.Controller.Update(anim, dt)
	if err := Sample(skel, anim, in.Controller.TimeRatio(), in.context, in.locals); err != nil {
		return err
	}
	return LocalToModel(skel, in.locals, in.models)
}

// Locals returns the last sampled local transforms.
func (in *Instance) Locals() []SoaTransform {
	return in.locals
}

// Models returns the last computed model-space joint matrices.
func (in *Instance) Models() []mgl32.Mat4 {
	return in.models
}

// Bounds returns the world-space box enclosing the instance's joints.
func (in *Instance) Bounds() common.Box {
	b := common.EmptyBox()
	for _, m := range in.models {
		b.Extend(common.TransformPoint(in.World, m.Col(3).Vec3()))
	}
	return b
}
