package animation

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Updater owns a set of instances sharing one skeleton and animation and advances them
// every frame. Instances are sampled in parallel on a worker pool; each instance owns its
// sampling context so workers share no mutable state.
type Updater interface {
	// Skeleton returns the skeleton every instance is built for.
	//
	// Returns:
	//   - *Skeleton: the shared skeleton
	Skeleton() *Skeleton

	// Animation returns the animation currently played by every instance.
	//
	// Returns:
	//   - *Animation: the shared animation
	Animation() *Animation

	// SetAnimation swaps the animation played by every instance.
	//
	// Parameters:
	//   - anim: an animation compatible with the skeleton
	//
	// Returns:
	//   - error: ErrTrackMismatch if anim does not fit the skeleton
	SetAnimation(anim *Animation) error

	// AddInstance creates an instance at the given world transform.
	//
	// Parameters:
	//   - world: the instance placement
	//
	// Returns:
	//   - *Instance: the new instance, already holding the rest pose
	AddInstance(world mgl32.Mat4) *Instance

	// RemoveInstance removes the instance with the given ID.
	//
	// Parameters:
	//   - id: the instance ID
	//
	// Returns:
	//   - bool: true if an instance was removed
	RemoveInstance(id uuid.UUID) bool

	// Instances returns the live instances in insertion order. The slice must not be modified.
	//
	// Returns:
	//   - []*Instance: the instances
	Instances() []*Instance

	// InstanceCount returns the number of live instances.
	//
	// Returns:
	//   - int: the instance count
	InstanceCount() int

	// Update advances every instance by dt and blocks until all are sampled.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	//
	// Returns:
	//   - error: the first sampling error, if any
	Update(dt float32) error

	// Bounds returns the world-space box enclosing every instance's joints.
	//
	// Returns:
	//   - common.Box: the scene bounds, invalid when there are no instances
	Bounds() common.Box

	// Close stops the worker pool.
	Close()
}

type updaterImpl struct {
	mu *sync.Mutex

	skeleton  *Skeleton
	animation *Animation
	instances []*Instance

	workers   int
	chunkSize int
	pool      worker.DynamicWorkerPool
	errs      []error
}

var _ Updater = &updaterImpl{}

// NewUpdater creates an updater for instances of skel playing anim.
//
// Parameters:
//   - skel: the shared skeleton
//   - anim: the initial animation, must match skel
//   - options: functional options to configure parallelism
//
// Returns:
//   - Updater: the updater
//   - error: ErrTrackMismatch if anim does not fit skel
func NewUpdater(skel *Skeleton, anim *Animation, options ...UpdaterBuilderOption) (Updater, error) {
	if err := CheckCompatible(skel, anim); err != nil {
		return nil, err
	}

	u := &updaterImpl{
		mu:        &sync.Mutex{},
		skeleton:  skel,
		animation: anim,
		workers:   1,
		chunkSize: 64,
	}
	for _, option := range options {
		option(u)
	}

	if u.workers > 1 {
		u.pool = worker.NewDynamicWorkerPool(u.workers, 256, 1*time.Second)
	}
	return u, nil
}

func (u *updaterImpl) Skeleton() *Skeleton {
	return u.skeleton
}

func (u *updaterImpl) Animation() *Animation {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.animation
}

func (u *updaterImpl) SetAnimation(anim *Animation) error {
	if err := CheckCompatible(u.skeleton, anim); err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.animation = anim
	return nil
}

func (u *updaterImpl) AddInstance(world mgl32.Mat4) *Instance {
	in := NewInstance(u.skeleton, world)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.instances = append(u.instances, in)
	return in
}

func (u *updaterImpl) RemoveInstance(id uuid.UUID) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	i := slices.IndexFunc(u.instances, func(in *Instance) bool { return in.ID == id })
	if i < 0 {
		return false
	}
	u.instances = slices.Delete(u.instances, i, i+1)
	return true
}

func (u *updaterImpl) Instances() []*Instance {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.instances
}

func (u *updaterImpl) InstanceCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.instances)
}

func (u *updaterImpl) Update(dt float32) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	n := len(u.instances)
	if n == 0 {
		return nil
	}

	if u.pool == nil || n <= u.chunkSize {
		for _, in := range u.instances {
			if err := in.Update(u.skeleton, u.animation, dt); err != nil {
				return fmt.Errorf("update instance %s: %w", in.ID, err)
			}
		}
		return nil
	}

	chunks := (n + u.chunkSize - 1) / u.chunkSize
	u.errs = common.Grow(u.errs, chunks)
	clear(u.errs)

	// The pool's own Wait blocks until workers idle out, so a WaitGroup is the frame barrier.
	var wg sync.WaitGroup
	for c := range chunks {
		start := c * u.chunkSize
		batch := u.instances[start:min(start+u.chunkSize, n)]
		skel, anim := u.skeleton, u.animation

		wg.Add(1)
		u.pool.SubmitTask(worker.Task{
			ID: c,
			Do: func() (any, error) {
				defer wg.Done()
				for _, in := range batch {
					if err := in.Update(skel, anim, dt); err != nil {
						u.errs[c] = fmt.Errorf("update instance %s: %w", in.ID, err)
						return nil, u.errs[c]
					}
				}
				return nil, nil
			},
		})
	}
	wg.Wait()

	for _, err := range u.errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (u *updaterImpl) Bounds() common.Box {
	u.mu.Lock()
	defer u.mu.Unlock()
	b := common.EmptyBox()
	for _, in := range u.instances {
		b.Merge(in.Bounds())
	}
	return b
}

func (u *updaterImpl) Close() {
	if u.pool != nil {
		u.pool.Stop()
	}
}
