package animation

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// trackCursor remembers, per channel, the index of the last key at or before the sampled time.
type trackCursor struct {
	translation int
	rotation    int
	scale       int
}

// SamplingContext caches per-track interpolation cursors between Sample calls so that a
// forward moving playhead finds its keys without searching from the start. One context
// serves one instance at a time; independent contexts can sample concurrently.
type SamplingContext struct {
	cursors   []trackCursor
	animation *Animation
	ratio     float32
}

// NewSamplingContext creates a context able to sample animations of up to maxTracks tracks.
func NewSamplingContext(maxTracks int) *SamplingContext {
	c := &SamplingContext{}
	c.Resize(maxTracks)
	return c
}

// Resize changes the track capacity and invalidates the cached cursors.
func (c *SamplingContext) Resize(maxTracks int) {
	if maxTracks < 0 {
		maxTracks = 0
	}
	if cap(c.cursors) >= maxTracks {
		c.cursors = c.cursors[:maxTracks]
	} else {
		c.cursors = make([]trackCursor, maxTracks)
	}
	c.Invalidate()
}

// MaxTracks returns the track capacity.
func (c *SamplingContext) MaxTracks() int {
	return len(c.cursors)
}

// Invalidate drops cached cursors so the next Sample searches from the first key.
func (c *SamplingContext) Invalidate() {
	c.animation = nil
	c.ratio = 0
	for i := range c.cursors {
		c.cursors[i] = trackCursor{}
	}
}

// Sample evaluates anim at the given normalized time and writes the local joint transforms
// into out in SoA layout. Ratios outside [0, 1] are clamped. Channels with no keys take the
// skeleton's rest value.
//
// Parameters:
//   - skel: the skeleton the animation drives
//   - anim: the animation to sample
//   - ratio: normalized time, 0 is the first frame and 1 the last
//   - ctx: cursor cache sized to at least anim.NumTracks()
//   - out: output span of at least skel.NumSoaJoints() transforms
//
// Returns:
//   - error: ErrTrackMismatch if the track count differs from the skeleton joint count or the
//     context capacity, ErrOutputTooSmall if out is too short
func Sample(skel *Skeleton, anim *Animation, ratio float32, ctx *SamplingContext, out []SoaTransform) error {
	if err := CheckCompatible(skel, anim); err != nil {
		return err
	}
	if anim.NumTracks() != ctx.MaxTracks() {
		return fmt.Errorf("%w: animation %q has %d tracks, sampling context holds %d", ErrTrackMismatch, anim.Name(), anim.NumTracks(), ctx.MaxTracks())
	}
	if len(out) < skel.NumSoaJoints() {
		return fmt.Errorf("%w: need %d soa transforms, got %d", ErrOutputTooSmall, skel.NumSoaJoints(), len(out))
	}

	ratio = mgl32.Clamp(ratio, 0, 1)
	if ctx.animation != anim || ratio < ctx.ratio {
		ctx.Invalidate()
		ctx.animation = anim
	}
	ctx.ratio = ratio

	t := ratio * anim.Duration()
	for i := range anim.NumTracks() {
		track := &anim.tracks[i]
		cur := &ctx.cursors[i]
		rest := skel.RestPose(i)

		xf := rest
		if len(track.Translations) > 0 {
			cur.translation = seek(cur.translation, len(track.Translations), func(k int) float32 { return track.Translations[k].Time }, t)
			xf.Translation = sampleFloat3(track.Translations, cur.translation, t)
		}
		if len(track.Rotations) > 0 {
			cur.rotation = seek(cur.rotation, len(track.Rotations), func(k int) float32 { return track.Rotations[k].Time }, t)
			xf.Rotation = sampleQuat(track.Rotations, cur.rotation, t)
		}
		if len(track.Scales) > 0 {
			cur.scale = seek(cur.scale, len(track.Scales), func(k int) float32 { return track.Scales[k].Time }, t)
			xf.Scale = sampleFloat3(track.Scales, cur.scale, t)
		}
		SetJointTransform(out, i, xf)
	}

	// Padding lanes of the last SoA transform stay identity.
	for i := anim.NumTracks(); i < skel.NumSoaJoints()*SoaWidth; i++ {
		SetJointTransform(out, i, IdentityTransform())
	}
	return nil
}

// seek moves the cursor forward to the last key whose time is <= t. The cursor restarts from
// zero when t precedes it.
func seek(cursor, n int, at func(int) float32, t float32) int {
	if cursor >= n || at(cursor) > t {
		cursor = 0
	}
	for cursor+1 < n && at(cursor+1) <= t {
		cursor++
	}
	return cursor
}

func keyAlpha(t0, t1, t float32) float32 {
	if t1 <= t0 {
		return 0
	}
	return mgl32.Clamp((t-t0)/(t1-t0), 0, 1)
}

func sampleFloat3(keys []Float3Key, k int, t float32) mgl32.Vec3 {
	if k+1 >= len(keys) || t <= keys[k].Time {
		return keys[k].Value
	}
	a := keyAlpha(keys[k].Time, keys[k+1].Time, t)
	return keys[k].Value.Add(keys[k+1].Value.Sub(keys[k].Value).Mul(a))
}

func sampleQuat(keys []QuatKey, k int, t float32) mgl32.Quat {
	if k+1 >= len(keys) || t <= keys[k].Time {
		return keys[k].Value.Normalize()
	}
	a := keyAlpha(keys[k].Time, keys[k+1].Time, t)
	q0, q1 := keys[k].Value, keys[k+1].Value
	if q0.Dot(q1) < 0 {
		q1 = q1.Scale(-1)
	}
	return mgl32.QuatNlerp(q0, q1, a)
}
