package animation

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Float3Key is a translation or scale keyframe.
type Float3Key struct {
	Time  float32
	Value mgl32.Vec3
}

// QuatKey is a rotation keyframe.
type QuatKey struct {
	Time  float32
	Value mgl32.Quat
}

// JointTrack holds the keyframes that animate one joint. A channel without keys leaves the
// joint at its skeleton rest value for that component.
type JointTrack struct {
	Translations []Float3Key
	Rotations    []QuatKey
	Scales       []Float3Key
}

// Animation is an immutable clip with one track per skeleton joint.
type Animation struct {
	name     string
	duration float32
	tracks   []JointTrack
}

// NewAnimation validates tracks and builds an animation.
//
// Parameters:
//   - name: the clip name
//   - duration: clip length in seconds, must be positive
//   - tracks: one track per joint, keys sorted by time within [0, duration]
//
// Returns:
//   - *Animation: the animation
//   - error: ErrInvalidAnimation if any constraint is broken
func NewAnimation(name string, duration float32, tracks []JointTrack) (*Animation, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("%w: %q has non-positive duration %v", ErrInvalidAnimation, name, duration)
	}
	if len(tracks) > MaxJoints {
		return nil, fmt.Errorf("%w: %q has %d tracks, maximum is %d", ErrInvalidAnimation, name, len(tracks), MaxJoints)
	}

	for i, t := range tracks {
		if err := checkKeyTimes(len(t.Translations), func(k int) float32 { return t.Translations[k].Time }, duration); err != nil {
			return nil, fmt.Errorf("%w: %q track %d translations: %v", ErrInvalidAnimation, name, i, err)
		}
		if err := checkKeyTimes(len(t.Rotations), func(k int) float32 { return t.Rotations[k].Time }, duration); err != nil {
			return nil, fmt.Errorf("%w: %q track %d rotations: %v", ErrInvalidAnimation, name, i, err)
		}
		if err := checkKeyTimes(len(t.Scales), func(k int) float32 { return t.Scales[k].Time }, duration); err != nil {
			return nil, fmt.Errorf("%w: %q track %d scales: %v", ErrInvalidAnimation, name, i, err)
		}
	}

	return &Animation{
		name:     name,
		duration: duration,
		tracks:   tracks,
	}, nil
}

func checkKeyTimes(n int, at func(int) float32, duration float32) error {
	prev := float32(-1)
	for k := range n {
		t := at(k)
		if t < 0 || t > duration {
			return fmt.Errorf("key %d time %v outside [0, %v]", k, t, duration)
		}
		if t < prev {
			return fmt.Errorf("key %d time %v precedes previous key time %v", k, t, prev)
		}
		prev = t
	}
	return nil
}

// Name returns the clip name.
func (a *Animation) Name() string {
	return a.name
}

// Duration returns the clip length in seconds.
func (a *Animation) Duration() float32 {
	return a.duration
}

// NumTracks returns the number of joint tracks.
func (a *Animation) NumTracks() int {
	return len(a.tracks)
}

// Track returns the track for the given joint.
func (a *Animation) Track(i int) *JointTrack {
	return &a.tracks[i]
}

// CheckCompatible reports whether anim has exactly one track per joint of skel.
func CheckCompatible(skel *Skeleton, anim *Animation) error {
	if anim.NumTracks() != skel.NumJoints() {
		return fmt.Errorf("%w: animation %q has %d tracks, skeleton has %d joints", ErrTrackMismatch, anim.Name(), anim.NumTracks(), skel.NumJoints())
	}
	return nil
}
