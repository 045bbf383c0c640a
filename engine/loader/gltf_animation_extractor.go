package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-skin/engine/animation"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	doc    *gltf.Document
	logger *log.Logger
}

// gltfAnimationExtractor defines the interface for converting glTF animations into clips
// with one track per skeleton joint.
type gltfAnimationExtractor interface {
	// ExtractAnimations converts every animation of the document. Channels targeting nodes
	// outside the skin are ignored, and joints without a channel keep their rest pose.
	//
	// Parameters:
	//   - skel: the skeleton the clips are built for
	//   - binding: the node to joint mapping of the skeleton's skin
	//
	// Returns:
	//   - []*animation.Animation: one clip per animation that animates the skin
	//   - error: error if an accessor cannot be read or a clip is invalid
	ExtractAnimations(skel *animation.Skeleton, binding *gltfSkinBinding) ([]*animation.Animation, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

// newGLTFAnimationExtractor creates a new animation extractor for a decoded document.
//
// Parameters:
//   - doc: the glTF document
//   - logger: logger for skipped channels
//
// Returns:
//   - gltfAnimationExtractor: the animation extractor
func newGLTFAnimationExtractor(doc *gltf.Document, logger *log.Logger) gltfAnimationExtractor {
	return &gltfAnimationExtractorImpl{doc: doc, logger: logger}
}

func (e *gltfAnimationExtractorImpl) ExtractAnimations(skel *animation.Skeleton, binding *gltfSkinBinding) ([]*animation.Animation, error) {
	var out []*animation.Animation
	for i, a := range e.doc.Animations {
		name := a.Name
		if name == "" {
			name = fmt.Sprintf("animation_%d", i)
		}

		anim, err := e.extractAnimation(name, a, skel, binding)
		if err != nil {
			return nil, fmt.Errorf("animation %q: %w", name, err)
		}
		if anim != nil {
			out = append(out, anim)
		}
	}
	return out, nil
}

// extractAnimation returns nil when no channel of a animates a joint of the skin.
func (e *gltfAnimationExtractorImpl) extractAnimation(name string, a *gltf.Animation, skel *animation.Skeleton, binding *gltfSkinBinding) (*animation.Animation, error) {
	tracks := make([]animation.JointTrack, skel.NumJoints())
	duration := float32(0)
	animated := false

	for ci, ch := range a.Channels {
		if ch.Target.Node == nil {
			continue
		}
		joint, ok := binding.nodeJoint[*ch.Target.Node]
		if !ok {
			continue
		}
		if ch.Sampler < 0 || ch.Sampler >= len(a.Samplers) {
			return nil, fmt.Errorf("channel %d: sampler %d out of range", ci, ch.Sampler)
		}
		sampler := a.Samplers[ch.Sampler]

		times, err := e.readTimes(sampler.Input)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", ci, err)
		}
		if len(times) == 0 {
			continue
		}
		duration = max(duration, times[len(times)-1])

		track := &tracks[joint]
		switch ch.Target.Path {
		case gltf.TRSTranslation, gltf.TRSScale:
			values, err := e.readVec3(sampler.Output)
			if err != nil {
				return nil, fmt.Errorf("channel %d: %w", ci, err)
			}
			keys, err := float3Keys(times, values, sampler.Interpolation)
			if err != nil {
				return nil, fmt.Errorf("channel %d: %w", ci, err)
			}
			if ch.Target.Path == gltf.TRSTranslation {
				track.Translations = keys
			} else {
				track.Scales = keys
			}
		case gltf.TRSRotation:
			values, err := e.readQuat(sampler.Output)
			if err != nil {
				return nil, fmt.Errorf("channel %d: %w", ci, err)
			}
			keys, err := quatKeys(times, values, sampler.Interpolation)
			if err != nil {
				return nil, fmt.Errorf("channel %d: %w", ci, err)
			}
			track.Rotations = keys
		default:
			e.logger.Debug("morph weight channel skipped", "animation", name, "channel", ci)
			continue
		}
		animated = true
	}

	if !animated {
		e.logger.Warn("animation does not target the skin", "animation", name)
		return nil, nil
	}
	return animation.NewAnimation(name, max(duration, minClipDuration), tracks)
}

func (e *gltfAnimationExtractorImpl) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(e.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", idx)
	}
	return e.doc.Accessors[idx], nil
}

func (e *gltfAnimationExtractorImpl) readTimes(idx int) ([]float32, error) {
	acr, err := e.accessor(idx)
	if err != nil {
		return nil, err
	}
	data, err := modeler.ReadAccessor(e.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read key times: %w", err)
	}
	times, ok := data.([]float32)
	if !ok {
		return nil, fmt.Errorf("key times have unsupported type %T", data)
	}
	for i, t := range times {
		if !finite(t) || t < 0 || (i > 0 && t < times[i-1]) {
			return nil, fmt.Errorf("key time %v at %d is negative or unsorted", t, i)
		}
	}
	return times, nil
}

func (e *gltfAnimationExtractorImpl) readVec3(idx int) ([]mgl32.Vec3, error) {
	acr, err := e.accessor(idx)
	if err != nil {
		return nil, err
	}
	data, err := modeler.ReadAccessor(e.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read key values: %w", err)
	}
	raw, ok := data.([][3]float32)
	if !ok {
		return nil, fmt.Errorf("vec3 key values have unsupported type %T", data)
	}
	out := make([]mgl32.Vec3, len(raw))
	for i, v := range raw {
		out[i] = mgl32.Vec3(v)
	}
	return out, nil
}

// readQuat accepts float rotations and the normalized integer encodings glTF allows for them.
func (e *gltfAnimationExtractorImpl) readQuat(idx int) ([]mgl32.Quat, error) {
	acr, err := e.accessor(idx)
	if err != nil {
		return nil, err
	}
	data, err := modeler.ReadAccessor(e.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read key values: %w", err)
	}

	var raw [][4]float32
	switch v := data.(type) {
	case [][4]float32:
		raw = v
	case [][4]int8:
		raw = normalizeQuats(v, 127)
	case [][4]uint8:
		raw = normalizeQuats(v, 255)
	case [][4]int16:
		raw = normalizeQuats(v, 32767)
	case [][4]uint16:
		raw = normalizeQuats(v, 65535)
	default:
		return nil, fmt.Errorf("rotation key values have unsupported type %T", data)
	}

	out := make([]mgl32.Quat, len(raw))
	for i, q := range raw {
		out[i] = quatOf(q)
	}
	return out, nil
}

func normalizeQuats[T int8 | uint8 | int16 | uint16](in [][4]T, scale float32) [][4]float32 {
	out := make([][4]float32, len(in))
	for i, q := range in {
		for c := range 4 {
			out[i][c] = max(float32(q[c])/scale, -1)
		}
	}
	return out
}

// keyValues picks the value of each key out of a sampler's output. Cubic spline outputs store
// an in-tangent, the value and an out-tangent per key; the tangents are dropped and the curve
// is resampled linearly.
func keyValues[T any](count int, values []T, interp gltf.Interpolation) ([]T, error) {
	if interp == gltf.InterpolationCubicSpline {
		if len(values) < count*3 {
			return nil, fmt.Errorf("%d cubic spline values for %d keys", len(values), count)
		}
		out := make([]T, count)
		for i := range out {
			out[i] = values[i*3+1]
		}
		return out, nil
	}
	if len(values) < count {
		return nil, fmt.Errorf("%d values for %d keys", len(values), count)
	}
	return values[:count], nil
}

func float3Keys(times []float32, values []mgl32.Vec3, interp gltf.Interpolation) ([]animation.Float3Key, error) {
	vals, err := keyValues(len(times), values, interp)
	if err != nil {
		return nil, err
	}
	keys := make([]animation.Float3Key, 0, len(times))
	for i, t := range times {
		// Step keys hold their value until the next key time.
		if interp == gltf.InterpolationStep && i > 0 {
			keys = append(keys, animation.Float3Key{Time: t, Value: vals[i-1]})
		}
		keys = append(keys, animation.Float3Key{Time: t, Value: vals[i]})
	}
	return keys, nil
}

func quatKeys(times []float32, values []mgl32.Quat, interp gltf.Interpolation) ([]animation.QuatKey, error) {
	vals, err := keyValues(len(times), values, interp)
	if err != nil {
		return nil, err
	}
	keys := make([]animation.QuatKey, 0, len(times))
	for i, t := range times {
		if interp == gltf.InterpolationStep && i > 0 {
			keys = append(keys, animation.QuatKey{Time: t, Value: vals[i-1].Normalize()})
		}
		keys = append(keys, animation.QuatKey{Time: t, Value: vals[i].Normalize()})
	}
	return keys, nil
}
