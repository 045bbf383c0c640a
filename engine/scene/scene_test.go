package scene_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/engine/animation"
	"github.com/Carmen-Shannon/oxy-skin/engine/camera"
	"github.com/Carmen-Shannon/oxy-skin/engine/loader"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/gputest"
	"github.com/Carmen-Shannon/oxy-skin/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testAsset is a two joint rig with a "wave" clip, one skinned triangle bound to the child
// joint and one static triangle placed by a scene node.
func testAsset(t *testing.T, name string) *loader.Asset {
	t.Helper()

	child := animation.IdentityTransform()
	child.Translation = mgl32.Vec3{0, 1, 0}
	skel, err := animation.NewSkeleton([]animation.Joint{
		{Name: "root", Parent: animation.NoParent, Rest: animation.IdentityTransform()},
		{Name: "child", Parent: 0, Rest: child},
	})
	require.NoError(t, err)

	anim, err := animation.NewAnimation("wave", 1, []animation.JointTrack{
		{},
		{Translations: []animation.Float3Key{
			{Time: 0, Value: mgl32.Vec3{0, 1, 0}},
			{Time: 1, Value: mgl32.Vec3{0, 2, 0}},
		}},
	})
	require.NoError(t, err)

	mesh := &model.Mesh{
		Name:             "body",
		JointRemaps:      []uint16{0, 1},
		InverseBindPoses: []mgl32.Mat4{mgl32.Ident4(), mgl32.Translate3D(0, -1, 0)},
		Parts: []model.Part{{
			Positions:    []float32{0, 1, 0, 1, 1, 0, 0, 2, 0},
			Normals:      []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
			JointIndices: []uint16{1, 1, 1},
			Indices:      []uint32{0, 1, 2},
		}},
	}

	static := &model.MeshAsset{
		Name:     name,
		Layout:   model.DefaultVertexLayout,
		Vertices: make([]float32, 3*model.DefaultVertexLayout.Stride),
		Indices:  []uint32{0, 1, 2},
		Parts: []model.MeshPart{{
			Name:             "prop",
			IsStaticBody:     true,
			SceneNodeIndex:   0,
			SkinnedMeshIndex: -1,
			IndexCount:       3,
			MaterialIndex:    -1,
		}},
		SceneNodes: []model.SceneNode{{Name: "prop", Local: mgl32.Ident4(), Parent: -1}},
	}

	asset := &loader.Asset{
		Name:       name,
		Skeleton:   skel,
		Animations: []*animation.Animation{anim},
		Meshes:     []*model.Mesh{mesh},
		MeshAsset:  static,
	}
	require.NoError(t, asset.Validate())
	return asset
}

func newScene(t *testing.T, dev *gputest.Device, options ...scene.SceneBuilderOption) scene.Scene {
	t.Helper()

	r := renderer.NewRenderer(dev, renderer.WithSkinningPolicy(renderer.PolicyVTF, 0))
	require.NoError(t, r.Initialize())

	cam := camera.NewCamera(camera.WithController(camera.NewCameraController()))
	s, err := scene.NewScene("crowd", cam, r, testAsset(t, "rig"), options...)
	require.NoError(t, err)
	t.Cleanup(s.Release)
	return s
}

func worldOrigins(s scene.Scene) []mgl32.Vec3 {
	var out []mgl32.Vec3
	for _, in := range s.Updater().Instances() {
		out = append(out, in.World.Col(3).Vec3())
	}
	return out
}

func timeRatios(s scene.Scene) []float32 {
	var out []float32
	for _, in := range s.Updater().Instances() {
		out = append(out, in.Controller.TimeRatio())
	}
	return out
}

func TestPopulateCenteredGrid(t *testing.T) {
	s := newScene(t, gputest.NewDevice(), scene.WithInstances(4), scene.WithSpacing(2))

	assert.Equal(t, 4, s.Count())
	assert.Equal(t, []mgl32.Vec3{
		{-1, 0, -1}, {1, 0, -1},
		{-1, 0, 1}, {1, 0, 1},
	}, worldOrigins(s))

	s.Populate(3)
	assert.Equal(t, 3, s.Count())
	assert.Equal(t, 3, s.Updater().InstanceCount())
	// Two columns, two rows, the second row half filled.
	assert.Equal(t, []mgl32.Vec3{{-1, 0, -1}, {1, 0, -1}, {-1, 0, 1}}, worldOrigins(s))

	s.Populate(0)
	assert.Zero(t, s.Updater().InstanceCount())
	assert.False(t, s.Updater().Bounds().Valid())
}

func TestPopulateIsSeeded(t *testing.T) {
	a := newScene(t, gputest.NewDevice(), scene.WithInstances(8), scene.WithSeed(7))
	b := newScene(t, gputest.NewDevice(), scene.WithInstances(8), scene.WithSeed(7))
	c := newScene(t, gputest.NewDevice(), scene.WithInstances(8), scene.WithSeed(8))

	assert.Equal(t, timeRatios(a), timeRatios(b))
	assert.NotEqual(t, timeRatios(a), timeRatios(c))

	for _, in := range a.Updater().Instances() {
		assert.InDelta(t, 1, in.Controller.Speed(), 0.25+1e-6)
	}

	before := timeRatios(a)
	a.Populate(8)
	assert.Equal(t, before, timeRatios(a), "repopulating must reproduce the crowd")
}

func TestSetPausedFreezesPlayback(t *testing.T) {
	s := newScene(t, gputest.NewDevice(), scene.WithInstances(3))

	s.SetPaused(true)
	assert.True(t, s.Paused())
	before := timeRatios(s)
	require.NoError(t, s.Update(0.25))
	assert.Equal(t, before, timeRatios(s))

	s.SetPaused(false)
	require.NoError(t, s.Update(0.25))
	assert.NotEqual(t, before, timeRatios(s))
}

func TestDrawCalls(t *testing.T) {
	dev := gputest.NewDevice()
	s := newScene(t, dev, scene.WithInstances(4))
	r := s.Renderer()

	require.NoError(t, s.Update(1.0/60))
	require.NoError(t, r.BeginFrame())
	require.NoError(t, s.DrawCalls())
	require.NoError(t, r.EndFrame())

	stats := r.Stats()
	assert.Equal(t, 4, stats.VtfInstances)
	assert.GreaterOrEqual(t, dev.Count(gputest.CallDrawVtf), 1)
	assert.Equal(t, 4, dev.Count(gputest.CallDrawStatic), "one static part per instance")
	assert.Zero(t, dev.Count(gputest.CallDrawStaticInstanced))
	assert.Equal(t, s.Camera().View(), dev.View)

	t.Run("posture", func(t *testing.T) {
		dev.Reset()
		s.SetDrawPosture(true)
		require.True(t, s.DrawPosture())

		require.NoError(t, r.BeginFrame())
		require.NoError(t, s.DrawCalls())
		require.NoError(t, r.EndFrame())
		assert.Equal(t, 4, dev.Count(gputest.CallDrawStaticInstanced), "one bone batch per instance")
	})
}

func TestDrawCallsWithoutStaticParts(t *testing.T) {
	dev := gputest.NewDevice()
	s := newScene(t, dev, scene.WithInstances(2), scene.WithDrawStatic(false))
	r := s.Renderer()

	require.NoError(t, r.BeginFrame())
	require.NoError(t, s.DrawCalls())
	require.NoError(t, r.EndFrame())
	assert.Zero(t, dev.Count(gputest.CallDrawStatic))
	assert.Equal(t, 2, r.Stats().VtfInstances)
}

func TestUpdateFramesCamera(t *testing.T) {
	s := newScene(t, gputest.NewDevice(), scene.WithInstances(9), scene.WithSpacing(4))
	before := s.Camera().View()

	require.NoError(t, s.Update(0))
	assert.NotEqual(t, before, s.Camera().View())
	assert.True(t, s.Updater().Bounds().Valid())
}

func TestSetAsset(t *testing.T) {
	s := newScene(t, gputest.NewDevice(), scene.WithInstances(5), scene.WithSeed(3))
	layout := worldOrigins(s)
	phases := timeRatios(s)

	reloaded := testAsset(t, "rig-v2")
	require.NoError(t, s.SetAsset(reloaded))
	assert.Same(t, reloaded, s.Asset())
	assert.Equal(t, 5, s.Count())
	assert.Equal(t, layout, worldOrigins(s))
	assert.Equal(t, phases, timeRatios(s))

	t.Run("rejected asset keeps the previous one", func(t *testing.T) {
		assert.ErrorIs(t, s.SetAsset(nil), scene.ErrNoSkeleton)
		assert.ErrorIs(t, s.SetAsset(&loader.Asset{Name: "empty"}), scene.ErrNoSkeleton)
		assert.Same(t, reloaded, s.Asset())
		assert.Equal(t, 5, s.Updater().InstanceCount())
	})
}

func TestSetAssetReleasesReplacedMeshes(t *testing.T) {
	dev := gputest.NewDevice()
	s := newScene(t, dev, scene.WithInstances(2))
	r := s.Renderer()
	draw := func() {
		t.Helper()
		require.NoError(t, r.BeginFrame())
		require.NoError(t, s.DrawCalls())
		require.NoError(t, r.EndFrame())
	}

	draw()
	first := s.Asset()
	require.Len(t, dev.Meshes, 1)
	require.Same(t, first.Meshes[0], dev.Meshes[0])
	staticHandle := renderer.MeshHandle(len(dev.Assets))

	reloaded := testAsset(t, "rig-v2")
	require.NoError(t, s.SetAsset(reloaded))
	assert.Equal(t, []renderer.MeshHandle{1}, dev.ReleasedMeshes)
	assert.Equal(t, []renderer.MeshHandle{staticHandle}, dev.ReleasedAssets)
	assert.Nil(t, dev.Meshes[0])

	draw()
	require.Len(t, dev.Meshes, 2)
	assert.Same(t, reloaded.Meshes[0], dev.Meshes[1])
	assert.Same(t, reloaded.MeshAsset, dev.Assets[len(dev.Assets)-1])

	t.Run("same asset keeps its meshes", func(t *testing.T) {
		require.NoError(t, s.SetAsset(reloaded))
		assert.Len(t, dev.ReleasedMeshes, 1)
		assert.Len(t, dev.ReleasedAssets, 1)
	})
}

func TestNewSceneUnknownClip(t *testing.T) {
	r := renderer.NewRenderer(gputest.NewDevice())
	require.NoError(t, r.Initialize())

	_, err := scene.NewScene("crowd", camera.NewCamera(), r, testAsset(t, "rig"), scene.WithClip("run"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"run"`)
}

func TestDrawCallsCullsOutsideFrustum(t *testing.T) {
	dev := gputest.NewDevice()
	s := newScene(t, dev, scene.WithInstances(4), scene.WithCulling(true, 0.5))
	r := s.Renderer()

	frame := func() {
		t.Helper()
		require.NoError(t, r.BeginFrame())
		require.NoError(t, s.DrawCalls())
		require.NoError(t, r.EndFrame())
	}

	require.NoError(t, s.Update(0))
	frame()
	assert.Zero(t, s.Culled(), "an auto-framed crowd is fully visible")
	assert.Equal(t, 4, r.Stats().VtfInstances)

	// Looking at a point far past the far plane leaves nothing in view.
	s.Camera().Controller().SetTarget(mgl32.Vec3{2000, 0, 0})
	s.Camera().Update()
	dev.Reset()
	frame()
	assert.Equal(t, 4, s.Culled())
	assert.Zero(t, r.Stats().VtfInstances)
	assert.Zero(t, dev.Count(gputest.CallDrawVtf))
	assert.Zero(t, dev.Count(gputest.CallDrawStatic))
}
