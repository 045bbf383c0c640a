package loader

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-skin/engine/animation"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill[T float](dst []T, v ...float64) {
	for i := range v {
		dst[i] = T(v[i])
	}
}

func quietLoader() Loader {
	return NewLoader(BackendTypeGLTF, WithLogger(log.New(io.Discard)))
}

// testDocument builds a two joint chain skinning a four vertex quad, plus a static triangle.
// The skin lists the tip before the root to exercise parent-first sorting.
func testDocument(joints [][4]uint16) *gltf.Document {
	doc := gltf.NewDocument()

	root := &gltf.Node{Name: "root", Children: []int{1}}
	fill(root.Translation[:], 0, 1, 0)
	tip := &gltf.Node{Name: "tip"}
	fill(tip.Translation[:], 0, 1, 0)
	body := &gltf.Node{Name: "body", Mesh: gltf.Index(0), Skin: gltf.Index(0)}
	prop := &gltf.Node{Name: "prop", Mesh: gltf.Index(1)}
	fill(prop.Translation[:], 2, 0, 0)
	doc.Nodes = []*gltf.Node{root, tip, body, prop}
	doc.Scenes[0].Nodes = []int{0, 2, 3}

	inverseBinds := [][4][4]float32{
		{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, -2, 0, 1}}, // tip
		{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, -1, 0, 1}}, // root
	}
	doc.Skins = []*gltf.Skin{{
		Name:                "rig",
		Joints:              []int{1, 0},
		InverseBindMatrices: gltf.Index(modeler.WriteAccessor(doc, gltf.TargetNone, inverseBinds)),
	}}

	doc.Meshes = []*gltf.Mesh{
		{
			Name: "body",
			Primitives: []*gltf.Primitive{{
				Indices: gltf.Index(modeler.WriteIndices(doc, []uint16{0, 1, 3, 1, 2, 3})),
				Attributes: map[string]int{
					gltf.POSITION:  modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 2, 0}, {0, 2, 0}}),
					gltf.NORMAL:    modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}}),
					gltf.JOINTS_0:  modeler.WriteJoints(doc, joints),
					gltf.WEIGHTS_0: modeler.WriteWeights(doc, [][4]float32{{1, 0, 0, 0}, {1, 0, 0, 0}, {0.75, 0.25, 0, 0}, {1, 0, 0, 0}}),
				},
			}},
		},
		{
			Name: "prop",
			Primitives: []*gltf.Primitive{{
				Attributes: map[string]int{
					gltf.POSITION: modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}),
				},
			}},
		},
	}

	s := float32(0.70710677)
	doc.Animations = []*gltf.Animation{{
		Name: "bend",
		Samplers: []*gltf.AnimationSampler{
			{
				Input:  modeler.WriteAccessor(doc, gltf.TargetNone, []float32{0, 2}),
				Output: modeler.WriteAccessor(doc, gltf.TargetNone, [][4]float32{{0, 0, 0, 1}, {0, 0, s, s}}),
			},
			{
				Input:  modeler.WriteAccessor(doc, gltf.TargetNone, []float32{0, 3}),
				Output: modeler.WriteAccessor(doc, gltf.TargetNone, [][3]float32{{0, 0, 0}, {0, 5, 0}}),
			},
		},
		Channels: []*gltf.AnimationChannel{
			{Sampler: 0, Target: gltf.AnimationChannelTarget{Node: gltf.Index(1), Path: gltf.TRSRotation}},
			// prop is not a joint, so this channel is dropped along with its longer duration.
			{Sampler: 1, Target: gltf.AnimationChannelTarget{Node: gltf.Index(3), Path: gltf.TRSTranslation}},
		},
	}}
	return doc
}

// Skin joint 0 is the tip and skin joint 1 the root.
var quadJoints = [][4]uint16{{1, 0, 0, 0}, {1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 0, 0}}

func TestLoadDocumentSkeleton(t *testing.T) {
	asset, err := quietLoader().LoadDocument("quad", testDocument(quadJoints))
	require.NoError(t, err)
	require.NotNil(t, asset.Skeleton)

	skel := asset.Skeleton
	assert.Equal(t, []string{"root", "tip"}, skel.JointNames())
	assert.Equal(t, []int16{animation.NoParent, 0}, skel.JointParents())
	assert.True(t, skel.RestPose(1).Translation.ApproxEqual(mgl32.Vec3{0, 1, 0}))
	assert.True(t, skel.RestPose(0).Scale.ApproxEqual(mgl32.Vec3{1, 1, 1}))
}

func TestLoadDocumentAnimation(t *testing.T) {
	asset, err := quietLoader().LoadDocument("quad", testDocument(quadJoints))
	require.NoError(t, err)
	require.Len(t, asset.Animations, 1)

	anim := asset.Animation("")
	require.NotNil(t, anim)
	assert.Same(t, anim, asset.Animation("bend"))
	assert.Nil(t, asset.Animation("walk"))

	assert.Equal(t, float32(2), anim.Duration())
	require.Equal(t, 2, anim.NumTracks())

	// The root has no channel and keeps its rest pose.
	assert.Empty(t, anim.Track(0).Rotations)
	assert.Empty(t, anim.Track(0).Translations)

	require.Len(t, anim.Track(1).Rotations, 2)
	end := anim.Track(1).Rotations[1]
	assert.Equal(t, float32(2), end.Time)
	assert.InDelta(t, 0.70710677, end.Value.W, 1e-5)
	assert.Empty(t, anim.Track(1).Translations)
}

func TestLoadDocumentSkinnedMesh(t *testing.T) {
	asset, err := quietLoader().LoadDocument("quad", testDocument(quadJoints))
	require.NoError(t, err)
	require.Len(t, asset.Meshes, 1)

	mesh := asset.Meshes[0]
	assert.Equal(t, "body", mesh.Name)

	// Slots follow first use: vertex 0 uses the root, vertex 2 introduces the tip.
	assert.Equal(t, []uint16{0, 1}, mesh.JointRemaps)
	require.Len(t, mesh.InverseBindPoses, 2)
	assert.Equal(t, mgl32.Translate3D(0, -1, 0), mesh.InverseBindPoses[0])
	assert.Equal(t, mgl32.Translate3D(0, -2, 0), mesh.InverseBindPoses[1])

	require.Len(t, mesh.Parts, 2)

	rigid := mesh.Parts[0]
	assert.Equal(t, 1, rigid.InfluencesCount())
	assert.Equal(t, []uint32{0, 1, 2}, rigid.Indices)
	assert.Equal(t, []uint16{0, 0, 1}, rigid.JointIndices)
	assert.Empty(t, rigid.JointWeights)
	assert.Len(t, rigid.Normals, 9)

	blended := mesh.Parts[1]
	assert.Equal(t, 2, blended.InfluencesCount())
	assert.Equal(t, []uint32{0, 1, 2}, blended.Indices)
	assert.Equal(t, []uint16{0, 0, 1, 0, 1, 1}, blended.JointIndices)
	assert.InDeltaSlice(t, []float32{1, 0.75, 1}, blended.JointWeights, 1e-6)

	joints, weights := blended.Influences(1)
	assert.Equal(t, uint16(1), joints[0])
	assert.Equal(t, uint16(0), joints[1])
	assert.InDelta(t, 0.75, weights[0], 1e-6)
	assert.InDelta(t, 0.25, weights[1], 1e-6)

	// Padded vertices keep a zero implicit weight.
	_, weights = blended.Influences(0)
	assert.InDelta(t, 1, weights[0], 1e-6)
	assert.InDelta(t, 0, weights[1], 1e-6)

	require.NoError(t, mesh.Validate(asset.Skeleton.NumJoints()))
}

func TestLoadDocumentMeshAsset(t *testing.T) {
	asset, err := quietLoader().LoadDocument("quad", testDocument(quadJoints))
	require.NoError(t, err)

	ma := asset.MeshAsset
	require.NotNil(t, ma)
	require.NoError(t, ma.Validate())

	assert.Equal(t, 7, ma.VertexCount())
	require.Len(t, ma.SceneNodes, 4)
	assert.Equal(t, "prop", ma.SceneNodes[3].Name)
	assert.Equal(t, -1, ma.SceneNodes[3].Parent)
	assert.Equal(t, 0, ma.SceneNodes[1].Parent)

	require.Len(t, ma.Parts, 2)
	skinned := ma.Parts[0]
	assert.False(t, skinned.IsStaticBody)
	assert.Equal(t, 0, skinned.SkinnedMeshIndex)
	assert.Equal(t, -1, skinned.SceneNodeIndex)
	assert.Equal(t, 6, skinned.IndexCount)

	static := ma.Parts[1]
	assert.True(t, static.IsStaticBody)
	assert.Equal(t, 3, static.SceneNodeIndex)
	assert.Equal(t, 6, static.IndexOffset)
	assert.Equal(t, 3, static.IndexCount)
	assert.Equal(t, []int{1}, ma.StaticParts())

	worlds := ma.NodeWorldMatrices(nil)
	assert.True(t, worlds[3].Col(3).Vec3().ApproxEqual(mgl32.Vec3{2, 0, 0}))
	assert.True(t, worlds[1].Col(3).Vec3().ApproxEqual(mgl32.Vec3{0, 2, 0}))
}

func TestLoadDocumentRejectsJointOutsideSkin(t *testing.T) {
	joints := [][4]uint16{{1, 0, 0, 0}, {1, 0, 0, 0}, {5, 1, 0, 0}, {0, 0, 0, 0}}

	l := quietLoader()
	_, err := l.LoadDocument("broken", testDocument(joints))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside skin")
	assert.Nil(t, l.Get("broken"))
}

func TestLoaderCache(t *testing.T) {
	l := quietLoader()
	asset, err := l.LoadDocument("quad", testDocument(quadJoints))
	require.NoError(t, err)

	assert.Same(t, asset, l.Get("quad"))
	assert.Equal(t, "quad", asset.Name)
	assert.Len(t, l.Assets(), 1)

	procedural := &Asset{}
	l = NewLoader(BackendTypeGLTF, WithAsset("box", procedural))
	got, err := l.Load("box")
	require.NoError(t, err)
	assert.Same(t, procedural, got)
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	_, err := quietLoader().Load("model.fbx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported model format")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := quietLoader().Load(filepath.Join(t.TempDir(), "missing.glb"))
	require.Error(t, err)
}

func TestSortParentsFirst(t *testing.T) {
	// 0's parent is 2, 2's parent is 1, 1 is the root.
	parents := []int{2, animation.NoParent, 1}
	assert.Equal(t, []int{1, 2, 0}, sortParentsFirst(parents))

	// A cycle is broken by promoting its first joint to a root.
	cyclic := []int{1, 0}
	assert.Equal(t, []int{0, 1}, sortParentsFirst(cyclic))
	assert.Equal(t, animation.NoParent, cyclic[0])
}

func TestDecomposeMatrix(t *testing.T) {
	rot := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	m := mgl32.Translate3D(1, 2, 3).Mul4(rot.Mat4()).Mul4(mgl32.Scale3D(2, 3, 4))

	xf := decomposeMatrix(m)
	assert.True(t, xf.Translation.ApproxEqualThreshold(mgl32.Vec3{1, 2, 3}, 1e-5))
	assert.True(t, xf.Scale.ApproxEqualThreshold(mgl32.Vec3{2, 3, 4}, 1e-5))
	assert.True(t, xf.Rotation.OrientationEqualThreshold(rot, 1e-4))
}

func TestStepAndCubicKeys(t *testing.T) {
	times := []float32{0, 1}
	vals := []mgl32.Vec3{{0, 0, 0}, {1, 1, 1}}

	step, err := float3Keys(times, vals, gltf.InterpolationStep)
	require.NoError(t, err)
	require.Len(t, step, 3)
	assert.Equal(t, float32(1), step[1].Time)
	assert.Equal(t, vals[0], step[1].Value)
	assert.Equal(t, vals[1], step[2].Value)

	cubic := []mgl32.Vec3{{9, 9, 9}, {0, 0, 0}, {9, 9, 9}, {9, 9, 9}, {1, 1, 1}, {9, 9, 9}}
	keys, err := float3Keys(times, cubic, gltf.InterpolationCubicSpline)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, vals[1], keys[1].Value)

	_, err = float3Keys(times, vals[:1], gltf.InterpolationLinear)
	assert.Error(t, err)
}

func TestWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.glb")
	other := filepath.Join(dir, "other.glb")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	w, err := NewWatcher(WithDebounce(20 * time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	changed := make(chan string, 8)
	require.NoError(t, w.Watch(path, func(p string) { changed <- p }))

	// Siblings in the watched directory are filtered out.
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))
	select {
	case p := <-changed:
		t.Fatalf("unexpected change for %s", p)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	select {
	case p := <-changed:
		assert.Equal(t, filepath.Clean(path), p)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatcherClosed(t *testing.T) {
	w, err := NewWatcher()
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Error(t, w.Watch(filepath.Join(t.TempDir(), "a.glb"), func(string) {}))
}
