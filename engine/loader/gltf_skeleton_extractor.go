package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-skin/engine/animation"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// gltfSkinBinding ties a skin's node and joint numbering to the sorted skeleton.
type gltfSkinBinding struct {
	// skin is the glTF skin index.
	skin int

	// nodeJoint maps a glTF node index to its skeleton joint.
	nodeJoint map[int]int

	// skinJoint maps a position in skin.Joints (the numbering JOINTS_0 uses) to its
	// skeleton joint.
	skinJoint []int

	// inverseBinds holds one inverse bind matrix per position in skin.Joints.
	inverseBinds []mgl32.Mat4
}

// gltfSkeletonExtractorImpl is the implementation of the gltfSkeletonExtractor interface.
type gltfSkeletonExtractorImpl struct {
	doc *gltf.Document
}

// gltfSkeletonExtractor defines the interface for extracting a skeleton from a glTF skin.
// Joints are sorted so parents come before children, and the returned binding translates the
// document's numbering into the sorted one.
type gltfSkeletonExtractor interface {
	// ExtractSkeleton builds the skeleton of a skin.
	//
	// Parameters:
	//   - skinIndex: the index of the skin to extract
	//
	// Returns:
	//   - *animation.Skeleton: the skeleton with parents before children
	//   - *gltfSkinBinding: node and skin joint index mappings plus inverse binds
	//   - error: error if the skin is malformed
	ExtractSkeleton(skinIndex int) (*animation.Skeleton, *gltfSkinBinding, error)
}

var _ gltfSkeletonExtractor = &gltfSkeletonExtractorImpl{}

// newGLTFSkeletonExtractor creates a new skeleton extractor for a decoded document.
//
// Parameters:
//   - doc: the glTF document
//
// Returns:
//   - gltfSkeletonExtractor: the skeleton extractor
func newGLTFSkeletonExtractor(doc *gltf.Document) gltfSkeletonExtractor {
	return &gltfSkeletonExtractorImpl{doc: doc}
}

func (e *gltfSkeletonExtractorImpl) ExtractSkeleton(skinIndex int) (*animation.Skeleton, *gltfSkinBinding, error) {
	if skinIndex < 0 || skinIndex >= len(e.doc.Skins) {
		return nil, nil, fmt.Errorf("skin index %d out of range", skinIndex)
	}
	skin := e.doc.Skins[skinIndex]
	if len(skin.Joints) == 0 {
		return nil, nil, fmt.Errorf("skin %d has no joints", skinIndex)
	}

	inverseBinds, err := e.readInverseBinds(skin)
	if err != nil {
		return nil, nil, err
	}

	// Joint i of the skin lives at node skin.Joints[i].
	skinIndexOf := make(map[int]int, len(skin.Joints))
	for i, n := range skin.Joints {
		if n < 0 || n >= len(e.doc.Nodes) {
			return nil, nil, fmt.Errorf("skin joint %d: invalid node index %d", i, n)
		}
		if _, dup := skinIndexOf[n]; dup {
			return nil, nil, fmt.Errorf("skin joint %d: node %d listed twice", i, n)
		}
		skinIndexOf[n] = i
	}

	parents := make([]int, len(skin.Joints))
	for i := range parents {
		parents[i] = animation.NoParent
	}
	for nodeIdx, node := range e.doc.Nodes {
		parent, isJoint := skinIndexOf[nodeIdx]
		if !isJoint {
			continue
		}
		for _, c := range node.Children {
			if child, ok := skinIndexOf[c]; ok {
				parents[child] = parent
			}
		}
	}

	order := sortParentsFirst(parents)

	oldToNew := make([]int, len(order))
	for newIdx, oldIdx := range order {
		oldToNew[oldIdx] = newIdx
	}

	joints := make([]animation.Joint, len(order))
	used := make(map[string]bool, len(order))
	for newIdx, oldIdx := range order {
		node := e.doc.Nodes[skin.Joints[oldIdx]]

		parent := animation.NoParent
		if parents[oldIdx] != animation.NoParent {
			parent = oldToNew[parents[oldIdx]]
		}
		joints[newIdx] = animation.Joint{
			Name:   uniqueJointName(node.Name, oldIdx, used),
			Parent: parent,
			Rest:   gltfRestTransform(node),
		}
	}

	skel, err := animation.NewSkeleton(joints)
	if err != nil {
		return nil, nil, err
	}

	binding := &gltfSkinBinding{
		skin:         skinIndex,
		nodeJoint:    make(map[int]int, len(skin.Joints)),
		skinJoint:    oldToNew,
		inverseBinds: inverseBinds,
	}
	for i, n := range skin.Joints {
		binding.nodeJoint[n] = oldToNew[i]
	}
	return skel, binding, nil
}

// readInverseBinds returns one matrix per skin joint. A skin without the accessor binds every
// joint with identity, as glTF prescribes.
func (e *gltfSkeletonExtractorImpl) readInverseBinds(skin *gltf.Skin) ([]mgl32.Mat4, error) {
	out := make([]mgl32.Mat4, len(skin.Joints))
	for i := range out {
		out[i] = mgl32.Ident4()
	}
	if skin.InverseBindMatrices == nil {
		return out, nil
	}

	idx := *skin.InverseBindMatrices
	if idx < 0 || idx >= len(e.doc.Accessors) {
		return nil, fmt.Errorf("inverse bind accessor %d out of range", idx)
	}
	data, err := modeler.ReadAccessor(e.doc, e.doc.Accessors[idx], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read inverse bind matrices: %w", err)
	}
	mats, ok := data.([][4][4]float32)
	if !ok {
		return nil, fmt.Errorf("inverse bind matrices have unsupported type %T", data)
	}
	if len(mats) < len(skin.Joints) {
		return nil, fmt.Errorf("%d inverse bind matrices for %d joints", len(mats), len(skin.Joints))
	}

	for i := range out {
		// Each [4]float32 is a column, matching mgl32's layout.
		for c := range 4 {
			out[i].SetCol(c, mgl32.Vec4(mats[i][c]))
		}
	}
	return out, nil
}

// sortParentsFirst orders joints breadth first from the roots so that parents always come
// before children. Roots keep their relative order and so do siblings.
//
// Parameters:
//   - parents: parent index per joint, animation.NoParent for roots
//
// Returns:
//   - []int: old joint indices in their new order
func sortParentsFirst(parents []int) []int {
	children := make([][]int, len(parents))
	queue := make([]int, 0, len(parents))
	for i, p := range parents {
		if p == animation.NoParent {
			queue = append(queue, i)
			continue
		}
		children[p] = append(children[p], i)
	}

	sorted := make([]int, 0, len(parents))
	visited := make([]bool, len(parents))
	for len(queue) > 0 {
		j := queue[0]
		queue = queue[1:]
		if visited[j] {
			continue
		}
		visited[j] = true
		sorted = append(sorted, j)
		queue = append(queue, children[j]...)
	}

	// Joints caught in a parent cycle are unreachable from any root; promote them to roots.
	for i := range parents {
		if !visited[i] {
			parents[i] = animation.NoParent
			sorted = append(sorted, i)
			visited[i] = true
		}
	}
	return sorted
}

func uniqueJointName(name string, index int, used map[string]bool) string {
	if name == "" {
		name = fmt.Sprintf("joint_%d", index)
	}
	base := name
	for n := 1; used[name]; n++ {
		name = fmt.Sprintf("%s_%d", base, n)
	}
	used[name] = true
	return name
}
