package loader

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-skin/engine/model"

	"github.com/charmbracelet/log"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// gltfPrimitiveData holds the decoded attributes of one triangle primitive. Optional
// attributes are nil when absent.
type gltfPrimitiveData struct {
	positions [][3]float32
	normals   [][3]float32
	tangents  [][4]float32
	uvs       [][2]float32
	colors    [][4]uint8
	joints    [][4]uint16
	weights   [][4]float32
	indices   []uint32
	material  int
}

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	doc    *gltf.Document
	logger *log.Logger
}

// gltfMeshExtractor defines the interface for extracting geometry from a glTF document,
// both as skinned meshes bound to a skeleton and as a scene-graph aware mesh asset.
type gltfMeshExtractor interface {
	// ExtractSkinnedMesh converts every triangle primitive of a mesh into parts split by
	// influence count. Skin joint indices are compacted into joint remaps, and the inverse
	// bind matrices follow the remap order.
	//
	// Parameters:
	//   - meshIndex: the glTF mesh index
	//   - binding: the skin binding of the skeleton
	//
	// Returns:
	//   - *model.Mesh: the skinned mesh
	//   - error: error if an attribute cannot be read or references a joint outside the skin
	ExtractSkinnedMesh(meshIndex int, binding *gltfSkinBinding) (*model.Mesh, error)

	// ExtractMeshAsset flattens the default scene into scene nodes and interleaves the
	// geometry of every triangle primitive. Meshes listed in skinnedMeshes produce skinned
	// parts; every other mesh node produces static parts.
	//
	// Parameters:
	//   - skinnedMeshes: glTF mesh index to the index of its extracted skinned mesh
	//
	// Returns:
	//   - *model.MeshAsset: the mesh asset
	//   - error: error if an attribute cannot be read
	ExtractMeshAsset(skinnedMeshes map[int]int) (*model.MeshAsset, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a new mesh extractor for a decoded document.
//
// Parameters:
//   - doc: the glTF document
//   - logger: logger for skipped primitives
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(doc *gltf.Document, logger *log.Logger) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{doc: doc, logger: logger}
}

func (e *gltfMeshExtractorImpl) ExtractSkinnedMesh(meshIndex int, binding *gltfSkinBinding) (*model.Mesh, error) {
	if meshIndex < 0 || meshIndex >= len(e.doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", meshIndex)
	}
	gm := e.doc.Meshes[meshIndex]

	mesh := &model.Mesh{Name: gm.Name}
	if mesh.Name == "" {
		mesh.Name = fmt.Sprintf("mesh_%d", meshIndex)
	}

	slots := make(map[int]uint16)
	for pi, prim := range gm.Primitives {
		data, err := e.readPrimitive(prim, true)
		if err != nil {
			return nil, fmt.Errorf("primitive %d: %w", pi, err)
		}
		if data == nil {
			e.logger.Warn("primitive skipped", "mesh", mesh.Name, "primitive", pi, "reason", "not skinned triangles")
			continue
		}

		parts, err := buildSkinnedParts(data, binding, mesh, slots)
		if err != nil {
			return nil, fmt.Errorf("primitive %d: %w", pi, err)
		}
		mesh.Parts = append(mesh.Parts, parts...)
	}
	return mesh, nil
}

func (e *gltfMeshExtractorImpl) ExtractMeshAsset(skinnedMeshes map[int]int) (*model.MeshAsset, error) {
	asset := &model.MeshAsset{
		Name:   gltfAssetName(e.doc),
		Layout: model.DefaultVertexLayout,
	}

	// Skinned parts first, ordered by the skinned mesh they belong to.
	byMesh := make([]int, 0, len(skinnedMeshes))
	for meshIdx := range skinnedMeshes {
		byMesh = append(byMesh, meshIdx)
	}
	slices.SortFunc(byMesh, func(a, b int) int { return skinnedMeshes[a] - skinnedMeshes[b] })

	for _, meshIdx := range byMesh {
		if err := e.appendMesh(asset, meshIdx, -1, skinnedMeshes[meshIdx]); err != nil {
			return nil, err
		}
	}

	order, parents := e.flattenScene()
	slot := make(map[int]int, len(order))
	for i, n := range order {
		slot[n] = i
		parent := -1
		if p := parents[n]; p >= 0 {
			parent = slot[p]
		}
		node := e.doc.Nodes[n]
		asset.SceneNodes = append(asset.SceneNodes, model.SceneNode{
			Name:   node.Name,
			Local:  gltfNodeMatrix(node),
			Parent: parent,
		})
	}

	for i, n := range order {
		node := e.doc.Nodes[n]
		if node.Mesh == nil || node.Skin != nil {
			continue
		}
		if err := e.appendMesh(asset, *node.Mesh, i, -1); err != nil {
			return nil, err
		}
	}
	return asset, nil
}

// appendMesh interleaves every triangle primitive of a mesh into the asset. A non-negative
// sceneNode makes static parts; otherwise the parts are skinned and point at skinnedMesh.
func (e *gltfMeshExtractorImpl) appendMesh(asset *model.MeshAsset, meshIdx, sceneNode, skinnedMesh int) error {
	if meshIdx < 0 || meshIdx >= len(e.doc.Meshes) {
		return fmt.Errorf("mesh index %d out of range", meshIdx)
	}
	gm := e.doc.Meshes[meshIdx]

	for pi, prim := range gm.Primitives {
		data, err := e.readPrimitive(prim, false)
		if err != nil {
			return fmt.Errorf("mesh %d primitive %d: %w", meshIdx, pi, err)
		}
		if data == nil {
			continue
		}

		offset, count := appendGeometry(asset, data)
		asset.Parts = append(asset.Parts, model.MeshPart{
			Name:             fmt.Sprintf("%s/%d", gm.Name, pi),
			IsStaticBody:     sceneNode >= 0,
			SceneNodeIndex:   sceneNode,
			SkinnedMeshIndex: skinnedMesh,
			IndexOffset:      offset,
			IndexCount:       count,
			MaterialIndex:    data.material,
		})
	}
	return nil
}

// flattenScene walks the default scene depth first so parents precede children. It returns
// the visited node indices and each node's parent, -1 for roots.
func (e *gltfMeshExtractorImpl) flattenScene() ([]int, []int) {
	parents := make([]int, len(e.doc.Nodes))
	for i := range parents {
		parents[i] = -1
	}
	for i, node := range e.doc.Nodes {
		for _, c := range node.Children {
			if c >= 0 && c < len(parents) {
				parents[c] = i
			}
		}
	}

	var roots []int
	switch {
	case e.doc.Scene != nil && *e.doc.Scene >= 0 && *e.doc.Scene < len(e.doc.Scenes):
		roots = e.doc.Scenes[*e.doc.Scene].Nodes
	case len(e.doc.Scenes) > 0:
		roots = e.doc.Scenes[0].Nodes
	default:
		for i, p := range parents {
			if p < 0 {
				roots = append(roots, i)
			}
		}
	}

	order := make([]int, 0, len(e.doc.Nodes))
	visited := make([]bool, len(e.doc.Nodes))
	var visit func(n, parent int)
	visit = func(n, parent int) {
		if n < 0 || n >= len(visited) || visited[n] {
			return
		}
		visited[n] = true
		parents[n] = parent
		order = append(order, n)
		for _, c := range e.doc.Nodes[n].Children {
			visit(c, n)
		}
	}
	for _, r := range roots {
		visit(r, -1)
	}
	return order, parents
}

// readPrimitive decodes a primitive. It returns nil for non-triangle primitives and, when
// skinned is set, for primitives without JOINTS_0 and WEIGHTS_0.
func (e *gltfMeshExtractorImpl) readPrimitive(prim *gltf.Primitive, skinned bool) (*gltfPrimitiveData, error) {
	if prim.Mode != gltf.PrimitiveTriangles {
		return nil, nil
	}
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, nil
	}
	_, hasJoints := prim.Attributes[gltf.JOINTS_0]
	_, hasWeights := prim.Attributes[gltf.WEIGHTS_0]
	if skinned && !(hasJoints && hasWeights) {
		return nil, nil
	}

	acr, err := e.accessor(posIdx)
	if err != nil {
		return nil, err
	}
	data := &gltfPrimitiveData{material: -1}
	if prim.Material != nil {
		data.material = *prim.Material
	}
	if data.positions, err = modeler.ReadPosition(e.doc, acr, nil); err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}
	vc := len(data.positions)

	if acr, ok, err := e.attribute(prim, gltf.NORMAL, vc); err != nil {
		return nil, err
	} else if ok {
		if data.normals, err = modeler.ReadNormal(e.doc, acr, nil); err != nil {
			return nil, fmt.Errorf("read normals: %w", err)
		}
	}
	if acr, ok, err := e.attribute(prim, gltf.TEXCOORD_0, vc); err != nil {
		return nil, err
	} else if ok {
		if data.uvs, err = modeler.ReadTextureCoord(e.doc, acr, nil); err != nil {
			return nil, fmt.Errorf("read uvs: %w", err)
		}
	}

	if skinned {
		if acr, ok, err := e.attribute(prim, gltf.TANGENT, vc); err != nil {
			return nil, err
		} else if ok {
			if data.tangents, err = modeler.ReadTangent(e.doc, acr, nil); err != nil {
				return nil, fmt.Errorf("read tangents: %w", err)
			}
		}
		if acr, ok, err := e.attribute(prim, gltf.COLOR_0, vc); err != nil {
			return nil, err
		} else if ok {
			if data.colors, err = modeler.ReadColor(e.doc, acr, nil); err != nil {
				return nil, fmt.Errorf("read colors: %w", err)
			}
		}

		acr, _, err := e.attribute(prim, gltf.JOINTS_0, vc)
		if err != nil {
			return nil, err
		}
		if data.joints, err = modeler.ReadJoints(e.doc, acr, nil); err != nil {
			return nil, fmt.Errorf("read joints: %w", err)
		}
		acr, _, err = e.attribute(prim, gltf.WEIGHTS_0, vc)
		if err != nil {
			return nil, err
		}
		if data.weights, err = modeler.ReadWeights(e.doc, acr, nil); err != nil {
			return nil, fmt.Errorf("read weights: %w", err)
		}
	}

	if prim.Indices != nil {
		acr, err := e.accessor(*prim.Indices)
		if err != nil {
			return nil, err
		}
		if data.indices, err = modeler.ReadIndices(e.doc, acr, nil); err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
		for i, idx := range data.indices {
			if int(idx) >= vc {
				return nil, fmt.Errorf("index %d at %d exceeds %d vertices", idx, i, vc)
			}
		}
	} else {
		data.indices = make([]uint32, vc)
		for i := range data.indices {
			data.indices[i] = uint32(i)
		}
	}
	data.indices = data.indices[:len(data.indices)/3*3]
	return data, nil
}

func (e *gltfMeshExtractorImpl) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(e.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", idx)
	}
	return e.doc.Accessors[idx], nil
}

// attribute looks up an optional vertex attribute and checks its element count.
func (e *gltfMeshExtractorImpl) attribute(prim *gltf.Primitive, name string, vertexCount int) (*gltf.Accessor, bool, error) {
	idx, ok := prim.Attributes[name]
	if !ok {
		return nil, false, nil
	}
	acr, err := e.accessor(idx)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", name, err)
	}
	if acr.Count != vertexCount {
		return nil, false, fmt.Errorf("%s has %d elements for %d vertices", name, acr.Count, vertexCount)
	}
	return acr, true, nil
}

// appendGeometry interleaves a primitive into the asset with the default layout and returns
// the index range it occupies.
func appendGeometry(asset *model.MeshAsset, data *gltfPrimitiveData) (int, int) {
	base := uint32(asset.VertexCount())
	for v, p := range data.positions {
		asset.Vertices = append(asset.Vertices, p[0], p[1], p[2])
		if data.normals != nil {
			n := data.normals[v]
			asset.Vertices = append(asset.Vertices, n[0], n[1], n[2])
		} else {
			asset.Vertices = append(asset.Vertices, 0, 1, 0)
		}
		if data.uvs != nil {
			asset.Vertices = append(asset.Vertices, data.uvs[v][0], data.uvs[v][1])
		} else {
			asset.Vertices = append(asset.Vertices, 0, 0)
		}
	}

	offset := len(asset.Indices)
	for _, idx := range data.indices {
		asset.Indices = append(asset.Indices, base+idx)
	}
	return offset, len(data.indices)
}
