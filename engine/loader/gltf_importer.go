package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-skin/engine/animation"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
)

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct {
	doc    *gltf.Document
	logger *log.Logger
}

// gltfImporter defines the interface for orchestrating a full import of one glTF document.
// It runs the skeleton, animation and mesh extractors in dependency order.
type gltfImporter interface {
	// Import extracts the skeleton of the first skin, every animation retargeted onto it, the
	// skinned meshes bound to it and the mesh asset.
	//
	// Returns:
	//   - *Asset: the imported asset
	//   - error: error if any extractor fails
	Import() (*Asset, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a new glTF importer for a decoded document.
//
// Parameters:
//   - doc: the glTF document
//   - logger: logger for skipped content
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter(doc *gltf.Document, logger *log.Logger) gltfImporter {
	return &gltfImporterImpl{doc: doc, logger: logger}
}

func (imp *gltfImporterImpl) Import() (*Asset, error) {
	asset := &Asset{}

	var binding *gltfSkinBinding
	if len(imp.doc.Skins) > 0 {
		if len(imp.doc.Skins) > 1 {
			imp.logger.Warn("only the first skin is imported", "skins", len(imp.doc.Skins))
		}

		skel, b, err := newGLTFSkeletonExtractor(imp.doc).ExtractSkeleton(0)
		if err != nil {
			return nil, fmt.Errorf("skeleton extraction failed: %w", err)
		}
		asset.Skeleton = skel
		binding = b

		anims, err := newGLTFAnimationExtractor(imp.doc, imp.logger).ExtractAnimations(skel, binding)
		if err != nil {
			return nil, fmt.Errorf("animation extraction failed: %w", err)
		}
		asset.Animations = anims
	} else if len(imp.doc.Animations) > 0 {
		imp.logger.Warn("animations ignored, document has no skin", "animations", len(imp.doc.Animations))
	}

	meshExtractor := newGLTFMeshExtractor(imp.doc, imp.logger)

	// Skinned meshes are extracted once per glTF mesh even when several nodes instance it.
	skinnedMeshes := make(map[int]int)
	if binding != nil {
		for _, node := range imp.doc.Nodes {
			if node.Mesh == nil || node.Skin == nil {
				continue
			}
			if *node.Skin != binding.skin {
				imp.logger.Warn("mesh bound to an unimported skin skipped", "node", node.Name, "skin", *node.Skin)
				continue
			}
			if _, ok := skinnedMeshes[*node.Mesh]; ok {
				continue
			}

			mesh, err := meshExtractor.ExtractSkinnedMesh(*node.Mesh, binding)
			if err != nil {
				return nil, fmt.Errorf("mesh %d: %w", *node.Mesh, err)
			}
			if len(mesh.Parts) == 0 {
				continue
			}
			skinnedMeshes[*node.Mesh] = len(asset.Meshes)
			asset.Meshes = append(asset.Meshes, mesh)
		}
	}

	meshAsset, err := meshExtractor.ExtractMeshAsset(skinnedMeshes)
	if err != nil {
		return nil, fmt.Errorf("mesh asset extraction failed: %w", err)
	}
	asset.MeshAsset = meshAsset

	return asset, nil
}

// gltfAssetName returns the document's scene name, falling back to the first mesh name.
func gltfAssetName(doc *gltf.Document) string {
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) && doc.Scenes[*doc.Scene].Name != "" {
		return doc.Scenes[*doc.Scene].Name
	}
	for _, m := range doc.Meshes {
		if m.Name != "" {
			return m.Name
		}
	}
	return "asset"
}

// gltfRestTransform converts a node's local transform into an animation transform. A node
// carrying a matrix is decomposed, assuming no shear.
func gltfRestTransform(node *gltf.Node) animation.Transform {
	m := mat4Of(node.MatrixOrDefault())
	if m != mgl32.Ident4() {
		return decomposeMatrix(m)
	}
	return animation.Transform{
		Translation: vec3Of(node.TranslationOrDefault()),
		Rotation:    quatOf(node.RotationOrDefault()),
		Scale:       vec3Of(node.ScaleOrDefault()),
	}
}
