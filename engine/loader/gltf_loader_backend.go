package loader

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/qmuntal/gltf"
)

// gltfLoaderBackendImpl is the implementation of gltfLoaderBackend.
type gltfLoaderBackendImpl struct {
	logger *log.Logger
}

// gltfLoaderBackend is a loaderBackend implementation for glTF/GLB files.
// It decodes files with qmuntal/gltf and hands the document to a gltfImporter.
type gltfLoaderBackend interface {
	loaderBackend
}

var _ gltfLoaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Parameters:
//   - logger: logger for import warnings
//
// Returns:
//   - gltfLoaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend(logger *log.Logger) gltfLoaderBackend {
	return &gltfLoaderBackendImpl{logger: logger}
}

func (b *gltfLoaderBackendImpl) Load(path string) (*Asset, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}
	return b.LoadDocument(doc)
}

func (b *gltfLoaderBackendImpl) LoadDocument(doc *gltf.Document) (*Asset, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil gltf document")
	}
	return newGLTFImporter(doc, b.logger).Import()
}
