package loader

import "github.com/qmuntal/gltf"

// loaderBackend defines the generic interface for importing assets from files or decoded
// documents. Concrete implementations (e.g., gltfLoaderBackendImpl) handle format-specific details.
type loaderBackend interface {
	// Load performs a full import from the given file path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *Asset: the imported asset
	//   - error: error if loading fails
	Load(path string) (*Asset, error)

	// LoadDocument performs a full import of a decoded document.
	//
	// Parameters:
	//   - doc: the glTF document
	//
	// Returns:
	//   - *Asset: the imported asset
	//   - error: error if extraction fails
	LoadDocument(doc *gltf.Document) (*Asset, error)
}
