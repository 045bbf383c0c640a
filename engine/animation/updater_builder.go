package animation

// UpdaterBuilderOption is a functional option for configuring an Updater.
type UpdaterBuilderOption func(*updaterImpl)

// WithWorkers sets how many workers sample instances in parallel. One or fewer samples
// serially on the calling goroutine.
//
// Parameters:
//   - workers: the maximum number of pool workers
//
// Returns:
//   - UpdaterBuilderOption: functional option to set the worker count
func WithWorkers(workers int) UpdaterBuilderOption {
	return func(u *updaterImpl) {
		u.workers = workers
	}
}

// WithChunkSize sets how many instances one pool task samples. Instance counts at or below
// the chunk size are sampled serially.
//
// Parameters:
//   - size: instances per task, must be positive
//
// Returns:
//   - UpdaterBuilderOption: functional option to set the chunk size
func WithChunkSize(size int) UpdaterBuilderOption {
	return func(u *updaterImpl) {
		if size > 0 {
			u.chunkSize = size
		}
	}
}
