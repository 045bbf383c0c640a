package renderer

// BatchRange is a run of instances drawn by one instanced draw call per mesh part.
type BatchRange struct {
	Start int
	Count int
}

// BatchCount returns ceil(n/size), the number of batches needed for n instances.
func BatchCount(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Batches partitions n instances into batches of at most size instances. Every batch but
// the last is full.
//
// Parameters:
//   - n: instance count
//   - size: maximum instances per batch
//
// Returns:
//   - []BatchRange: the batches in order, empty when n or size is not positive
func Batches(n, size int) []BatchRange {
	out := make([]BatchRange, 0, BatchCount(n, size))
	for start := 0; start < n && size > 0; start += size {
		out = append(out, BatchRange{Start: start, Count: min(size, n-start)})
	}
	return out
}
