package common

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// Grow returns s resliced to length n. The backing array is only reallocated when n exceeds
// cap(s), and a reallocation doubles the capacity (minimum 8). Buffers grown this way never
// shrink, so a caller that reuses the result stops allocating once its peak size is reached.
// Contents past the previous length are unspecified.
//
// Parameters:
//   - s: the scratch slice to reuse
//   - n: required length
//
// Returns:
//   - []T: a slice of length n sharing s's backing array when it fits
func Grow[T any](s []T, n int) []T {
	if n <= cap(s) {
		return s[:n]
	}
	newCap := max(cap(s)*2, 8)
	for newCap < n {
		newCap *= 2
	}
	grown := make([]T, n, newCap)
	copy(grown, s)
	return grown
}
