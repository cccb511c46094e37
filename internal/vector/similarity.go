package vector

import "math"

// L2Distance returns the Euclidean distance between two vectors.
func L2Distance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Similarity maps an L2 distance to a score in (0,1]: distance 0 gives 1.0,
// larger distances fall asymptotically toward 0. This is the canonical
// normalization for the whole system; swapping in an engine with different
// distance semantics (e.g. cosine that needs linear rescaling) requires
// changing only this function.
func Similarity(distance float64) float64 {
	return 1.0 / (1.0 + distance)
}
