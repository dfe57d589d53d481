// Package vector provides the float32 vector codec and distance helpers shared by the stores.
package vector

import "math"

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// CosineDistance returns 1 - cos(a, b), in [0, 2]. Mismatched lengths, empty vectors
// and zero vectors are maximally distant (2) so they never pass a similarity threshold.
// Matches the semantics of the pgvector <=> operator.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}
	na, nb := L2Norm(a), L2Norm(b)
	if na == 0 || nb == 0 {
		return 2
	}
	sim := InnerProduct(a, b) / (na * nb)
	sim = math.Max(-1, math.Min(1, sim))
	return 1 - sim
}
