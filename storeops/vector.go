package storeops

import "math"

// Cosine returns the cosine similarity of two equal-length vectors.
// Two zero vectors are identical (1); one zero vector gives 0.
func Cosine(a, b []float32) float64 {
	var dot, magA, magB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		magA += x * x
		magB += y * y
	}

	if magA == 0 && magB == 0 {
		return 1
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
