package matching

import "math"

// CosineSimilarity returns dot(a,b)/(|a|*|b|) clamped to [0,1]. Empty,
// length-mismatched or zero-magnitude inputs score 0. The result is symmetric
// in a and b.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / math.Sqrt(normA*normB)
	return math.Max(0, math.Min(1, sim))
}
