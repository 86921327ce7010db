package mining

import "math"

// EuclideanDistance computes the distance between two equal-length dense
// vectors. Used by the centroid strategy, where centroids are fractional.
func EuclideanDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// JaccardDistance computes 1 - |A∩B| / |A∪B| over two permission sets.
// Two empty sets are identical (0.0); exactly one empty set is maximally
// distant (1.0).
func JaccardDistance(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 1.0
	}
	smaller, larger := a, b
	if len(b) < len(a) {
		smaller, larger = b, a
	}
	intersection := 0
	for key := range smaller {
		if _, ok := larger[key]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return 1.0 - float64(intersection)/float64(union)
}

// JaccardSimilarity is the complement of JaccardDistance.
func JaccardSimilarity(a, b map[string]struct{}) float64 {
	return 1.0 - JaccardDistance(a, b)
}
