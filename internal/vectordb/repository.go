package vectordb

import (
	"fmt"
	"math"
	"sort"
)

// ComputeDistance calculates the distance between two vectors under
// the given metric.
func ComputeDistance(v1, v2 []float32, distType DistanceType) (float32, error) {
	if len(v1) != len(v2) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrInvalidDimension, len(v1), len(v2))
	}

	switch distType {
	case Cosine:
		return cosineDistance(v1, v2), nil
	case DotProduct:
		return dotProduct(v1, v2), nil
	case Euclidean:
		return euclideanDistance(v1, v2), nil
	default:
		return 0, fmt.Errorf("unsupported distance type: %s", distType)
	}
}

// cosineDistance is 1 - cosine similarity.
func cosineDistance(v1, v2 []float32) float32 {
	dot := dotProduct(v1, v2)
	norm1 := vectorNorm(v1)
	norm2 := vectorNorm(v2)

	if norm1 == 0 || norm2 == 0 {
		return 1.0
	}

	similarity := dot / (norm1 * norm2)
	// clamp float drift
	if similarity > 1.0 {
		similarity = 1.0
	}
	return 1.0 - similarity
}

func dotProduct(v1, v2 []float32) float32 {
	var dot float32
	for i := 0; i < len(v1); i++ {
		dot += v1[i] * v2[i]
	}
	return dot
}

func euclideanDistance(v1, v2 []float32) float32 {
	var sum float32
	for i := 0; i < len(v1); i++ {
		d := v1[i] - v2[i]
		sum += d * d
	}
	return float32(math.Sqrt(float64(sum)))
}

func vectorNorm(v []float32) float32 {
	var sum float32
	for _, val := range v {
		sum += val * val
	}
	return float32(math.Sqrt(float64(sum)))
}

// normalizeVector scales a vector to unit length. The zero vector is
// returned unchanged.
func normalizeVector(v []float32) []float32 {
	norm := vectorNorm(v)
	if norm == 0 {
		return v
	}
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}
	return result
}

// DistanceToScore maps a raw distance onto a similarity score where
// higher is better. The mapping depends on the metric.
func DistanceToScore(distance float32, distType DistanceType) float32 {
	switch distType {
	case Cosine:
		return 1 - distance
	case DotProduct:
		// normalized vectors land in [-1, 1]; shift into [0, 1]
		return (distance + 1) / 2
	case Euclidean:
		return float32(math.Exp(-float64(distance)))
	default:
		return 0
	}
}

// sortSearchResults orders results by descending score. The sort is
// stable, so equally scored entries keep their incoming order, which
// callers arrange to be document order.
func sortSearchResults(results []SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

// matchDocIDs reports whether an entry's document passes the filter.
func matchDocIDs(docID string, filterIDs []string) bool {
	if len(filterIDs) == 0 {
		return true
	}
	for _, id := range filterIDs {
		if id == docID {
			return true
		}
	}
	return false
}
