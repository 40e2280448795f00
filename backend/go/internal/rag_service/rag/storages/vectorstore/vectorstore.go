package vectorstore

import (
	"sort"

	"PrepBot/backend/go/internal/rag_service/rag/schema"
)

// sortHits orders hits by ascending distance; equal distances keep insertion order.
func sortHits(hits []schema.ScoredDocument) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Document.Ordinal < hits[j].Document.Ordinal
	})
}

// squaredL2 returns the squared Euclidean distance between equal-length vectors.
func squaredL2(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(sum)
}
