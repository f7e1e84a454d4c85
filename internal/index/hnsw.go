package index

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"
)

// HNSW parameters for visual embeddings.
const (
	hnswMaxNeighbors   = 16
	hnswSearchHeadroom = 1 // extra neighbor requested to absorb the query image itself
)

// VisualIndex is an in-memory HNSW graph over the store's visual embeddings,
// used by the similar-photos command. It is an acceleration structure only;
// it never outlives the store snapshot it was built from.
type VisualIndex struct {
	graph  *hnsw.Graph[string]
	byPath map[string]Record
	mu     sync.RWMutex
}

// Neighbor is one similar-photo result.
type Neighbor struct {
	Record   Record
	Distance float64 // cosine distance, lower is more similar
}

// BuildVisualIndex builds the graph from every record with an embedding.
func BuildVisualIndex(store *Store) *VisualIndex {
	g := hnsw.NewGraph[string]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance

	v := &VisualIndex{
		graph:  g,
		byPath: make(map[string]Record, store.Len()),
	}
	for _, r := range store.Records() {
		if len(r.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(r.FilePath, r.Embedding))
		v.byPath[r.FilePath] = r
	}
	return v
}

// Len returns the number of embeddings in the graph.
func (v *VisualIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.byPath)
}

// Similar returns up to k records nearest to the query embedding, excluding
// the record at excludePath (typically the query image itself).
func (v *VisualIndex) Similar(query []float32, k int, excludePath string) ([]Neighbor, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if len(v.byPath) == 0 {
		return nil, errors.New("visual index is empty")
	}

	neighbors := v.graph.Search(query, k+hnswSearchHeadroom)
	results := make([]Neighbor, 0, k)
	for _, n := range neighbors {
		if n.Key == excludePath {
			continue
		}
		rec, ok := v.byPath[n.Key]
		if !ok {
			continue
		}
		results = append(results, Neighbor{
			Record:   rec,
			Distance: float64(hnsw.CosineDistance(query, n.Value)),
		})
		if len(results) == k {
			break
		}
	}
	return results, nil
}
