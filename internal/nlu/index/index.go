// Package index is a brute-force cosine similarity index over phrase vectors.
package index

import (
	"fmt"
	"math"
	"sort"
)

type Entry struct {
	ID     string
	Vector []float32
}

type Hit struct {
	ID    string
	Score float64
}

// Index holds unit-normalized vectors in insertion order. It is read-only
// after New and safe for concurrent queries.
type Index struct {
	ids  []string
	vecs [][]float32
	dim  int
}

func New(entries []Entry) (*Index, error) {
	idx := &Index{
		ids:  make([]string, 0, len(entries)),
		vecs: make([][]float32, 0, len(entries)),
	}
	for i, e := range entries {
		if i == 0 {
			idx.dim = len(e.Vector)
		}
		if len(e.Vector) != idx.dim {
			return nil, fmt.Errorf("index: entry %s has dimension %d, expected %d", e.ID, len(e.Vector), idx.dim)
		}
		idx.ids = append(idx.ids, e.ID)
		idx.vecs = append(idx.vecs, Normalize(e.Vector))
	}
	return idx, nil
}

func (i *Index) Len() int        { return len(i.ids) }
func (i *Index) Dimensions() int { return i.dim }

// Query returns up to k hits by cosine similarity, descending. Equal scores
// keep insertion order. Scores are clamped to [-1, 1].
func (i *Index) Query(vector []float32, k int) ([]Hit, error) {
	if k <= 0 || len(i.ids) == 0 {
		return nil, nil
	}
	if len(vector) != i.dim {
		return nil, fmt.Errorf("index: query has dimension %d, expected %d", len(vector), i.dim)
	}

	q := Normalize(vector)
	hits := make([]Hit, len(i.ids))
	for n, v := range i.vecs {
		hits[n] = Hit{ID: i.ids[n], Score: clamp(dot(q, v))}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score > hits[b].Score
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Normalize returns a unit-length copy of v. A zero vector stays zero.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for n, x := range v {
		out[n] = float32(float64(x) / norm)
	}
	return out
}

// Cosine computes the cosine similarity of two vectors of equal length.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	return clamp(dot(Normalize(a), Normalize(b)))
}

func dot(a, b []float32) float64 {
	var s float64
	for n := range a {
		s += float64(a[n]) * float64(b[n])
	}
	return s
}

func clamp(x float64) float64 {
	switch {
	case x > 1:
		return 1
	case x < -1:
		return -1
	}
	return x
}
