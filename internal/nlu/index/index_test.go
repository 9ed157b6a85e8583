package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_OrdersByCosine(t *testing.T) {
	idx, err := New([]Entry{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{0, 3}},
		{ID: "c", Vector: []float32{2, 2}},
	})
	require.NoError(t, err)

	hits, err := idx.Query([]float32{5, 0}, 2)
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "c", hits[1].ID)
	assert.InDelta(t, 0.7071, hits[1].Score, 1e-3)
}

func TestQuery_TiesKeepInsertionOrder(t *testing.T) {
	idx, err := New([]Entry{
		{ID: "second", Vector: []float32{0, 1}},
		{ID: "first", Vector: []float32{0, 2}},
		{ID: "third", Vector: []float32{0, 0.5}},
	})
	require.NoError(t, err)

	hits, err := idx.Query([]float32{0, 1}, 10)
	require.NoError(t, err)

	ids := []string{hits[0].ID, hits[1].ID, hits[2].ID}
	assert.Equal(t, []string{"second", "first", "third"}, ids)
}

func TestQuery_NegativeSimilarityIsKept(t *testing.T) {
	idx, err := New([]Entry{{ID: "a", Vector: []float32{1, 0}}})
	require.NoError(t, err)

	hits, err := idx.Query([]float32{-1, 0}, 1)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, hits[0].Score, 1e-6)
}

func TestNew_DimensionMismatch(t *testing.T) {
	_, err := New([]Entry{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{1, 0, 0}},
	})
	assert.Error(t, err)
}

func TestQuery_DimensionMismatch(t *testing.T) {
	idx, err := New([]Entry{{ID: "a", Vector: []float32{1, 0}}})
	require.NoError(t, err)

	_, err = idx.Query([]float32{1}, 1)
	assert.Error(t, err)
}

func TestNormalize_ZeroVector(t *testing.T) {
	assert.Equal(t, []float32{0, 0}, Normalize([]float32{0, 0}))
}
