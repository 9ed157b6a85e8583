package hashing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seu-repo/botcore/internal/nlu/index"
)

func TestEmbed_Deterministic(t *testing.T) {
	e := New(64)

	a, err := e.Embed(context.Background(), "where is my order")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "where is my order")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.InDelta(t, 1.0, index.Cosine(a, b), 1e-6)
}

func TestEmbed_SharedWordsAreCloser(t *testing.T) {
	e := New(0)
	ctx := context.Background()

	order, _ := e.Embed(ctx, "where is my order")
	track, _ := e.Embed(ctx, "track my order")
	weather, _ := e.Embed(ctx, "sunny weather today")

	assert.Greater(t, index.Cosine(order, track), index.Cosine(order, weather))
}

func TestEmbed_EmptyTextIsZeroVector(t *testing.T) {
	e := New(8)

	v, err := e.Embed(context.Background(), "")

	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestEmbed_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(8).Embed(ctx, "hello")

	assert.ErrorIs(t, err, context.Canceled)
}
