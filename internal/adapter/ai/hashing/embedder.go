// Package hashing is an offline embedder. It hashes word unigrams, bigrams
// and character trigrams into a fixed number of buckets, so texts sharing
// surface features end up close under cosine similarity.
package hashing

import (
	"context"
	"hash/fnv"

	"github.com/seu-repo/botcore/internal/nlu/index"
	"github.com/seu-repo/botcore/internal/nlu/text"
)

const DefaultDimensions = 256

type Embedder struct {
	dim int
}

func New(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &Embedder{dim: dimensions}
}

func (e *Embedder) Name() string { return "hashing" }

func (e *Embedder) Dimensions() int { return e.dim }

func (e *Embedder) Embed(ctx context.Context, s string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, e.dim)
	tokens := text.Tokens(s)
	for i, tok := range tokens {
		e.add(vec, "w:"+tok, 1)
		if i > 0 {
			e.add(vec, "b:"+tokens[i-1]+" "+tok, 0.5)
		}
		padded := []rune("#" + tok + "#")
		for j := 0; j+3 <= len(padded); j++ {
			e.add(vec, "c:"+string(padded[j:j+3]), 0.5)
		}
	}
	return index.Normalize(vec), nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// add uses one hash bit as the sign so collisions tend to cancel.
func (e *Embedder) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	bucket := int(sum % uint64(e.dim))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[bucket] += weight
}
