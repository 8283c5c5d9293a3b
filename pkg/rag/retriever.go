package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/castellsqa/enxaneta/pkg/config"
	"github.com/castellsqa/enxaneta/pkg/embedders"
)

// ErrNoRelevantDocs signals that nothing cleared the similarity floor. The
// orchestrator maps it to a friendly "no relevant information" answer.
var ErrNoRelevantDocs = errors.New("no sufficiently relevant information found")

// Searcher is the nearest-neighbour backend. *Store satisfies it.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, k int, f Filters) ([]Document, error)
}

// Reranker reorders filtered candidates and truncates to k. The default
// trusts the store's cosine ordering; a cross-encoder can be plugged in.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []Document, k int) ([]Document, error)
}

type truncateReranker struct{}

func (truncateReranker) Rerank(_ context.Context, _ string, docs []Document, k int) ([]Document, error) {
	if len(docs) > k {
		docs = docs[:k]
	}
	return docs, nil
}

// Result is the assembled retrieval output.
type Result struct {
	Documents []Document
	Context   string
}

// Retriever runs the retrieval pipeline. All fields are shared and
// read-only per request.
type Retriever struct {
	embedder embedders.Embedder
	store    Searcher
	reranker Reranker
	cfg      config.RAGConfig
	logger   *slog.Logger
}

func NewRetriever(embedder embedders.Embedder, store Searcher, cfg config.RAGConfig, logger *slog.Logger) *Retriever {
	return &Retriever{
		embedder: embedder,
		store:    store,
		reranker: truncateReranker{},
		cfg:      cfg,
		logger:   logger,
	}
}

// WithReranker swaps in a non-default reranker.
func (r *Retriever) WithReranker(rr Reranker) *Retriever {
	r.reranker = rr
	return r
}

// Retrieve embeds the query, searches initial K candidates constrained by
// the metadata filters, filters by the similarity floor, reranks to final K,
// and assembles the numbered context.
func (r *Retriever) Retrieve(ctx context.Context, query string, f Filters) (*Result, error) {
	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	embedding = embedders.Normalize(embedding)

	docs, err := r.store.Search(ctx, embedding, r.cfg.InitialK, f)
	if err != nil {
		return nil, err
	}

	filtered := FilterBySimilarity(docs, r.cfg.MinSimilarity)
	if len(filtered) == 0 {
		r.logger.Debug("retrieval below similarity floor",
			"candidates", len(docs), "min_similarity", r.cfg.MinSimilarity)
		return nil, ErrNoRelevantDocs
	}

	final, err := r.reranker.Rerank(ctx, query, filtered, r.cfg.FinalK)
	if err != nil {
		return nil, fmt.Errorf("reranking: %w", err)
	}

	r.logger.Debug("retrieval complete",
		"candidates", len(docs), "filtered", len(filtered), "final", len(final))

	return &Result{
		Documents: final,
		Context:   AssembleContext(final),
	}, nil
}

// FilterBySimilarity keeps documents at or above the floor, preserving
// order.
func FilterBySimilarity(docs []Document, minSimilarity float64) []Document {
	var kept []Document
	for _, d := range docs {
		if d.Similarity >= minSimilarity {
			kept = append(kept, d)
		}
	}
	return kept
}

// AssembleContext renders documents as numbered blocks.
func AssembleContext(docs []Document) string {
	var b strings.Builder
	for i, d := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Document %d]\n%s", i+1, d.Text)
	}
	return b.String()
}
