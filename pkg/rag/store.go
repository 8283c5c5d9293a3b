// Package rag retrieves free-text context for conceptual questions: embed
// the query, nearest-neighbour search over the chunk table, similarity
// floor, rerank, assemble a numbered context.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// Document is one retrieved chunk. Similarity is cosine, already mapped to
// [0,1] where 1 is identical.
type Document struct {
	ID         string
	Title      string
	Text       string
	Category   string
	Similarity float64
}

// VectorStoreError wraps failures talking to the chunk table so the
// orchestrator can tell the RAG path apart from the SQL path.
type VectorStoreError struct {
	Op  string
	Err error
}

func (e *VectorStoreError) Error() string {
	return fmt.Sprintf("vector store %s: %v", e.Op, e.Err)
}

func (e *VectorStoreError) Unwrap() error { return e.Err }

// Store searches the castellers_info_chunks table by cosine distance. The
// ivfflat probe count is set per transaction; more probes trade latency for
// recall.
type Store struct {
	pool   *pgxpool.Pool
	probes int
}

func NewStore(pool *pgxpool.Pool, probes int) *Store {
	if probes <= 0 {
		probes = 10
	}
	return &Store{pool: pool, probes: probes}
}

// Filters narrows candidates via the GIN-indexed metadata arrays on the
// chunk table. Empty fields impose no constraint.
type Filters struct {
	Years  []int
	Teams  []string
	Places []string
}

const searchQueryHead = `SELECT id::text, title, text, category,
	1 - (embedding <=> $1) AS similarity
FROM castellers_info_chunks`

// buildSearchQuery renders the nearest-neighbour query with one array
// overlap condition per non-empty filter. $1 is the embedding, $2 the
// limit; filter params follow.
func buildSearchQuery(f Filters) (string, []interface{}) {
	var conds []string
	var args []interface{}
	next := 3

	if len(f.Years) > 0 {
		conds = append(conds, fmt.Sprintf("years && $%d", next))
		args = append(args, f.Years)
		next++
	}
	if len(f.Teams) > 0 {
		conds = append(conds, fmt.Sprintf("teams && $%d", next))
		args = append(args, f.Teams)
		next++
	}
	if len(f.Places) > 0 {
		conds = append(conds, fmt.Sprintf("places && $%d", next))
		args = append(args, f.Places)
	}

	sql := searchQueryHead
	if len(conds) > 0 {
		sql += "\nWHERE " + strings.Join(conds, " AND ")
	}
	sql += "\nORDER BY embedding <=> $1\nLIMIT $2"
	return sql, args
}

// Search returns the k nearest chunks to the query embedding, best first.
func (s *Store) Search(ctx context.Context, embedding []float32, k int, f Filters) ([]Document, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, &VectorStoreError{Op: "begin", Err: err}
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL ivfflat.probes = %d", s.probes)); err != nil {
		return nil, &VectorStoreError{Op: "set probes", Err: err}
	}

	sql, filterArgs := buildSearchQuery(f)
	args := append([]interface{}{pgvector.NewVector(embedding), k}, filterArgs...)
	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, &VectorStoreError{Op: "search", Err: err}
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Text, &d.Category, &d.Similarity); err != nil {
			return nil, &VectorStoreError{Op: "scan", Err: err}
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, &VectorStoreError{Op: "iterate", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &VectorStoreError{Op: "commit", Err: err}
	}
	return docs, nil
}
