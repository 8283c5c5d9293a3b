// Package vocab maintains the canonical vocabularies (teams, places, events,
// construction codes, contest editions) the router validates entities
// against. The catalog is loaded once at startup from the relational store
// and replaced atomically on explicit reload; readers always see a complete
// snapshot.
package vocab

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Source runs a single-column query. *store.Store satisfies it.
type Source interface {
	QueryStrings(ctx context.Context, sql string) ([]string, error)
}

// Kind names a vocabulary.
type Kind string

const (
	KindTeam         Kind = "team"
	KindPlace        Kind = "place"
	KindEvent        Kind = "event"
	KindConstruction Kind = "construction"
	KindEdition      Kind = "edition"
)

var loadQueries = map[Kind]string{
	KindTeam:         `SELECT DISTINCT name FROM colles ORDER BY name`,
	KindPlace:        `SELECT DISTINCT city FROM events WHERE city IS NOT NULL ORDER BY city`,
	KindEvent:        `SELECT DISTINCT name FROM events ORDER BY name`,
	KindConstruction: `SELECT DISTINCT castell_code FROM puntuacions ORDER BY castell_code`,
	KindEdition:      `SELECT DISTINCT edition FROM concurs ORDER BY edition`,
}

// snapshot is an immutable view of every vocabulary. canonical maps folded
// form to display form.
type snapshot struct {
	values    map[Kind][]string
	canonical map[Kind]map[string]string
}

// Catalog is the process-wide vocabulary cache.
type Catalog struct {
	source Source
	snap   atomic.Pointer[snapshot]
}

func NewCatalog(source Source) *Catalog {
	c := &Catalog{source: source}
	c.snap.Store(emptySnapshot())
	return c
}

// NewStaticCatalog builds a catalog from fixed value lists; used by tests
// and offline tooling.
func NewStaticCatalog(values map[Kind][]string) *Catalog {
	c := &Catalog{}
	c.snap.Store(buildSnapshot(values))
	return c
}

func emptySnapshot() *snapshot {
	return buildSnapshot(map[Kind][]string{})
}

func buildSnapshot(values map[Kind][]string) *snapshot {
	snap := &snapshot{
		values:    make(map[Kind][]string, len(values)),
		canonical: make(map[Kind]map[string]string, len(values)),
	}
	for kind, vals := range values {
		snap.values[kind] = vals
		folded := make(map[string]string, len(vals))
		for _, v := range vals {
			folded[Fold(v)] = v
		}
		snap.canonical[kind] = folded
	}
	return snap
}

// Reload loads every vocabulary from the source and swaps the snapshot in
// one atomic store. Callers invoke it once at startup (prewarm) and on an
// explicit reload signal only.
func (c *Catalog) Reload(ctx context.Context) error {
	if c.source == nil {
		return fmt.Errorf("catalog has no source")
	}

	values := make(map[Kind][]string, len(loadQueries))
	for kind, query := range loadQueries {
		vals, err := c.source.QueryStrings(ctx, query)
		if err != nil {
			return fmt.Errorf("loading %s vocabulary: %w", kind, err)
		}
		values[kind] = vals
	}

	c.snap.Store(buildSnapshot(values))

	slog.Info("vocabulary catalog loaded",
		"teams", len(values[KindTeam]),
		"places", len(values[KindPlace]),
		"events", len(values[KindEvent]),
		"constructions", len(values[KindConstruction]))
	return nil
}

// Values returns the display forms of a vocabulary. The slice is shared;
// callers must not mutate it.
func (c *Catalog) Values(kind Kind) []string {
	return c.snap.Load().values[kind]
}

// Canonical resolves a value accent-insensitively to its display form.
func (c *Catalog) Canonical(kind Kind, value string) (string, bool) {
	display, ok := c.snap.Load().canonical[kind][Fold(value)]
	return display, ok
}

// Contains reports whether value belongs to the vocabulary after folding.
func (c *Catalog) Contains(kind Kind, value string) bool {
	_, ok := c.Canonical(kind, value)
	return ok
}
