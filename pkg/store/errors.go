package store

import (
	"errors"
	"fmt"
)

// ErrNoResults signals a query that ran fine but matched nothing. It is
// expected control flow on the SQL path, not a failure.
var ErrNoResults = errors.New("no results found")

// QueryError wraps SQL or transport failures from the relational store.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query error (%s): %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// IsNoResults reports whether err is the empty-result sentinel.
func IsNoResults(err error) bool {
	return errors.Is(err, ErrNoResults)
}
