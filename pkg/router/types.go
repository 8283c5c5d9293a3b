// Package router decides, per question, which answering strategy to run:
// a canned direct reply, semantic retrieval, a parameterized SQL query, or
// both. It chains cheap deterministic pre-checks, one LLM classification
// call, a fuzzy post-classifier for borderline routes, and strict validation
// of every entity the model emitted.
package router

import (
	"github.com/castellsqa/enxaneta/pkg/entities"
)

// Tool is the strategy chosen for a question.
type Tool string

const (
	ToolDirect Tool = "direct"
	ToolRAG    Tool = "rag"
	ToolSQL    Tool = "sql"
	ToolHybrid Tool = "hybrid"
)

// ValidTool reports whether t belongs to the closed route set.
func ValidTool(t Tool) bool {
	switch t {
	case ToolDirect, ToolRAG, ToolSQL, ToolHybrid:
		return true
	}
	return false
}

// QueryKind names a recognized structured-question pattern. Every kind other
// than KindCustom maps to a fixed SQL template.
type QueryKind string

const (
	KindBestEvent              QueryKind = "bestEvent"
	KindBestConstruction       QueryKind = "bestConstruction"
	KindConstructionHistory    QueryKind = "constructionHistory"
	KindLocationPerformances   QueryKind = "locationPerformances"
	KindFirstConstruction      QueryKind = "firstConstruction"
	KindConstructionStatistics QueryKind = "constructionStatistics"
	KindYearSummary            QueryKind = "yearSummary"
	KindContestRanking         QueryKind = "contestRanking"
	KindContestHistory         QueryKind = "contestHistory"
	KindCustom                 QueryKind = "custom"
)

// ValidQueryKind reports whether k is a recognized query kind.
func ValidQueryKind(k QueryKind) bool {
	switch k {
	case KindBestEvent, KindBestConstruction, KindConstructionHistory,
		KindLocationPerformances, KindFirstConstruction,
		KindConstructionStatistics, KindYearSummary,
		KindContestRanking, KindContestHistory, KindCustom:
		return true
	}
	return false
}

// Decision is the validated routing result. Produced once per request, then
// immutable.
type Decision struct {
	Tool           Tool              `json:"tool"`
	SQLQueryType   QueryKind         `json:"sql_query_type,omitempty"`
	DirectResponse string            `json:"direct_response,omitempty"`
	Entities       entities.Entities `json:"entities"`
}
