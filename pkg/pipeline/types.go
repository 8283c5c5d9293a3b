package pipeline

import (
	"time"

	"github.com/castellsqa/enxaneta/pkg/entities"
)

// Request is one inbound question.
type Request struct {
	Content         string           `json:"content"`
	SessionID       string           `json:"session_id,omitempty"`
	PreviousContext *PreviousContext `json:"previous_context,omitempty"`
}

// PreviousContext carries the prior turn so follow-up questions can be
// routed with it in view.
type PreviousContext struct {
	Question     string            `json:"question"`
	Response     string            `json:"response"`
	Route        string            `json:"route"`
	SQLQueryType string            `json:"sql_query_type,omitempty"`
	Entities     entities.Entities `json:"entities"`
}

// Response is the full answer envelope. Content echoes the question;
// Response holds the prose. The API always answers 200 with this shape,
// failures included.
type Response struct {
	Content            string             `json:"content"`
	Response           string             `json:"response"`
	RouteUsed          string             `json:"route_used"`
	SQLQueryType       string             `json:"sql_query_type,omitempty"`
	ResponseTimeMs     int64              `json:"response_time_ms"`
	SessionID          string             `json:"session_id,omitempty"`
	TableData          *TableData         `json:"table_data,omitempty"`
	IdentifiedEntities *entities.Entities `json:"identified_entities,omitempty"`
	Timestamp          time.Time          `json:"timestamp"`
}

// RoutePreview is the routing stage alone, used by the UI to show what the
// system understood before answering.
type RoutePreview struct {
	RouteUsed          string            `json:"route_used"`
	SQLQueryType       string            `json:"sql_query_type,omitempty"`
	IdentifiedEntities entities.Entities `json:"identified_entities"`
}
