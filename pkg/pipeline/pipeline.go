// Package pipeline orchestrates one question end to end: route, dispatch to
// the chosen strategy, synthesize prose, attach the table side channel.
// Every failure is caught here and mapped to a friendly Catalan message; the
// caller always receives a well-formed response.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/castellsqa/enxaneta/pkg/answerer"
	"github.com/castellsqa/enxaneta/pkg/config"
	"github.com/castellsqa/enxaneta/pkg/entities"
	"github.com/castellsqa/enxaneta/pkg/rag"
	"github.com/castellsqa/enxaneta/pkg/router"
	"github.com/castellsqa/enxaneta/pkg/sqlgen"
	"github.com/castellsqa/enxaneta/pkg/store"
	"github.com/castellsqa/enxaneta/pkg/utils"
)

// Collaborator contracts, satisfied by the concrete packages and stubbed in
// tests.
type Router interface {
	Route(ctx context.Context, question string) (router.Decision, error)
}

type Executor interface {
	Query(ctx context.Context, sql string, args pgx.NamedArgs) ([]store.Row, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, query string, f rag.Filters) (*rag.Result, error)
}

type Answerer interface {
	Answer(ctx context.Context, req answerer.Request) (string, error)
}

type CustomGenerator interface {
	Generate(ctx context.Context, question string, e entities.Entities) (sqlgen.Query, error)
}

// Pipeline wires the stages together. One instance serves all requests;
// request state lives on the stack.
type Pipeline struct {
	router    Router
	executor  Executor
	retriever Retriever
	answerer  Answerer
	custom    CustomGenerator
	tokens    *utils.TokenCounter
	cfg       config.PipelineConfig
	metrics   *Metrics
	logger    *slog.Logger
}

func New(r Router, exec Executor, ret Retriever, ans Answerer, custom CustomGenerator,
	tokens *utils.TokenCounter, cfg config.PipelineConfig, metrics *Metrics, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		router:    r,
		executor:  exec,
		retriever: ret,
		answerer:  ans,
		custom:    custom,
		tokens:    tokens,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
	}
}

// ProcessQuestion runs the full pipeline. It never returns an error: any
// failure becomes a response with the generic message and route "error".
func (p *Pipeline) ProcessQuestion(ctx context.Context, req Request) Response {
	start := time.Now()
	requestID := uuid.NewString()
	logger := p.logger.With("request_id", requestID)

	decision, err := p.router.Route(ctx, req.Content)
	if err != nil {
		logger.Error("routing failed", "error", err)
		p.metrics.observeError("route")
		return p.respond(req, start, RouteError, "", MsgGenericError, nil, nil)
	}

	resp := p.dispatch(ctx, req, decision, logger)
	resp.ResponseTimeMs = time.Since(start).Milliseconds()
	p.metrics.observeRequest(resp.RouteUsed, time.Since(start).Seconds())
	return resp
}

// GetRoute runs the pipeline up to and including routing.
func (p *Pipeline) GetRoute(ctx context.Context, req Request) (RoutePreview, error) {
	decision, err := p.router.Route(ctx, req.Content)
	if err != nil {
		return RoutePreview{}, err
	}
	return RoutePreview{
		RouteUsed:          string(decision.Tool),
		SQLQueryType:       string(decision.SQLQueryType),
		IdentifiedEntities: decision.Entities,
	}, nil
}

func (p *Pipeline) dispatch(ctx context.Context, req Request, decision router.Decision, logger *slog.Logger) Response {
	start := time.Now()

	switch decision.Tool {
	case router.ToolDirect:
		return p.respond(req, start, string(router.ToolDirect), "", decision.DirectResponse, nil, &decision.Entities)

	case router.ToolRAG:
		text, err := p.answerRAG(ctx, req.Content, decision.Entities)
		if err != nil {
			if errors.Is(err, rag.ErrNoRelevantDocs) {
				return p.respond(req, start, string(router.ToolRAG), "", MsgNoRelevantInfo, nil, &decision.Entities)
			}
			logger.Error("rag path failed", "error", err)
			p.metrics.observeError("rag")
			return p.respond(req, start, RouteError, "", MsgGenericError, nil, nil)
		}
		return p.respond(req, start, string(router.ToolRAG), "", text, nil, &decision.Entities)

	case router.ToolSQL:
		text, table, err := p.answerSQL(ctx, req.Content, decision)
		if err != nil {
			logger.Error("sql path failed", "error", err, "sql_query_type", decision.SQLQueryType)
			p.metrics.observeError("sql")
			return p.respond(req, start, RouteError, "", MsgGenericError, nil, nil)
		}
		return p.respond(req, start, string(router.ToolSQL), string(decision.SQLQueryType), text, table, &decision.Entities)

	case router.ToolHybrid:
		text, table, err := p.answerHybrid(ctx, req.Content, decision, logger)
		if err != nil {
			logger.Error("hybrid path failed", "error", err)
			p.metrics.observeError("hybrid")
			return p.respond(req, start, RouteError, "", MsgGenericError, nil, nil)
		}
		return p.respond(req, start, string(router.ToolHybrid), string(decision.SQLQueryType), text, table, &decision.Entities)
	}

	logger.Error("unroutable decision", "tool", decision.Tool)
	return p.respond(req, start, RouteError, "", MsgGenericError, nil, nil)
}

func (p *Pipeline) respond(req Request, start time.Time, route, kind, text string, table *TableData, ents *entities.Entities) Response {
	return Response{
		Content:            req.Content,
		Response:           text,
		RouteUsed:          route,
		SQLQueryType:       kind,
		ResponseTimeMs:     time.Since(start).Milliseconds(),
		SessionID:          req.SessionID,
		TableData:          table,
		IdentifiedEntities: ents,
		Timestamp:          time.Now().UTC(),
	}
}

// runSQL builds and executes the structured query, falling back to the
// custom generator when the template rejects the entities.
func (p *Pipeline) runSQL(ctx context.Context, question string, decision router.Decision) ([]store.Row, router.QueryKind, error) {
	kind := decision.SQLQueryType

	var query sqlgen.Query
	var err error
	if kind == router.KindCustom {
		query, err = p.custom.Generate(ctx, question, decision.Entities)
	} else {
		query, err = sqlgen.Build(kind, decision.Entities)
		if errors.Is(err, sqlgen.ErrTemplateRejected) {
			kind = router.KindCustom
			query, err = p.custom.Generate(ctx, question, decision.Entities)
		}
	}
	if err != nil {
		return nil, kind, err
	}

	rows, err := p.executor.Query(ctx, query.SQL, query.Args)
	if err != nil {
		return nil, kind, err
	}
	return rows, kind, nil
}

// answerSQL produces the prose and table for a pure SQL route. A no-results
// condition is an answer, not an error.
func (p *Pipeline) answerSQL(ctx context.Context, question string, decision router.Decision) (string, *TableData, error) {
	rows, kind, err := p.runSQL(ctx, question, decision)
	if err != nil {
		if store.IsNoResults(err) {
			return MsgNoResults, nil, nil
		}
		return "", nil, err
	}

	table := BuildTableData(kind, rows, p.cfg.ResultLimitUI)
	sqlContext := p.truncate(renderSQLContext(rows, p.cfg.ResultLimitLLM))

	text, err := p.answerer.Answer(ctx, answerer.Request{
		Question:   question,
		Strategy:   string(kind),
		SQLContext: sqlContext,
	})
	if err != nil {
		return "", nil, err
	}
	return text, table, nil
}

// ragFilters maps routed entities onto the chunk metadata arrays.
func ragFilters(e entities.Entities) rag.Filters {
	return rag.Filters{
		Years:  e.Years,
		Teams:  e.Teams,
		Places: e.Places,
	}
}

func (p *Pipeline) answerRAG(ctx context.Context, question string, e entities.Entities) (string, error) {
	result, err := p.retriever.Retrieve(ctx, question, ragFilters(e))
	if err != nil {
		return "", err
	}

	return p.answerer.Answer(ctx, answerer.Request{
		Question:   question,
		Strategy:   answerer.StrategyRAG,
		RAGContext: p.truncate(result.Context),
	})
}

// answerHybrid runs the SQL and RAG stages concurrently and merges. SQL
// failure degrades to RAG-only; RAG failure degrades to SQL-only; only both
// failing is an error. The SQL context always precedes the document context.
func (p *Pipeline) answerHybrid(ctx context.Context, question string, decision router.Decision, logger *slog.Logger) (string, *TableData, error) {
	var (
		rows    []store.Row
		kind    router.QueryKind
		sqlErr  error
		ragRes  *rag.Result
		ragErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, kind, sqlErr = p.runSQL(gctx, question, decision)
		return nil
	})
	g.Go(func() error {
		ragRes, ragErr = p.retriever.Retrieve(gctx, question, ragFilters(decision.Entities))
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", nil, err
	}

	if sqlErr != nil && store.IsNoResults(sqlErr) {
		sqlErr = fmt.Errorf("hybrid sql: %w", sqlErr)
		rows = nil
	}
	if sqlErr != nil {
		logger.Warn("hybrid sql stage failed, continuing with rag", "error", sqlErr)
	}
	if ragErr != nil {
		logger.Warn("hybrid rag stage failed, continuing with sql", "error", ragErr)
	}
	if sqlErr != nil && ragErr != nil {
		return "", nil, fmt.Errorf("both hybrid stages failed: sql: %v; rag: %w", sqlErr, ragErr)
	}

	req := answerer.Request{
		Question: question,
		Strategy: answerer.StrategyHybrid,
	}
	var table *TableData
	if sqlErr == nil && len(rows) > 0 {
		table = BuildTableData(kind, rows, p.cfg.ResultLimitUI)
		req.SQLContext = p.truncate(renderSQLContext(rows, p.cfg.ResultLimitLLM))
	}
	if ragErr == nil && ragRes != nil {
		req.RAGContext = p.truncate(ragRes.Context)
	}

	text, err := p.answerer.Answer(ctx, req)
	if err != nil {
		return "", nil, err
	}
	return text, table, nil
}

// truncate bounds a context block by the configured token budget.
func (p *Pipeline) truncate(text string) string {
	if p.tokens == nil || p.cfg.ContextTokenBudget <= 0 {
		return text
	}
	return p.tokens.Truncate(text, p.cfg.ContextTokenBudget)
}
