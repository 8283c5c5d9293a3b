package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/castellsqa/enxaneta/pkg/entities"
	"github.com/castellsqa/enxaneta/pkg/llms"
	"github.com/castellsqa/enxaneta/pkg/vocab"
)

// llmDecision is the strict schema the classification model fills in. Every
// entity list must be drawn from the candidate sets given in the prompt;
// validation drops anything it invented.
type llmDecision struct {
	Tool           string   `json:"tool" jsonschema:"enum=direct,enum=rag,enum=sql,enum=hybrid,description=Answering strategy for this question"`
	SQLQueryType   string   `json:"sql_query_type" jsonschema:"description=Structured query kind when tool is sql or hybrid; empty otherwise"`
	DirectResponse string   `json:"direct_response" jsonschema:"description=Reply text when tool is direct; empty otherwise"`
	Teams          []string `json:"teams"`
	Constructions  []struct {
		Code   string `json:"code"`
		Status string `json:"status"`
	} `json:"constructions"`
	Years     []int    `json:"years"`
	Places    []string `json:"places"`
	Events    []string `json:"events"`
	Editions  []string `json:"editions"`
	Tracks    []int    `json:"tracks"`
	Positions []int    `json:"positions"`
}

// Router runs the full decision sequence. All fields are process-wide and
// read-only per request.
type Router struct {
	provider  llms.Provider
	extractor *entities.Extractor
	catalog   *vocab.Catalog
	language  *LanguageFilter
	schema    map[string]interface{}
	hybrid    bool
	logger    *slog.Logger
}

// New builds a router around a resolved classification provider. hybrid
// controls whether the hybrid route is dispatchable; when off, hybrid
// classifications demote to sql.
func New(provider llms.Provider, extractor *entities.Extractor, catalog *vocab.Catalog, hybrid bool, logger *slog.Logger) (*Router, error) {
	schema, err := llms.SchemaFromStruct(llmDecision{})
	if err != nil {
		return nil, fmt.Errorf("building router schema: %w", err)
	}
	return &Router{
		provider:  provider,
		extractor: extractor,
		catalog:   catalog,
		language:  NewLanguageFilter(),
		schema:    schema,
		hybrid:    hybrid,
		logger:    logger,
	}, nil
}

// Route decides the strategy for a question. Pre-check refusals come back as
// direct decisions, never as errors; an error here means the classification
// call itself failed.
func (r *Router) Route(ctx context.Context, question string) (Decision, error) {
	if CheckGuardrail(question) {
		r.logger.Info("guardrail hit", "question_len", len(question))
		return direct(MsgGuardrail), nil
	}
	if !r.language.Accepts(question) {
		r.logger.Info("language rejected")
		return direct(MsgLanguage), nil
	}
	if TooLong(question) {
		return direct(MsgTooLong), nil
	}

	candidates := r.extractor.Extract(question)

	decision, err := r.classify(ctx, question, candidates)
	if err != nil {
		return Decision{}, err
	}

	decision = r.resolveSQLType(question, decision, candidates)
	decision = r.validate(decision)

	if decision.Tool == ToolHybrid && !r.hybrid {
		decision.Tool = ToolSQL
	}

	r.logger.Debug("question routed",
		"tool", decision.Tool,
		"sql_query_type", decision.SQLQueryType)
	return decision, nil
}

func direct(msg string) Decision {
	return Decision{Tool: ToolDirect, DirectResponse: msg}
}

const classifySystemPrompt = `Ets el classificador de preguntes d'un assistent expert en el món casteller.
Per a cada pregunta has de triar l'estratègia de resposta:
- "direct": salutacions, agraïments o preguntes que pots respondre sense dades.
- "rag": preguntes conceptuals sobre història, tècnica o cultura castellera.
- "sql": preguntes sobre resultats, actuacions, estadístiques o el concurs que es responen amb dades.
- "hybrid": preguntes que combinen dades concretes amb context general.
Emet només valors presents a les llistes de candidats que se't donen. No inventis colles, castells ni llocs.`

// classify makes the single LLM call of the routing stage.
func (r *Router) classify(ctx context.Context, question string, candidates entities.Entities) (Decision, error) {
	var user strings.Builder
	user.WriteString("Pregunta: ")
	user.WriteString(question)
	user.WriteString("\n\nCandidats detectats:\n")
	writeCandidates(&user, candidates)
	user.WriteString("\nTipus de consulta SQL reconeguts: bestEvent, bestConstruction, constructionHistory, locationPerformances, firstConstruction, constructionStatistics, yearSummary, contestRanking, contestHistory, custom.\n")

	msgs := llms.Messages{
		System: classifySystemPrompt,
		User:   user.String(),
	}

	var out llmDecision
	if err := r.provider.Parse(ctx, msgs, r.schema, &out); err != nil {
		return Decision{}, fmt.Errorf("router classification: %w", err)
	}

	decision := Decision{
		Tool:           Tool(out.Tool),
		SQLQueryType:   QueryKind(out.SQLQueryType),
		DirectResponse: out.DirectResponse,
		Entities: entities.Entities{
			Teams:     out.Teams,
			Years:     out.Years,
			Places:    out.Places,
			Events:    out.Events,
			Editions:  out.Editions,
			Tracks:    out.Tracks,
			Positions: out.Positions,
		},
	}
	for _, c := range out.Constructions {
		decision.Entities.Constructions = append(decision.Entities.Constructions,
			entities.Construction{Code: c.Code, Status: entities.Status(c.Status)})
	}
	return decision, nil
}

func writeCandidates(b *strings.Builder, e entities.Entities) {
	if len(e.Teams) > 0 {
		fmt.Fprintf(b, "- colles: %s\n", strings.Join(e.Teams, ", "))
	}
	if len(e.Constructions) > 0 {
		codes := make([]string, len(e.Constructions))
		for i, c := range e.Constructions {
			codes[i] = c.Code
		}
		fmt.Fprintf(b, "- castells: %s\n", strings.Join(codes, ", "))
	}
	if len(e.Years) > 0 {
		fmt.Fprintf(b, "- anys: %v\n", e.Years)
	}
	if len(e.Places) > 0 {
		fmt.Fprintf(b, "- llocs: %s\n", strings.Join(e.Places, ", "))
	}
	if len(e.Events) > 0 {
		fmt.Fprintf(b, "- diades: %s\n", strings.Join(e.Events, ", "))
	}
	if e.Empty() {
		b.WriteString("- cap\n")
	}
}

// resolveSQLType applies the fuzzy post-classifier rules on top of the LLM
// decision.
func (r *Router) resolveSQLType(question string, d Decision, candidates entities.Entities) Decision {
	switch d.Tool {
	case ToolDirect, ToolRAG:
		// The model may have missed a structured question even though
		// entities were found; a strong pattern match promotes it.
		if candidates.Empty() && d.Entities.Empty() {
			return d
		}
		threshold := promoteDirectThreshold
		if d.Tool == ToolRAG {
			threshold = promoteRAGThreshold
		}
		if kind, score := classifyQueryKind(question); score >= threshold {
			d.Tool = ToolSQL
			d.SQLQueryType = kind
			d.DirectResponse = ""
		}

	case ToolSQL, ToolHybrid:
		if d.SQLQueryType == "" {
			kind, score := classifyQueryKind(question)
			if score >= defaultKindThreshold {
				d.SQLQueryType = kind
			} else {
				d.SQLQueryType = KindCustom
			}
		}
	}

	// Track or position mentions mean the user wants the ranking itself,
	// not the contest's event history.
	if d.SQLQueryType == KindContestHistory &&
		(len(d.Entities.Tracks) > 0 || len(d.Entities.Positions) > 0) {
		d.SQLQueryType = KindContestRanking
	}

	return d
}

// validate checks every emitted entity against the canonical vocabularies,
// dropping unknowns, and collapses malformed decisions to direct.
func (r *Router) validate(d Decision) Decision {
	if !ValidTool(d.Tool) {
		return direct(MsgUnsure)
	}
	if (d.Tool == ToolSQL || d.Tool == ToolHybrid) && !ValidQueryKind(d.SQLQueryType) {
		return direct(MsgUnsure)
	}

	d.Entities.Teams = r.keepKnown(vocab.KindTeam, d.Entities.Teams)
	d.Entities.Places = r.keepKnown(vocab.KindPlace, d.Entities.Places)
	d.Entities.Events = r.keepKnown(vocab.KindEvent, d.Entities.Events)
	d.Entities.Editions = r.keepKnown(vocab.KindEdition, d.Entities.Editions)

	kept := d.Entities.Constructions[:0]
	for _, c := range d.Entities.Constructions {
		code, ok := r.catalog.Canonical(vocab.KindConstruction, c.Code)
		if !ok {
			continue
		}
		c.Code = code
		if c.Status != "" && !entities.ValidStatus(c.Status) {
			c.Status = ""
		}
		kept = append(kept, c)
	}
	d.Entities.Constructions = kept

	return d
}

// keepKnown resolves values accent-insensitively against a vocabulary and
// keeps the canonical display form; unknowns are dropped, not guessed.
func (r *Router) keepKnown(kind vocab.Kind, values []string) []string {
	var kept []string
	for _, v := range values {
		if display, ok := r.catalog.Canonical(kind, v); ok {
			kept = append(kept, display)
		}
	}
	return kept
}
