// Package sqlgen composes parameterized SELECT statements for recognized
// question kinds, with an LLM-authored fallback when no template fits. User
// data is never interpolated into SQL text; everything binds through named
// parameters.
package sqlgen

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/castellsqa/enxaneta/pkg/entities"
	"github.com/castellsqa/enxaneta/pkg/router"
)

// ErrTemplateRejected signals that the chosen template is missing a required
// entity; the orchestrator falls back to the custom generator.
var ErrTemplateRejected = errors.New("template rejected: missing required entity")

// Query is a ready-to-execute statement.
type Query struct {
	Kind router.QueryKind
	SQL  string
	Args pgx.NamedArgs
}

type templateFunc func(e entities.Entities, limit int) (string, pgx.NamedArgs, error)

type template struct {
	build        templateFunc
	defaultLimit int
}

var templates = map[router.QueryKind]template{
	router.KindBestEvent:              {buildBestEvent, 3},
	router.KindBestConstruction:       {buildBestConstruction, 10},
	router.KindConstructionHistory:    {buildConstructionHistory, 10},
	router.KindLocationPerformances:   {buildLocationPerformances, 10},
	router.KindFirstConstruction:      {buildFirstConstruction, 1},
	router.KindConstructionStatistics: {buildConstructionStatistics, 5},
	router.KindYearSummary:            {buildYearSummary, 10},
	router.KindContestRanking:         {buildContestRanking, 10},
	router.KindContestHistory:         {buildContestHistory, 10},
}

// Build renders the template for kind with the validated entities. Unknown
// or custom kinds and missing required entities return ErrTemplateRejected.
func Build(kind router.QueryKind, e entities.Entities) (Query, error) {
	tpl, ok := templates[kind]
	if !ok {
		return Query{}, ErrTemplateRejected
	}
	sql, args, err := tpl.build(e, tpl.defaultLimit)
	if err != nil {
		return Query{}, err
	}
	return Query{Kind: kind, SQL: sql, Args: args}, nil
}

// performanceJoins is the spine shared by every performance-table template:
// event, participation, team, constructions.
const performanceJoins = `FROM events e
JOIN event_colles ec ON ec.event_fk = e.id
JOIN colles c ON c.id = ec.colla_fk
JOIN castells ca ON ca.event_colla_fk = ec.id`

// buildBestEvent ranks a team's performances by event score. The event total
// sums only the four highest-scoring constructions per (event, team) and the
// low-value Pd4 never counts. The display aggregate lists constructions in
// descending score order.
func buildBestEvent(e entities.Entities, limit int) (string, pgx.NamedArgs, error) {
	if len(e.Teams) == 0 {
		return "", nil, fmt.Errorf("%w: bestEvent needs a team", ErrTemplateRejected)
	}

	f := newFragmentBuilder()
	f.teamFilter("c.name", e.Teams)
	f.eventYearFilter("e.date", e.Years)
	f.placeFilter("e.city", e.Places)
	f.eventFilter("e.name", e.Events)
	f.args["limit"] = limit

	sql := `WITH castell_points AS (
	SELECT e.id AS event_id, e.name AS event_name, e.date, e.city,
		c.id AS colla_id, c.name AS colla_name,
		ca.castell_name, ca.status,
		` + pointsExpr + ` AS punts,
		row_number() OVER (
			PARTITION BY e.id, c.id
			ORDER BY ` + pointsExpr + ` DESC
		) AS rn
	` + performanceJoins + `
	` + scoreJoin + `
	WHERE ca.castell_name <> 'Pd4'` + f.where() + `
)
SELECT event_name, date, city, colla_name,
	sum(punts) FILTER (WHERE rn <= 4) AS total_punts,
	string_agg(castell_name || ' (' || status || ')', ', ' ORDER BY punts DESC) AS castells
FROM castell_points
GROUP BY event_id, event_name, date, city, colla_name
ORDER BY total_punts DESC NULLS LAST
LIMIT @limit`

	return sql, f.args, nil
}

// buildBestConstruction lists a team's highest-scoring constructions.
func buildBestConstruction(e entities.Entities, limit int) (string, pgx.NamedArgs, error) {
	if len(e.Teams) == 0 {
		return "", nil, fmt.Errorf("%w: bestConstruction needs a team", ErrTemplateRejected)
	}

	f := newFragmentBuilder()
	f.teamFilter("c.name", e.Teams)
	f.eventYearFilter("e.date", e.Years)
	f.statusFilter("ca.status", e.Constructions)
	f.args["limit"] = limit

	sql := `SELECT c.name AS colla_name, ca.castell_name, ca.status,
	e.name AS event_name, e.date, e.city,
	` + pointsExpr + ` AS punts
` + performanceJoins + `
` + scoreJoin + `
WHERE 1 = 1` + f.where() + `
ORDER BY punts DESC
LIMIT @limit`

	return sql, f.args, nil
}

// buildConstructionHistory lists every occurrence of the given constructions,
// most recent first.
func buildConstructionHistory(e entities.Entities, limit int) (string, pgx.NamedArgs, error) {
	if len(e.Constructions) == 0 {
		return "", nil, fmt.Errorf("%w: constructionHistory needs a construction", ErrTemplateRejected)
	}

	f := newFragmentBuilder()
	f.constructionFilter("ca.castell_name", e.Constructions)
	f.statusFilter("ca.status", e.Constructions)
	f.teamFilter("c.name", e.Teams)
	f.eventYearFilter("e.date", e.Years)
	f.placeFilter("e.city", e.Places)
	f.args["limit"] = limit

	sql := `SELECT ca.castell_name, ca.status, c.name AS colla_name,
	e.name AS event_name, e.date, e.city
` + performanceJoins + `
WHERE 1 = 1` + f.where() + `
ORDER BY to_date(e.date, 'DD/MM/YYYY') DESC
LIMIT @limit`

	return sql, f.args, nil
}

// buildLocationPerformances summarizes performances at a place, one row per
// (event, team), constructions aggregated for display.
func buildLocationPerformances(e entities.Entities, limit int) (string, pgx.NamedArgs, error) {
	if len(e.Places) == 0 {
		return "", nil, fmt.Errorf("%w: locationPerformances needs a place", ErrTemplateRejected)
	}

	f := newFragmentBuilder()
	f.placeFilter("e.city", e.Places)
	f.teamFilter("c.name", e.Teams)
	f.eventYearFilter("e.date", e.Years)
	f.args["limit"] = limit

	sql := `SELECT e.name AS event_name, e.date, e.city, c.name AS colla_name,
	string_agg(ca.castell_name || ' (' || ca.status || ')', ', ') AS castells
` + performanceJoins + `
WHERE 1 = 1` + f.where() + `
GROUP BY e.id, e.name, e.date, e.city, c.name
ORDER BY to_date(e.date, 'DD/MM/YYYY') DESC
LIMIT @limit`

	return sql, f.args, nil
}

// buildFirstConstruction finds the earliest occurrence of a construction.
// Without an explicit status the question means "first completed".
func buildFirstConstruction(e entities.Entities, limit int) (string, pgx.NamedArgs, error) {
	if len(e.Constructions) == 0 {
		return "", nil, fmt.Errorf("%w: firstConstruction needs a construction", ErrTemplateRejected)
	}

	f := newFragmentBuilder()
	f.constructionFilter("ca.castell_name", e.Constructions)
	f.teamFilter("c.name", e.Teams)

	status := string(entities.StatusCompleted)
	for _, c := range e.Constructions {
		if c.Status != "" {
			status = string(c.Status)
			break
		}
	}
	f.args["status"] = status
	f.args["limit"] = limit

	sql := `SELECT ca.castell_name, ca.status, c.name AS colla_name,
	e.name AS event_name, e.date, e.city
` + performanceJoins + `
WHERE ca.status = @status` + f.where() + `
ORDER BY to_date(e.date, 'DD/MM/YYYY') ASC
LIMIT @limit`

	return sql, f.args, nil
}

// buildConstructionStatistics aggregates, per construction: counts and first
// dates by outcome, distinct team counts, and a bounded list of teams that
// have attempted it.
func buildConstructionStatistics(e entities.Entities, limit int) (string, pgx.NamedArgs, error) {
	if len(e.Constructions) == 0 {
		return "", nil, fmt.Errorf("%w: constructionStatistics needs a construction", ErrTemplateRejected)
	}

	f := newFragmentBuilder()
	f.constructionFilter("ca.castell_name", e.Constructions)
	f.teamFilter("c.name", e.Teams)
	f.args["limit"] = limit

	sql := `SELECT ca.castell_name,
	count(*) FILTER (WHERE ca.status = 'Descarregat') AS descarregats,
	count(*) FILTER (WHERE ca.status = 'Carregat') AS carregats,
	count(*) FILTER (WHERE ca.status = 'Intent') AS intents,
	count(*) FILTER (WHERE ca.status = 'Intent desmuntat') AS intents_desmuntats,
	min(to_date(e.date, 'DD/MM/YYYY')) FILTER (WHERE ca.status = 'Descarregat') AS primer_descarregat,
	min(to_date(e.date, 'DD/MM/YYYY')) FILTER (WHERE ca.status = 'Carregat') AS primer_carregat,
	count(DISTINCT c.id) FILTER (WHERE ca.status = 'Descarregat') AS colles_descarregat,
	count(DISTINCT c.id) FILTER (WHERE ca.status = 'Carregat') AS colles_carregat,
	left(string_agg(DISTINCT c.name, ', '), 400) AS colles
` + performanceJoins + `
WHERE 1 = 1` + f.where() + `
GROUP BY ca.castell_name
LIMIT @limit`

	return sql, f.args, nil
}

// buildYearSummary lists the highest-scoring constructions of a season.
func buildYearSummary(e entities.Entities, limit int) (string, pgx.NamedArgs, error) {
	if len(e.Years) == 0 {
		return "", nil, fmt.Errorf("%w: yearSummary needs a year", ErrTemplateRejected)
	}

	f := newFragmentBuilder()
	f.eventYearFilter("e.date", e.Years)
	f.teamFilter("c.name", e.Teams)
	f.placeFilter("e.city", e.Places)
	f.args["limit"] = limit

	sql := `SELECT c.name AS colla_name, ca.castell_name, ca.status,
	e.name AS event_name, e.date, e.city,
	` + pointsExpr + ` AS punts
` + performanceJoins + `
` + scoreJoin + `
WHERE 1 = 1` + f.where() + `
ORDER BY punts DESC
LIMIT @limit`

	return sql, f.args, nil
}

// buildContestRanking reads the competition ranking table. Year filters use
// the stored integer column; place filters use the contest location.
func buildContestRanking(e entities.Entities, limit int) (string, pgx.NamedArgs, error) {
	f := newFragmentBuilder()
	f.teamFilter("cr.colla_name", e.Teams)
	f.contestYearFilter("cr.any", e.Years)
	f.editionFilter("co.edition", e.Editions)
	f.inInts("cr.jornada", "track", e.Tracks)
	f.inInts("cr.position", "position", e.Positions)
	f.placeFilter("co.location", e.Places)
	f.args["limit"] = limit

	sql := `SELECT cr.position, cr.colla_name, cr.total_points, cr.any,
	cr.jornada, co.edition, co.title, co.location
FROM concurs_rankings cr
JOIN concurs co ON co.id = cr.concurs_fk
WHERE 1 = 1` + f.where() + `
ORDER BY cr.any DESC, cr.position ASC
LIMIT @limit`

	return sql, f.args, nil
}

// buildContestHistory walks a team's results across contest editions.
func buildContestHistory(e entities.Entities, limit int) (string, pgx.NamedArgs, error) {
	f := newFragmentBuilder()
	f.teamFilter("cr.colla_name", e.Teams)
	f.contestYearFilter("cr.any", e.Years)
	f.editionFilter("co.edition", e.Editions)
	f.args["limit"] = limit

	sql := `SELECT cr.any, co.edition, co.title, co.date, co.location,
	cr.colla_name, cr.position, cr.total_points
FROM concurs_rankings cr
JOIN concurs co ON co.id = cr.concurs_fk
WHERE 1 = 1` + f.where() + `
ORDER BY cr.any DESC, cr.position ASC
LIMIT @limit`

	return sql, f.args, nil
}
