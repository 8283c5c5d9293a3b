package sqlgen

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/castellsqa/enxaneta/pkg/entities"
	"github.com/castellsqa/enxaneta/pkg/llms"
	"github.com/castellsqa/enxaneta/pkg/router"
)

// CustomGenerator asks an LLM for a single SELECT when no template matches
// the question. The model only ever sees entity values inside a JSON blob;
// the statement it returns must reference @named placeholders that the
// executor binds.
type CustomGenerator struct {
	provider llms.Provider
	maxRows  int
}

func NewCustomGenerator(provider llms.Provider, maxRows int) *CustomGenerator {
	if maxRows <= 0 {
		maxRows = 50
	}
	return &CustomGenerator{provider: provider, maxRows: maxRows}
}

const customSystemPrompt = `Ets un generador de consultes SQL de només lectura per a una base de dades castellera PostgreSQL.

Esquema:
- colles(id, name)
- events(id, name, date, city, place) -- date és text 'DD/MM/YYYY'
- event_colles(id, event_fk, colla_fk)
- castells(id, event_colla_fk, castell_name, status)
- puntuacions(castell_code, castell_code_external, castell_code_name, punts_descarregat, punts_carregat)
- concurs(id, edition, title, date, location)
- concurs_rankings(concurs_fk, colla_fk, position, colla_name, total_points, any, jornada)

Regles estrictes:
1. Emet NOMÉS una consulta SELECT. Mai DDL ni DML (res de INSERT, UPDATE, DELETE, DROP, ALTER, CREATE).
2. Usa paràmetres amb nom @team, @year, @place, @construction, @status, @edition, @limit. Mai incrustis valors d'usuari al text SQL.
3. Per filtrar per any a events: extract(year from to_date(e.date, 'DD/MM/YYYY')) = @year. A concurs_rankings usa la columna any.
4. Per puntuar un castell, uneix castells amb puntuacions per qualsevol de les tres columnes de codi.
5. Els valors de status són: 'Descarregat', 'Carregat', 'Intent', 'Intent desmuntat'.
6. Acaba sempre amb LIMIT @limit.
Respon només amb el SQL, sense explicacions.`

var fenceRe = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")

var forbiddenRe = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|create|truncate|grant|revoke|copy)\b`)

// Generate produces a bound custom query. The entities travel to the model
// as JSON so quoting in the question cannot leak into SQL.
func (g *CustomGenerator) Generate(ctx context.Context, question string, e entities.Entities) (Query, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return Query{}, fmt.Errorf("serializing entities: %w", err)
	}

	msgs := llms.Messages{
		System: customSystemPrompt,
		User:   fmt.Sprintf("Pregunta: %s\n\nEntitats identificades (JSON):\n%s", question, payload),
	}

	text, err := g.provider.Generate(ctx, msgs)
	if err != nil {
		return Query{}, fmt.Errorf("custom SQL generation: %w", err)
	}

	sql, err := sanitizeSQL(text)
	if err != nil {
		return Query{}, err
	}

	return Query{
		Kind: router.KindCustom,
		SQL:  sql,
		Args: g.paramMap(e),
	}, nil
}

// sanitizeSQL strips code fences and rejects anything that is not a single
// SELECT statement.
func sanitizeSQL(text string) (string, error) {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	sql := strings.TrimSpace(text)
	sql = strings.TrimSuffix(sql, ";")

	if !strings.HasPrefix(strings.ToUpper(sql), "SELECT") &&
		!strings.HasPrefix(strings.ToUpper(sql), "WITH") {
		return "", fmt.Errorf("custom SQL rejected: not a SELECT")
	}
	if strings.Contains(sql, ";") {
		return "", fmt.Errorf("custom SQL rejected: multiple statements")
	}
	if forbiddenRe.MatchString(sql) {
		return "", fmt.Errorf("custom SQL rejected: forbidden operation")
	}
	return sql, nil
}

// paramMap binds every recognized entity under several aliases so the model
// may pick any reasonable placeholder name. Unused names are simply never
// referenced by the statement.
func (g *CustomGenerator) paramMap(e entities.Entities) pgx.NamedArgs {
	args := pgx.NamedArgs{"limit": g.maxRows, "max_rows": g.maxRows}

	if len(e.Teams) > 0 {
		for _, alias := range []string{"team", "colla", "team_name", "colla_name"} {
			args[alias] = e.Teams[0]
		}
	}
	if len(e.Years) > 0 {
		for _, alias := range []string{"year", "any", "season"} {
			args[alias] = e.Years[0]
		}
	}
	if len(e.Places) > 0 {
		for _, alias := range []string{"place", "city", "location"} {
			args[alias] = e.Places[0]
		}
	}
	if len(e.Events) > 0 {
		for _, alias := range []string{"event", "event_name", "diada"} {
			args[alias] = e.Events[0]
		}
	}
	if len(e.Constructions) > 0 {
		c := e.Constructions[0]
		for _, alias := range []string{"construction", "castell", "castell_name", "castell_code", "code"} {
			args[alias] = c.Code
		}
		if c.Status != "" {
			args["status"] = string(c.Status)
		}
	}
	if len(e.Editions) > 0 {
		args["edition"] = e.Editions[0]
	}
	return args
}
