package sqlgen

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/castellsqa/enxaneta/pkg/entities"
)

// fragmentBuilder accumulates filter fragments and their bound parameters.
// Values never appear in the SQL text; every fragment references @named
// placeholders resolved by the executor.
type fragmentBuilder struct {
	clauses []string
	args    pgx.NamedArgs
}

func newFragmentBuilder() *fragmentBuilder {
	return &fragmentBuilder{args: pgx.NamedArgs{}}
}

// where renders the accumulated clauses as "AND c1 AND c2 ...", suitable for
// appending to a skeleton that already has a WHERE.
func (f *fragmentBuilder) where() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " AND " + strings.Join(f.clauses, " AND ")
}

// in binds values under prefix and renders "col = @p" for one value or
// "col IN (@p_0, @p_1, ...)" for several.
func (f *fragmentBuilder) in(column, prefix string, values []string) {
	if len(values) == 0 {
		return
	}
	if len(values) == 1 {
		f.args[prefix] = values[0]
		f.clauses = append(f.clauses, fmt.Sprintf("%s = @%s", column, prefix))
		return
	}
	names := make([]string, len(values))
	for i, v := range values {
		name := fmt.Sprintf("%s_%d", prefix, i)
		f.args[name] = v
		names[i] = "@" + name
	}
	f.clauses = append(f.clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(names, ", ")))
}

func (f *fragmentBuilder) inInts(column, prefix string, values []int) {
	if len(values) == 0 {
		return
	}
	if len(values) == 1 {
		f.args[prefix] = values[0]
		f.clauses = append(f.clauses, fmt.Sprintf("%s = @%s", column, prefix))
		return
	}
	names := make([]string, len(values))
	for i, v := range values {
		name := fmt.Sprintf("%s_%d", prefix, i)
		f.args[name] = v
		names[i] = "@" + name
	}
	f.clauses = append(f.clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(names, ", ")))
}

// teamFilter matches canonical team names exactly.
func (f *fragmentBuilder) teamFilter(column string, teams []string) {
	f.in(column, "team", teams)
}

// eventYearFilter filters performance tables, whose dates are stored as
// DD/MM/YYYY text, by extracted year.
func (f *fragmentBuilder) eventYearFilter(dateColumn string, years []int) {
	if len(years) == 0 {
		return
	}
	expr := fmt.Sprintf("extract(year from to_date(%s, 'DD/MM/YYYY'))", dateColumn)
	f.inInts(expr, "year", years)
}

// contestYearFilter filters competition tables by their integer year column.
func (f *fragmentBuilder) contestYearFilter(column string, years []int) {
	f.inInts(column, "year", years)
}

// placeFilter matches the city column by containment; venue names in
// questions rarely match the stored form exactly.
func (f *fragmentBuilder) placeFilter(column string, places []string) {
	if len(places) == 0 {
		return
	}
	if len(places) == 1 {
		f.args["place"] = "%" + places[0] + "%"
		f.clauses = append(f.clauses, fmt.Sprintf("%s LIKE @place", column))
		return
	}
	parts := make([]string, len(places))
	for i, p := range places {
		name := fmt.Sprintf("place_%d", i)
		f.args[name] = "%" + p + "%"
		parts[i] = fmt.Sprintf("%s LIKE @%s", column, name)
	}
	f.clauses = append(f.clauses, "("+strings.Join(parts, " OR ")+")")
}

func (f *fragmentBuilder) eventFilter(column string, events []string) {
	f.in(column, "event", events)
}

func (f *fragmentBuilder) editionFilter(column string, editions []string) {
	f.in(column, "edition", editions)
}

func (f *fragmentBuilder) constructionFilter(column string, constructions []entities.Construction) {
	codes := make([]string, 0, len(constructions))
	for _, c := range constructions {
		codes = append(codes, c.Code)
	}
	f.in(column, "construction", codes)
}

// statusFilter applies the first non-empty status attached to a
// construction mention.
func (f *fragmentBuilder) statusFilter(column string, constructions []entities.Construction) {
	for _, c := range constructions {
		if c.Status != "" {
			f.args["status"] = string(c.Status)
			f.clauses = append(f.clauses, fmt.Sprintf("%s = @status", column))
			return
		}
	}
}

// scoreJoin matches a performed construction against the score table on any
// of its three equivalent code columns. Each comparison hits that column's
// own index; a computed expression would not.
const scoreJoin = `JOIN puntuacions p ON (p.castell_code = ca.castell_name
	OR p.castell_code_external = ca.castell_name
	OR p.castell_code_name = ca.castell_name)`

// pointsExpr maps a construction's outcome to its score. Attempts score
// zero.
const pointsExpr = `CASE ca.status
	WHEN 'Descarregat' THEN p.punts_descarregat
	WHEN 'Carregat' THEN p.punts_carregat
	ELSE 0 END`
