package pipeline

import (
	"strings"

	"github.com/castellsqa/enxaneta/pkg/router"
	"github.com/castellsqa/enxaneta/pkg/store"
)

// TableData is the side-band structured payload for UI rendering. It
// bypasses the LLM entirely.
type TableData struct {
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// projection fixes, per query kind, which raw columns reach the UI and
// under which titles. Order is the display order.
type projection struct {
	title   string
	columns []string
	titles  map[string]string
}

var projections = map[router.QueryKind]projection{
	router.KindBestEvent: {
		title:   "Millors diades",
		columns: []string{"event_name", "date", "city", "colla_name", "total_punts", "castells"},
		titles: map[string]string{
			"event_name": "Diada", "date": "Data", "city": "Ciutat",
			"colla_name": "Colla", "total_punts": "Punts", "castells": "Castells",
		},
	},
	router.KindBestConstruction: {
		title:   "Millors castells",
		columns: []string{"castell_name", "status", "colla_name", "event_name", "date", "city", "punts"},
		titles: map[string]string{
			"castell_name": "Castell", "status": "Resultat", "colla_name": "Colla",
			"event_name": "Diada", "date": "Data", "city": "Ciutat", "punts": "Punts",
		},
	},
	router.KindConstructionHistory: {
		title:   "Historial del castell",
		columns: []string{"castell_name", "status", "colla_name", "event_name", "date", "city"},
		titles: map[string]string{
			"castell_name": "Castell", "status": "Resultat", "colla_name": "Colla",
			"event_name": "Diada", "date": "Data", "city": "Ciutat",
		},
	},
	router.KindLocationPerformances: {
		title:   "Actuacions al lloc",
		columns: []string{"event_name", "date", "city", "colla_name", "castells"},
		titles: map[string]string{
			"event_name": "Diada", "date": "Data", "city": "Ciutat",
			"colla_name": "Colla", "castells": "Castells",
		},
	},
	router.KindFirstConstruction: {
		title:   "Primer cop",
		columns: []string{"castell_name", "status", "colla_name", "event_name", "date", "city"},
		titles: map[string]string{
			"castell_name": "Castell", "status": "Resultat", "colla_name": "Colla",
			"event_name": "Diada", "date": "Data", "city": "Ciutat",
		},
	},
	router.KindConstructionStatistics: {
		title: "Estadístiques del castell",
		columns: []string{"castell_name", "descarregats", "carregats", "intents",
			"intents_desmuntats", "primer_descarregat", "primer_carregat",
			"colles_descarregat", "colles_carregat", "colles"},
		titles: map[string]string{
			"castell_name": "Castell", "descarregats": "Descarregats",
			"carregats": "Carregats", "intents": "Intents",
			"intents_desmuntats": "Intents desmuntats",
			"primer_descarregat": "Primer descarregat",
			"primer_carregat":    "Primer carregat",
			"colles_descarregat": "Colles (descarregat)",
			"colles_carregat":    "Colles (carregat)", "colles": "Colles",
		},
	},
	router.KindYearSummary: {
		title:   "Resum de la temporada",
		columns: []string{"colla_name", "castell_name", "status", "event_name", "date", "city", "punts"},
		titles: map[string]string{
			"colla_name": "Colla", "castell_name": "Castell", "status": "Resultat",
			"event_name": "Diada", "date": "Data", "city": "Ciutat", "punts": "Punts",
		},
	},
	router.KindContestRanking: {
		title:   "Classificació del concurs",
		columns: []string{"position", "colla_name", "total_points", "any", "jornada", "edition", "location"},
		titles: map[string]string{
			"position": "Posició", "colla_name": "Colla", "total_points": "Punts",
			"any": "Any", "jornada": "Jornada", "edition": "Edició", "location": "Lloc",
		},
	},
	router.KindContestHistory: {
		title:   "Historial al concurs",
		columns: []string{"any", "edition", "title", "date", "location", "colla_name", "position", "total_points"},
		titles: map[string]string{
			"any": "Any", "edition": "Edició", "title": "Concurs", "date": "Data",
			"location": "Lloc", "colla_name": "Colla", "position": "Posició",
			"total_points": "Punts",
		},
	},
}

// BuildTableData projects executed rows into the UI payload for kind. Custom
// queries have no fixed projection, so every returned column is shown with
// its raw name. Rows are capped at maxRows.
func BuildTableData(kind router.QueryKind, rows []store.Row, maxRows int) *TableData {
	if len(rows) == 0 {
		return nil
	}
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}

	proj, ok := projections[kind]
	if !ok {
		proj = projection{
			title:   "Resultats",
			columns: rows[0].Columns,
			titles:  map[string]string{},
		}
	}

	display := make([]string, len(proj.columns))
	for i, col := range proj.columns {
		if title, ok := proj.titles[col]; ok {
			display[i] = title
		} else {
			display[i] = col
		}
	}

	out := &TableData{Title: proj.title, Columns: display}
	for _, row := range rows {
		cells := make([]string, len(proj.columns))
		for i, col := range proj.columns {
			cells[i] = store.CellString(row.Get(col))
		}
		out.Rows = append(out.Rows, cells)
	}
	return out
}

// renderSQLContext flattens the first maxRows rows into the plain-text
// context the answerer consumes. No pipes: the answerer's formatting rules
// forbid tables, and the post-processor would strip them.
func renderSQLContext(rows []store.Row, maxRows int) string {
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}

	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		for j, col := range row.Columns {
			if j > 0 {
				b.WriteString("; ")
			}
			b.WriteString(col)
			b.WriteString(": ")
			b.WriteString(store.CellString(row.Values[j]))
		}
	}
	return b.String()
}
