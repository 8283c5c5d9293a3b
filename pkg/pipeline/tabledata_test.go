package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castellsqa/enxaneta/pkg/router"
	"github.com/castellsqa/enxaneta/pkg/store"
)

func TestBuildTableDataProjection(t *testing.T) {
	rows := []store.Row{{
		// Raw query order differs from display order on purpose.
		Columns: []string{"punts", "date", "event_name", "city", "colla_name", "castell_name", "status"},
		Values:  []interface{}{int64(675), "30/08/2019", "Diada de Sant Fèlix", "Vilafranca del Penedès", "Castellers de Vilafranca", "3d10fm", "Descarregat"},
	}}

	got := BuildTableData(router.KindBestConstruction, rows, 50)
	require.NotNil(t, got)

	assert.Equal(t, "Millors castells", got.Title)
	assert.Equal(t, []string{"Castell", "Resultat", "Colla", "Diada", "Data", "Ciutat", "Punts"}, got.Columns)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "3d10fm", got.Rows[0][0])
	assert.Equal(t, "675", got.Rows[0][6])
}

func TestBuildTableDataMissingCellSentinel(t *testing.T) {
	rows := []store.Row{{
		Columns: []string{"castell_name", "status"},
		Values:  []interface{}{"3d9f", nil},
	}}

	got := BuildTableData(router.KindConstructionHistory, rows, 50)
	require.NotNil(t, got)
	assert.Equal(t, "-", got.Rows[0][1])
}

func TestBuildTableDataCaps(t *testing.T) {
	var rows []store.Row
	for i := 0; i < 80; i++ {
		rows = append(rows, store.Row{Columns: []string{"name"}, Values: []interface{}{"x"}})
	}

	got := BuildTableData(router.KindCustom, rows, 50)
	require.NotNil(t, got)
	assert.Len(t, got.Rows, 50)
}

func TestRenderSQLContextNoPipes(t *testing.T) {
	rows := []store.Row{{
		Columns: []string{"colla_name", "date"},
		Values:  []interface{}{"Minyons de Terrassa", time.Date(2021, 11, 21, 0, 0, 0, 0, time.UTC)},
	}}

	got := renderSQLContext(rows, 10)
	assert.Contains(t, got, "colla_name: Minyons de Terrassa")
	assert.Contains(t, got, "21/11/2021")
	assert.NotContains(t, got, "|")
}
