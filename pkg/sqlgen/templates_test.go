package sqlgen

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castellsqa/enxaneta/pkg/entities"
	"github.com/castellsqa/enxaneta/pkg/router"
)

var placeholderRe = regexp.MustCompile(`@([a-zA-Z_][a-zA-Z0-9_]*)`)

func fullEntities() entities.Entities {
	return entities.Entities{
		Teams:         []string{"Castellers de Vilafranca"},
		Constructions: []entities.Construction{{Code: "3d9f", Status: entities.StatusCompleted}},
		Years:         []int{2019},
		Places:        []string{"Valls"},
		Events:        []string{"Diada de Sant Fèlix"},
		Editions:      []string{"28"},
		Tracks:        []int{2},
		Positions:     []int{1},
	}
}

// Every template must produce a single SELECT whose placeholders are all
// bound, with the limit parameter always present.
func TestTemplateInvariants(t *testing.T) {
	e := fullEntities()

	for kind := range templates {
		t.Run(string(kind), func(t *testing.T) {
			q, err := Build(kind, e)
			require.NoError(t, err)

			upper := strings.ToUpper(q.SQL)
			assert.True(t,
				strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH"),
				"must be a SELECT")
			assert.NotContains(t, q.SQL, ";", "single statement only")
			assert.Contains(t, q.SQL, "@limit")

			for _, m := range placeholderRe.FindAllStringSubmatch(q.SQL, -1) {
				_, bound := q.Args[m[1]]
				assert.True(t, bound, "placeholder @%s must be bound", m[1])
			}
		})
	}
}

func TestTemplateRequiredEntities(t *testing.T) {
	tests := []struct {
		kind router.QueryKind
		e    entities.Entities
	}{
		{router.KindBestEvent, entities.Entities{Years: []int{2019}}},
		{router.KindBestConstruction, entities.Entities{}},
		{router.KindConstructionHistory, entities.Entities{Teams: []string{"Minyons de Terrassa"}}},
		{router.KindLocationPerformances, entities.Entities{Teams: []string{"Minyons de Terrassa"}}},
		{router.KindFirstConstruction, entities.Entities{}},
		{router.KindConstructionStatistics, entities.Entities{}},
		{router.KindYearSummary, entities.Entities{Teams: []string{"Minyons de Terrassa"}}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			_, err := Build(tt.kind, tt.e)
			assert.ErrorIs(t, err, ErrTemplateRejected)
		})
	}
}

func TestBuildUnknownKind(t *testing.T) {
	_, err := Build(router.KindCustom, fullEntities())
	assert.ErrorIs(t, err, ErrTemplateRejected)
}

func TestMultiValueFiltersRenderIn(t *testing.T) {
	e := entities.Entities{
		Teams: []string{"Castellers de Vilafranca", "Minyons de Terrassa"},
		Constructions: []entities.Construction{
			{Code: "3d9f"}, {Code: "4d9f"},
		},
	}

	q, err := Build(router.KindConstructionHistory, e)
	require.NoError(t, err)

	assert.Contains(t, q.SQL, "IN (@construction_0, @construction_1)")
	assert.Contains(t, q.SQL, "IN (@team_0, @team_1)")
	assert.Equal(t, "3d9f", q.Args["construction_0"])
	assert.Equal(t, "Minyons de Terrassa", q.Args["team_1"])
}

func TestSingleValueFiltersRenderEquals(t *testing.T) {
	q, err := Build(router.KindConstructionHistory, entities.Entities{
		Constructions: []entities.Construction{{Code: "3d9f"}},
	})
	require.NoError(t, err)

	assert.Contains(t, q.SQL, "ca.castell_name = @construction")
	assert.Equal(t, "3d9f", q.Args["construction"])
}

func TestYearFilterPerformanceVsContest(t *testing.T) {
	e := entities.Entities{
		Teams: []string{"Castellers de Vilafranca"},
		Years: []int{2019},
	}

	perf, err := Build(router.KindBestEvent, e)
	require.NoError(t, err)
	assert.Contains(t, perf.SQL, "extract(year from to_date(e.date, 'DD/MM/YYYY'))")

	contest, err := Build(router.KindContestRanking, e)
	require.NoError(t, err)
	assert.Contains(t, contest.SQL, "cr.any = @year")
	assert.NotContains(t, contest.SQL, "to_date")
}

func TestPlaceFilterUsesLike(t *testing.T) {
	q, err := Build(router.KindLocationPerformances, entities.Entities{
		Places: []string{"Valls"},
	})
	require.NoError(t, err)

	assert.Contains(t, q.SQL, "e.city LIKE @place")
	assert.Equal(t, "%Valls%", q.Args["place"])
}

func TestBestEventScoring(t *testing.T) {
	q, err := Build(router.KindBestEvent, entities.Entities{
		Teams: []string{"Castellers de Vilafranca"},
	})
	require.NoError(t, err)

	assert.Contains(t, q.SQL, "ca.castell_name <> 'Pd4'")
	assert.Contains(t, q.SQL, "rn <= 4")
	assert.Contains(t, q.SQL, "p.castell_code = ca.castell_name")
	assert.Contains(t, q.SQL, "p.castell_code_external = ca.castell_name")
	assert.Contains(t, q.SQL, "p.castell_code_name = ca.castell_name")
}

func TestFirstConstructionDefaultsToCompleted(t *testing.T) {
	q, err := Build(router.KindFirstConstruction, entities.Entities{
		Constructions: []entities.Construction{{Code: "2d9fm"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Descarregat", q.Args["status"])
	assert.Contains(t, q.SQL, "ASC")
	assert.Equal(t, 1, q.Args["limit"])
}

func TestConstructionStatisticsAggregate(t *testing.T) {
	q, err := Build(router.KindConstructionStatistics, entities.Entities{
		Constructions: []entities.Construction{{Code: "3d10fm"}},
	})
	require.NoError(t, err)

	assert.Contains(t, q.SQL, "left(string_agg(DISTINCT c.name, ', '), 400)")
	assert.Contains(t, q.SQL, "count(DISTINCT c.id)")
}
