package sqlgen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castellsqa/enxaneta/pkg/entities"
	"github.com/castellsqa/enxaneta/pkg/llms"
)

type stubProvider struct {
	text string
	err  error
}

func (s *stubProvider) Generate(_ context.Context, _ llms.Messages) (string, error) {
	return s.text, s.err
}

func (s *stubProvider) Parse(_ context.Context, _ llms.Messages, _ map[string]interface{}, _ interface{}) error {
	return nil
}

func (s *stubProvider) SupportsStructuredOutput() bool { return false }
func (s *stubProvider) ModelName() string              { return "stub" }
func (s *stubProvider) LastUsage() llms.TokenUsage     { return llms.TokenUsage{} }
func (s *stubProvider) Close() error                   { return nil }

func TestCustomGeneratorStripsFences(t *testing.T) {
	stub := &stubProvider{text: "```sql\nSELECT c.name FROM colles c WHERE c.name = @team LIMIT @limit\n```"}
	g := NewCustomGenerator(stub, 50)

	q, err := g.Generate(context.Background(), "pregunta", entities.Entities{
		Teams: []string{"Castellers de Vilafranca"},
	})
	require.NoError(t, err)

	assert.Equal(t, "SELECT c.name FROM colles c WHERE c.name = @team LIMIT @limit", q.SQL)
	assert.Equal(t, "Castellers de Vilafranca", q.Args["team"])
	assert.Equal(t, 50, q.Args["limit"])
}

func TestCustomGeneratorRejectsNonSelect(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"dml", "DELETE FROM colles"},
		{"prose", "Aquí tens la consulta que demanaves"},
		{"multiple statements", "SELECT 1; SELECT 2"},
		{"hidden dml", "SELECT 1 FROM colles WHERE 1=1 UNION SELECT 1; DROP TABLE colles"},
	}

	g := NewCustomGenerator(&stubProvider{}, 50)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.provider = &stubProvider{text: tt.text}
			_, err := g.Generate(context.Background(), "pregunta", entities.Entities{})
			assert.Error(t, err)
		})
	}
}

func TestCustomGeneratorAliases(t *testing.T) {
	stub := &stubProvider{text: "SELECT * FROM events e WHERE e.city LIKE @city AND extract(year from to_date(e.date, 'DD/MM/YYYY')) = @any LIMIT @limit"}
	g := NewCustomGenerator(stub, 50)

	q, err := g.Generate(context.Background(), "pregunta", entities.Entities{
		Places: []string{"Tarragona"},
		Years:  []int{2021},
	})
	require.NoError(t, err)

	assert.Equal(t, "Tarragona", q.Args["city"])
	assert.Equal(t, 2021, q.Args["any"])
}

func TestCustomGeneratorAllowsCTE(t *testing.T) {
	stub := &stubProvider{text: "WITH x AS (SELECT 1) SELECT * FROM x LIMIT @limit"}
	g := NewCustomGenerator(stub, 50)

	_, err := g.Generate(context.Background(), "pregunta", entities.Entities{})
	assert.NoError(t, err)
}
