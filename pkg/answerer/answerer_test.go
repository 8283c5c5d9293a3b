package answerer

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castellsqa/enxaneta/pkg/llms"
)

type stubProvider struct {
	text string
	msgs llms.Messages
}

func (s *stubProvider) Generate(_ context.Context, msgs llms.Messages) (string, error) {
	s.msgs = msgs
	return s.text, nil
}

func (s *stubProvider) Parse(_ context.Context, _ llms.Messages, _ map[string]interface{}, _ interface{}) error {
	return nil
}

func (s *stubProvider) SupportsStructuredOutput() bool { return false }
func (s *stubProvider) ModelName() string              { return "stub" }
func (s *stubProvider) LastUsage() llms.TokenUsage     { return llms.TokenUsage{} }
func (s *stubProvider) Close() error                   { return nil }

func TestAnswerContextOrdering(t *testing.T) {
	stub := &stubProvider{text: "La **Colla Vella** va descarregar el castell."}
	a := New(stub, slog.Default())

	_, err := a.Answer(context.Background(), Request{
		Question:   "què va passar?",
		Strategy:   StrategyHybrid,
		SQLContext: "files de dades",
		RAGContext: "[Document 1]\ntext",
	})
	require.NoError(t, err)

	sqlIdx := strings.Index(stub.msgs.User, "files de dades")
	ragIdx := strings.Index(stub.msgs.User, "[Document 1]")
	require.GreaterOrEqual(t, sqlIdx, 0)
	require.GreaterOrEqual(t, ragIdx, 0)
	assert.Less(t, sqlIdx, ragIdx, "SQL context must precede RAG context")
}

func TestAnswerStripsTables(t *testing.T) {
	stub := &stubProvider{text: "Resum de la temporada.\n\n| Colla | Punts |\n|---|---|\n| Vella | 500 |\n\nUn gran any."}
	a := New(stub, slog.Default())

	got, err := a.Answer(context.Background(), Request{Question: "q", Strategy: StrategyRAG})
	require.NoError(t, err)

	assert.Contains(t, got, "Resum de la temporada.")
	assert.Contains(t, got, "Un gran any.")
	for _, line := range strings.Split(got, "\n") {
		assert.Less(t, strings.Count(line, "|"), 2)
	}
}

func TestAnswerEmptyAfterStripping(t *testing.T) {
	stub := &stubProvider{text: "| a | b |\n|---|---|"}
	a := New(stub, slog.Default())

	_, err := a.Answer(context.Background(), Request{Question: "q", Strategy: StrategyRAG})
	assert.Error(t, err)
}

func TestStripTables(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "El 3d9f és un castell de gamma alta.", "El 3d9f és un castell de gamma alta."},
		{"single pipe kept", "marca | nota", "marca | nota"},
		{"table removed", "abans\n| a | b |\n| 1 | 2 |\ndesprés", "abans\ndesprés"},
		{"separator removed", "text\n|---|---|\nmés text", "text\nmés text"},
		{"blank runs collapse", "un\n\n\n\ndos", "un\n\ndos"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripTables(tt.in))
		})
	}
}

func TestDeveloperPromptPerStrategy(t *testing.T) {
	rag := developerPrompt(StrategyRAG)
	sql := developerPrompt("bestEvent")
	unknown := developerPrompt("whatever")

	assert.NotEqual(t, rag, sql)
	assert.Contains(t, unknown, "un o dos paràgrafs")
	for _, p := range []string{rag, sql, unknown} {
		assert.Contains(t, p, "MAI facis servir taules")
	}
}
