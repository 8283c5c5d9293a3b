package llms

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleDecision struct {
	Tool  string   `json:"tool" jsonschema:"enum=direct,enum=rag,enum=sql"`
	Teams []string `json:"teams"`
	Count int      `json:"count"`
}

func TestSchemaFromStruct(t *testing.T) {
	schema, err := SchemaFromStruct(sampleDecision{})
	require.NoError(t, err)

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.NotContains(t, schema, "$schema")

	required, ok := schema["required"].([]string)
	if !ok {
		// After a marshal round trip it may be []interface{}.
		raw, _ := json.Marshal(schema["required"])
		var names []string
		require.NoError(t, json.Unmarshal(raw, &names))
		required = names
	}
	assert.ElementsMatch(t, []string{"tool", "teams", "count"}, required)

	props := schema["properties"].(map[string]interface{})
	tool := props["tool"].(map[string]interface{})
	assert.NotEmpty(t, tool["enum"])
}

func TestSimplifySchema(t *testing.T) {
	schema, err := SchemaFromStruct(sampleDecision{})
	require.NoError(t, err)

	got := SimplifySchema(schema)
	assert.Contains(t, got, "- count: integer")
	assert.Contains(t, got, "- teams: array of string")
	assert.Contains(t, got, "- tool: one of [direct, rag, sql]")
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{
			name: "bare object",
			in:   `{"tool":"sql"}`,
			want: `{"tool":"sql"}`,
		},
		{
			name: "surrounded by prose",
			in:   `Here you go: {"tool":"sql"} hope that helps`,
			want: `{"tool":"sql"}`,
		},
		{
			name: "reasoning tags stripped",
			in:   "<think>let me consider {maybe} options</think>{\"tool\":\"rag\"}",
			want: `{"tool":"rag"}`,
		},
		{
			name: "thinking variant stripped",
			in:   "<thinking>hmm</thinking>{\"a\":1}",
			want: `{"a":1}`,
		},
		{
			name: "code fence stripped",
			in:   "```json\n{\"tool\":\"direct\"}\n```",
			want: `{"tool":"direct"}`,
		},
		{
			name: "nested objects balanced",
			in:   `{"a":{"b":{"c":1}},"d":2}`,
			want: `{"a":{"b":{"c":1}},"d":2}`,
		},
		{
			name: "braces inside strings ignored",
			in:   `{"text":"an { unbalanced \" brace"}`,
			want: `{"text":"an { unbalanced \" brace"}`,
		},
		{
			name:    "no object",
			in:      "cap objecte aquí",
			wantErr: true,
		},
		{
			name:    "unbalanced",
			in:      `{"a": {"b": 1}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseInjected(t *testing.T) {
	var out sampleDecision
	err := parseInjected("openai", `<think>ok</think>{"tool":"sql","teams":["Vella"],"count":2}`, &out)
	require.NoError(t, err)

	assert.Equal(t, "sql", out.Tool)
	assert.Equal(t, []string{"Vella"}, out.Teams)
	assert.Equal(t, 2, out.Count)
}

func TestParseInjectedMalformed(t *testing.T) {
	var out sampleDecision
	err := parseInjected("deepseek", "no json at all", &out)
	require.Error(t, err)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrKindMalformed, pe.Kind)
	assert.Equal(t, "deepseek", pe.Provider)
}

func TestInjectSchemaAppendsFields(t *testing.T) {
	schema, err := SchemaFromStruct(sampleDecision{})
	require.NoError(t, err)

	msgs := injectSchema(Messages{User: "la pregunta"}, schema)
	assert.Contains(t, msgs.User, "la pregunta")
	assert.Contains(t, msgs.User, "single JSON object")
	assert.Contains(t, msgs.User, "- tool:")
}
