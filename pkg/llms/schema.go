package llms

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
)

// SchemaFromStruct derives a strict JSON schema (as a generic map) from a Go
// struct, suitable for native structured-output APIs. All properties are
// required and additionalProperties is false, which is what OpenAI strict
// mode demands.
func SchemaFromStruct(v interface{}) (map[string]interface{}, error) {
	reflector := jsonschema.Reflector{
		DoNotReference:             true,
		AllowAdditionalProperties:  false,
		RequiredFromJSONSchemaTags: false,
	}

	schema := reflector.Reflect(v)

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}

	delete(out, "$schema")
	delete(out, "$id")
	forceStrict(out)
	return out, nil
}

// forceStrict marks every object in the schema tree as closed and requires
// all of its properties.
func forceStrict(node map[string]interface{}) {
	if t, _ := node["type"].(string); t == "object" {
		node["additionalProperties"] = false
		if props, ok := node["properties"].(map[string]interface{}); ok {
			required := make([]string, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			sort.Strings(required)
			node["required"] = required
		}
	}

	for _, key := range []string{"properties", "items"} {
		switch child := node[key].(type) {
		case map[string]interface{}:
			if key == "items" {
				forceStrict(child)
				continue
			}
			for _, v := range child {
				if m, ok := v.(map[string]interface{}); ok {
					forceStrict(m)
				}
			}
		}
	}
}

// SimplifySchema renders a schema as "field: type" lines for injection into
// a user message when the vendor has no native structured output.
func SimplifySchema(schema map[string]interface{}) string {
	props, ok := schema["properties"].(map[string]interface{})
	if !ok {
		return ""
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		prop, _ := props[name].(map[string]interface{})
		b.WriteString("- ")
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(describeType(prop))
		b.WriteString("\n")
	}
	return b.String()
}

func describeType(prop map[string]interface{}) string {
	if prop == nil {
		return "string"
	}
	if enum, ok := prop["enum"].([]interface{}); ok && len(enum) > 0 {
		parts := make([]string, 0, len(enum))
		for _, e := range enum {
			parts = append(parts, fmt.Sprintf("%v", e))
		}
		return "one of [" + strings.Join(parts, ", ") + "]"
	}

	t, _ := prop["type"].(string)
	switch t {
	case "array":
		if items, ok := prop["items"].(map[string]interface{}); ok {
			return "array of " + describeType(items)
		}
		return "array"
	case "object":
		return "object"
	case "":
		return "string"
	default:
		return t
	}
}

var (
	reasoningTagRe = regexp.MustCompile(`(?s)<think(?:ing)?>.*?</think(?:ing)?>`)
	codeFenceRe    = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
)

// ExtractJSON pulls the first balanced JSON object out of model text,
// stripping reasoning tags and code fences first. DeepSeek-style models emit
// <think> blocks before the payload.
func ExtractJSON(text string) (string, error) {
	text = reasoningTagRe.ReplaceAllString(text, "")

	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	start := strings.Index(text, "{")
	if start < 0 {
		return "", fmt.Errorf("no JSON object found in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("unbalanced JSON object in response")
}

// parseInjected validates and coerces a schema-injection response into out.
func parseInjected(provider, text string, out interface{}) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return newProviderError(provider, ErrKindMalformed, err.Error(), err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return newProviderError(provider, ErrKindMalformed, "response does not match schema", err)
	}
	return nil
}

// injectSchema appends JSON-mode instructions plus the simplified schema to
// the user message.
func injectSchema(msgs Messages, schema map[string]interface{}) Messages {
	var b strings.Builder
	b.WriteString(msgs.User)
	b.WriteString("\n\nRespond with a single JSON object and nothing else. Fields:\n")
	b.WriteString(SimplifySchema(schema))
	msgs.User = b.String()
	return msgs
}
