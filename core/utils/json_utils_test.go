package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeJSONSchema(t *testing.T) {
	schema := map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"type":                 []any{"null", "object"},
		"additionalProperties": false,
		"properties": map[string]any{
			"title": map[string]any{"type": "string", "maxLength": 80, "default": "x"},
		},
		"items": map[string]any{"type": "string", "examples": []any{"a"}},
	}

	SanitizeJSONSchema(schema)

	assert.Equal(t, "object", schema["type"])
	assert.NotContains(t, schema, "$schema")
	assert.NotContains(t, schema, "additionalProperties")
	title := schema["properties"].(map[string]any)["title"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string"}, title)
	assert.NotContains(t, schema["items"], "examples")
}

func TestCloneSchemaIsDeep(t *testing.T) {
	orig := map[string]any{
		"type":     "array",
		"items":    map[string]any{"type": "object", "required": []any{"a"}},
		"required": []string{"x"},
	}
	cp := CloneSchema(orig)
	UpperCaseSchemaTypes(cp)
	cp["items"].(map[string]any)["required"].([]any)[0] = "b"

	assert.Equal(t, "array", orig["type"])
	assert.Equal(t, "object", orig["items"].(map[string]any)["type"])
	assert.Equal(t, "a", orig["items"].(map[string]any)["required"].([]any)[0])
	assert.Equal(t, "ARRAY", cp["type"])
	assert.Equal(t, "OBJECT", cp["items"].(map[string]any)["type"])
}

func TestRequiredFields(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, RequiredFields(map[string]any{"required": []any{"a", 1, "b"}}))
	assert.Equal(t, []string{"c"}, RequiredFields(map[string]any{"required": []string{"c"}}))
	assert.Nil(t, RequiredFields(map[string]any{}))
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `  [{"a":1}] `, `[{"a":1}]`},
		{"fenced with language", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced without language", "```\n[1,2]\n```\n", `[1,2]`},
		{"single line fence", "```json{\"a\":1}```", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.input))
		})
	}
}
