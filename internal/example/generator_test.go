package example

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erdncyz/swagger-viewer/internal/document"
)

const schemasDoc = `{
  "openapi": "3.0.0",
  "components": {
    "schemas": {
      "Node": {"type": "object", "properties": {"name": {"type": "string"}, "children": {"type": "array", "items": {"$ref": "#/components/schemas/Node"}}}},
      "Leaf": {"type": "object", "properties": {"id": {"type": "integer"}}},
      "Pair": {"type": "object", "properties": {"left": {"$ref": "#/components/schemas/Leaf"}, "right": {"$ref": "#/components/schemas/Leaf"}}},
      "A": {"type": "object", "properties": {"b": {"$ref": "#/components/schemas/B"}}},
      "B": {"type": "object", "properties": {"a": {"$ref": "#/components/schemas/A"}}},
      "Base": {"type": "object", "properties": {"id": {"type": "string", "format": "uuid"}}},
      "Tagged": {"type": "object", "properties": {"tag": {"type": "string"}}, "example": {"tag": "fixed"}}
    }
  }
}`

func parse(t *testing.T, src string) *document.Document {
	t.Helper()
	doc, err := document.Parse([]byte(src))
	require.NoError(t, err)
	return doc
}

func ref(name string) *document.Object {
	return document.ObjectOf("$ref", "#/components/schemas/"+name)
}

func requireJSON(t *testing.T, want string, got any) {
	t.Helper()
	data, err := json.Marshal(got)
	require.NoError(t, err)
	require.JSONEq(t, want, string(data))
}

func TestGenerateObject(t *testing.T) {
	schema := document.ObjectOf("type", "object", "properties", document.ObjectOf(
		"a", document.ObjectOf("type", "string"),
		"b", document.ObjectOf("type", "integer"),
	))
	got := Generate(nil, schema)
	requireJSON(t, `{"a": "string", "b": 0}`, got)
	require.Equal(t, []string{"a", "b"}, document.AsObject(got).Keys())
}

func TestGenerateSelfReference(t *testing.T) {
	doc := parse(t, schemasDoc)
	got := Generate(doc, ref("Node"))
	requireJSON(t, `{"name": "string", "children": ["...circular ref..."]}`, got)
}

func TestGenerateMutualReference(t *testing.T) {
	doc := parse(t, schemasDoc)
	requireJSON(t, `{"b": {"a": "...circular ref..."}}`, Generate(doc, ref("A")))
}

func TestGenerateDiamondIsNotACycle(t *testing.T) {
	doc := parse(t, schemasDoc)
	requireJSON(t, `{"left": {"id": 0}, "right": {"id": 0}}`, Generate(doc, ref("Pair")))
}

func TestGeneratePrimitives(t *testing.T) {
	tests := []struct {
		name   string
		schema *document.Object
		want   any
	}{
		{"date-time", document.ObjectOf("type", "string", "format", "date-time"), "2024-01-01T00:00:00Z"},
		{"date", document.ObjectOf("type", "string", "format", "date"), "2024-01-01"},
		{"email", document.ObjectOf("type", "string", "format", "email"), "user@example.com"},
		{"uri", document.ObjectOf("type", "string", "format", "uri"), "https://example.com"},
		{"plain string", document.ObjectOf("type", "string", "format", "password"), "string"},
		{"enum", document.ObjectOf("type", "string", "enum", []any{"a", "b"}), "a"},
		{"enum beats format", document.ObjectOf("type", "string", "format", "date", "enum", []any{"2020-02-02"}), "2020-02-02"},
		{"integer enum", document.ObjectOf("type", "integer", "enum", []any{int64(3), int64(5)}), int64(3)},
		{"integer", document.ObjectOf("type", "integer"), 0},
		{"number", document.ObjectOf("type", "number", "format", "double"), 0},
		{"boolean", document.ObjectOf("type", "boolean"), false},
		{"nullable unknown", document.ObjectOf("nullable", true), nil},
		{"unknown", document.ObjectOf("description", "no type"), UnknownSentinel},
		{"type list", document.ObjectOf("type", []any{"null", "boolean"}), false},
		{"only null", document.ObjectOf("type", []any{"null"}), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Generate(nil, tt.schema))
		})
	}
}

func TestGenerateExplicitExampleWins(t *testing.T) {
	doc := parse(t, schemasDoc)
	requireJSON(t, `{"tag": "fixed"}`, Generate(doc, ref("Tagged")))

	nested := document.ObjectOf("type", "object", "properties", document.ObjectOf(
		"count", document.ObjectOf("type", "integer", "example", int64(42)),
	))
	requireJSON(t, `{"count": 42}`, Generate(doc, nested))
}

func TestGenerateArrays(t *testing.T) {
	requireJSON(t, `["string"]`, Generate(nil, document.ObjectOf("type", "array", "items", document.ObjectOf("type", "string"))))
	requireJSON(t, `[]`, Generate(nil, document.ObjectOf("type", "array")))
	requireJSON(t, `[]`, Generate(nil, document.ObjectOf("type", "array", "items", ref("Missing"))))
}

func TestGenerateAbsent(t *testing.T) {
	doc := parse(t, schemasDoc)
	require.Nil(t, Generate(doc, nil))
	require.Nil(t, Generate(doc, ref("Missing")))
	require.Nil(t, Generate(doc, "not a schema"))

	withMissing := document.ObjectOf("properties", document.ObjectOf(
		"gone", ref("Missing"),
		"here", document.ObjectOf("type", "boolean"),
	))
	requireJSON(t, `{"gone": null, "here": false}`, Generate(doc, withMissing))
}

func TestGenerateComposition(t *testing.T) {
	doc := parse(t, schemasDoc)

	allOf := document.ObjectOf("allOf", []any{
		ref("Base"),
		document.ObjectOf("type", "object", "properties", document.ObjectOf("name", document.ObjectOf("type", "string"))),
	})
	requireJSON(t, `{"id": "3fa85f64-5717-4562-b3fc-2c963f66afa6", "name": "string"}`, Generate(doc, allOf))

	oneOf := document.ObjectOf("oneOf", []any{ref("Leaf"), document.ObjectOf("type", "string")})
	requireJSON(t, `{"id": 0}`, Generate(doc, oneOf))

	anyOf := document.ObjectOf("anyOf", []any{document.ObjectOf("type", "boolean")})
	require.Equal(t, false, Generate(doc, anyOf))
}

func TestGenerateDoesNotShareExamples(t *testing.T) {
	doc := parse(t, schemasDoc)
	first := document.AsObject(Generate(doc, ref("Tagged")))
	first.Set("tag", "changed")
	requireJSON(t, `{"tag": "fixed"}`, Generate(doc, ref("Tagged")))
}
