package openapi

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/erdncyz/swagger-viewer/internal/document"
)

const petstoreV2 = `{
  "swagger": "2.0",
  "info": {"title": "Petstore", "version": "1.0"},
  "host": "petstore.example.com",
  "basePath": "/v2",
  "schemes": ["http", "https"],
  "securityDefinitions": {
    "basicAuth": {"type": "basic"},
    "oauth": {"type": "oauth2", "flow": "password", "tokenUrl": "https://auth.example.com/token", "scopes": {"read": "read"}}
  },
  "paths": {
    "/pets": {
      "parameters": [{"name": "trace", "in": "header", "type": "string"}],
      "post": {
        "tags": ["Pets"],
        "parameters": [
          {"name": "body", "in": "body", "required": true, "description": "pet to add", "schema": {"$ref": "#/definitions/Pet"}},
          {"name": "other", "in": "body", "schema": {"type": "string"}},
          {"name": "dryRun", "in": "query", "type": "boolean"}
        ],
        "responses": {
          "200": {"description": "ok", "schema": {"type": "array", "items": {"$ref": "#/definitions/Pet"}}, "examples": {"application/json": [{"name": "Rex"}]}},
          "404": {"description": "missing"}
        }
      },
      "x-internal": true
    }
  },
  "definitions": {
    "Pet": {"type": "object", "properties": {"name": {"type": "string"}, "owner": {"$ref": "#/definitions/Owner"}}},
    "Owner": {"type": "object", "properties": {"pets": {"type": "array", "items": {"$ref": "#/definitions/Pet"}}}}
  }
}`

func mustParse(t *testing.T, src string) *document.Document {
	t.Helper()
	doc, err := document.Parse([]byte(src))
	require.NoError(t, err)
	return doc
}

func TestNormalizeServers(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		sourceURL string
		want      []string
	}{
		{
			name: "host scheme and base path",
			src:  `{"swagger": "2.0", "host": "api.example.com", "schemes": ["https"], "basePath": "/v1", "paths": {"/pets": {"get": {}}}}`,
			want: []string{"https://api.example.com/v1"},
		},
		{
			name: "first scheme wins",
			src:  `{"swagger": "2.0", "host": "api.example.com", "schemes": ["http", "https"]}`,
			want: []string{"http://api.example.com"},
		},
		{
			name: "scheme defaults to https",
			src:  `{"swagger": "2.0", "host": "api.example.com"}`,
			want: []string{"https://api.example.com"},
		},
		{
			name:      "host from source url",
			src:       `{"swagger": "2.0", "basePath": "/api"}`,
			sourceURL: "http://localhost:8080/docs/swagger.json",
			want:      []string{"http://localhost:8080/api"},
		},
		{
			name: "no host anywhere",
			src:  `{"swagger": "2.0", "basePath": "/api"}`,
		},
		{
			name:      "unusable source url",
			src:       `{"swagger": "2.0"}`,
			sourceURL: "::not a url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Normalize(mustParse(t, tt.src), tt.sourceURL)
			require.Equal(t, tt.want, Servers(out))
			if tt.want == nil {
				require.False(t, out.Root().Has("servers"))
			}
		})
	}
}

func TestNormalizeSwagger2(t *testing.T) {
	in := mustParse(t, petstoreV2)
	out := Normalize(in, "")
	root := out.Root()

	require.Equal(t, OpenAPIVersion, root.String("openapi"))
	for _, k := range []string{"swagger", "host", "basePath", "schemes", "definitions", "securityDefinitions"} {
		require.False(t, root.Has(k), "legacy key %q kept", k)
	}
	require.Equal(t, "Petstore", root.Object("info").String("title"))

	schemas := root.Object("components").Object("schemas")
	require.Equal(t, []string{"Pet", "Owner"}, schemas.Keys())
	owner, ok := document.Ref(schemas.Object("Pet").Object("properties").Object("owner"))
	require.True(t, ok)
	require.Equal(t, "#/components/schemas/Owner", owner)

	item := root.Object("paths").Object("/pets")
	require.Equal(t, []string{"post"}, item.Keys())

	post := item.Object("post")
	params := post.Slice("parameters")
	require.Len(t, params, 1)
	require.Equal(t, "dryRun", document.AsObject(params[0]).String("name"))

	rb := post.Object("requestBody")
	require.True(t, rb.Bool("required"))
	require.Equal(t, "pet to add", rb.String("description"))
	ref, ok := document.Ref(rb.Object("content").Object("application/json").Object("schema"))
	require.True(t, ok)
	require.Equal(t, "#/components/schemas/Pet", ref)

	ok200 := post.Object("responses").Object("200")
	require.False(t, ok200.Has("schema"))
	require.False(t, ok200.Has("examples"))
	media := ok200.Object("content").Object("application/json")
	items := media.Object("schema").Object("items")
	ref, _ = document.Ref(items)
	require.Equal(t, "#/components/schemas/Pet", ref)
	require.Len(t, media.Slice("example"), 1)

	notFound := post.Object("responses").Object("404")
	require.False(t, notFound.Has("content"))
	require.Equal(t, "missing", notFound.String("description"))

	sec := root.Object("components").Object("securitySchemes")
	require.Equal(t, "http", sec.Object("basicAuth").String("type"))
	require.Equal(t, "basic", sec.Object("basicAuth").String("scheme"))
	pw := sec.Object("oauth").Object("flows").Object("password")
	require.Equal(t, "https://auth.example.com/token", pw.String("tokenUrl"))
}

func TestNormalizeLeavesNoLegacyRefs(t *testing.T) {
	out := Normalize(mustParse(t, petstoreV2), "")
	data, err := json.Marshal(out)
	require.NoError(t, err)
	require.NotContains(t, string(data), "#/definitions/")
	require.True(t, strings.Contains(string(data), "#/components/schemas/Pet"))
}

func TestNormalizeUnquotedYAMLSwagger(t *testing.T) {
	src := `swagger: 2.0
info:
  title: Pets
  version: 1.0
host: pets.example.com
paths:
  /pets:
    post:
      parameters:
        - {name: body, in: body, schema: {$ref: "#/definitions/Pet"}}
      responses:
        200: {description: ok}
definitions:
  Pet: {type: object}
`
	out := Normalize(mustParse(t, src), "")
	root := out.Root()
	require.Equal(t, OpenAPIVersion, root.String("openapi"))
	require.False(t, root.Has("swagger"))
	require.Equal(t, []string{"https://pets.example.com"}, Servers(out))
	body := root.Object("paths").Object("/pets").Object("post").Object("requestBody")
	require.NotNil(t, body)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	require.NotContains(t, string(data), "#/definitions/")
	require.Contains(t, string(data), "#/components/schemas/Pet")
}

func TestNormalizeRewritesDeepRefs(t *testing.T) {
	src := `{"swagger": "2.0", "paths": {"/x": {"put": {"parameters": [{"in": "body", "name": "b", "schema":
	  {"type": "object", "properties": {"a": {"type": "array", "items": {"type": "object", "properties":
	  {"b": {"allOf": [{"$ref": "#/definitions/Deep"}]}}}}}}}]}}}, "definitions": {"Deep": {"type": "string"}}}`
	out := Normalize(mustParse(t, src), "")
	data, err := json.Marshal(out)
	require.NoError(t, err)
	require.NotContains(t, string(data), "#/definitions/")
	require.Contains(t, string(data), `"#/components/schemas/Deep"`)
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, src := range []string{
		petstoreV2,
		`{"swagger": "2.0", "host": "api.example.com", "schemes": ["https"], "basePath": "/v1", "paths": {"/pets": {"get": {}}}}`,
		`{"openapi": "3.0.1", "paths": {}}`,
	} {
		once := Normalize(mustParse(t, src), "https://docs.example.com/spec.json")
		twice := Normalize(once, "https://docs.example.com/spec.json")
		require.Empty(t, cmp.Diff(once.Root(), twice.Root()))
		require.Same(t, once, twice)
	}
}

func TestNormalizePassesThroughNonSwagger(t *testing.T) {
	doc := mustParse(t, `{"openapi": "3.0.0", "paths": {"/a": {"get": {}, "parameters": []}}}`)
	require.Same(t, doc, Normalize(doc, ""))

	other := mustParse(t, `{"swagger": "1.2"}`)
	require.Same(t, other, Normalize(other, ""))

	require.Nil(t, Normalize(nil, ""))
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := mustParse(t, petstoreV2)
	before := document.Copy(in.Root())
	_ = Normalize(in, "https://example.com/swagger.json")
	require.Empty(t, cmp.Diff(document.AsObject(before), in.Root()))
	require.True(t, in.Root().Has("definitions"))
}

func TestNormalizeBodyWithoutSchema(t *testing.T) {
	src := `{"swagger": "2.0", "paths": {"/x": {"post": {"parameters": [{"in": "body", "name": "b"}]}}}}`
	post := Normalize(mustParse(t, src), "").Root().Object("paths").Object("/x").Object("post")
	require.False(t, post.Has("requestBody"))
	require.Empty(t, post.Slice("parameters"))
}

func TestNormalizeMalformedDocument(t *testing.T) {
	src := `{"swagger": "2.0", "paths": {"/a": null, "/b": {"get": "nonsense", "post": {"responses": {"200": 1}}}}, "definitions": []}`
	out := Normalize(mustParse(t, src), "")
	require.Equal(t, OpenAPIVersion, out.Root().String("openapi"))
	require.False(t, out.Root().Has("servers"))
	require.Equal(t, "nonsense", out.Root().Object("paths").Object("/b").String("get"))
}
