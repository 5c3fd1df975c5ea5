package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/erdncyz/swagger-viewer/internal/httpclient"
	"github.com/erdncyz/swagger-viewer/internal/openapi"
)

func TestMain(m *testing.M) {
	stdinIsTerminal = func() bool { return false }
	os.Exit(m.Run())
}

const petsTemplate = `{
  "openapi": "3.0.0",
  "info": {"title": "Pets", "version": "1.2.0"},
  "servers": [{"url": "SERVER"}],
  "paths": {
    "/pets/{id}": {
      "get": {
        "tags": ["Pets"],
        "summary": "Get a pet",
        "operationId": "getPet",
        "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "integer", "example": 7}}],
        "responses": {
          "200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Pet"}}}},
          "404": {"description": "missing", "content": {"application/json": {"example": {"detail": "not found"}}}}
        }
      }
    },
    "/pets": {
      "post": {
        "tags": ["Pets"],
        "summary": "Create a pet",
        "requestBody": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/Pet"}}}},
        "responses": {"201": {"description": "created"}}
      }
    }
  },
  "components": {"schemas": {"Pet": {"type": "object", "properties": {"name": {"type": "string"}, "age": {"type": "integer"}}}}}
}`

const legacyDoc = `{
  "swagger": "2.0",
  "info": {"title": "Legacy", "version": "1"},
  "host": "legacy.example.com",
  "basePath": "/api",
  "schemes": ["https"],
  "paths": {"/items": {"get": {"responses": {"200": {"description": "ok", "schema": {"$ref": "#/definitions/Item"}}}}}},
  "definitions": {"Item": {"type": "object", "properties": {"id": {"type": "integer"}}}}
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func petsSpec(t *testing.T, server string) string {
	t.Helper()
	return writeFile(t, "openapi.json", strings.ReplaceAll(petsTemplate, "SERVER", server))
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := RootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

type recorded struct {
	method string
	path   string
	auth   string
	body   string
}

func upstream(t *testing.T) (*httptest.Server, *[]recorded) {
	t.Helper()
	var got []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = append(got, recorded{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization"), body: string(b)})
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Upstream", "yes")
		_, _ = w.Write([]byte(`{"name":"rex","age":3}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestSpecRequired(t *testing.T) {
	_, _, err := execute(t, "endpoints")
	require.ErrorContains(t, err, "spec is required")
}

func TestEndpoints(t *testing.T) {
	spec := petsSpec(t, "https://pets.example.com/v1")

	out, _, err := execute(t, "--spec", spec, "endpoints")
	require.NoError(t, err)
	require.Contains(t, out, "Pets (2 operations)")
	require.Contains(t, out, "GET     /pets/{id}  Get a pet")
	require.Contains(t, out, "POST    /pets  Create a pet")

	out, _, err = execute(t, "--spec", spec, "ls", "--json")
	require.NoError(t, err)
	var got struct {
		Title    string                       `json:"title"`
		TagOrder []string                     `json:"tagOrder"`
		Tags     map[string][]json.RawMessage `json:"tags"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, "Pets", got.Title)
	require.Equal(t, []string{"Pets"}, got.TagOrder)
	require.Len(t, got.Tags["Pets"], 2)

	_, _, err = execute(t, "--spec", spec, "endpoints", "--tag", "Nope")
	require.ErrorContains(t, err, `no operations tagged "Nope"`)
}

func TestShow(t *testing.T) {
	spec := petsSpec(t, "https://pets.example.com/v1")

	out, _, err := execute(t, "--spec", spec, "show", "getPet")
	require.NoError(t, err)
	require.Contains(t, out, "operationId: getPet")
	require.Contains(t, out, "path    id  integer  required")
	require.Contains(t, out, "Responses")
	require.Contains(t, out, "name")

	_, _, err = execute(t, "--spec", spec, "show", "DELETE /pets")
	require.ErrorIs(t, err, openapi.ErrNotFound)
}

func TestExample(t *testing.T) {
	spec := petsSpec(t, "https://pets.example.com/v1")

	out, _, err := execute(t, "--spec", spec, "example", "GET /pets/{id}", "--json")
	require.NoError(t, err)
	var ex httpclient.Example
	require.NoError(t, json.Unmarshal([]byte(out), &ex))
	require.Equal(t, "GET-/pets/{id}", ex.Endpoint)
	require.Equal(t, "https://pets.example.com/v1/pets/7", ex.Request.URL)
	require.Contains(t, ex.Responses, "200")

	out, _, err = execute(t, "--spec", spec, "example", "getPet", "--status", "404")
	require.NoError(t, err)
	require.JSONEq(t, `{"detail": "not found"}`, out)

	out, _, err = execute(t, "--spec", spec, "--base-url", "http://localhost:9000/", "example", "getPet")
	require.NoError(t, err)
	require.Contains(t, out, "curl -X GET 'http://localhost:9000/pets/7'")

	_, _, err = execute(t, "--spec", spec, "example", "getPet", "--status", "500")
	require.ErrorContains(t, err, "no sample response for status 500")
}

func TestSend(t *testing.T) {
	srv, got := upstream(t)
	spec := petsSpec(t, srv.URL)

	out, _, err := execute(t, "--spec", spec, "--token", "tok", "send", "getPet", "-i")
	require.NoError(t, err)
	require.Contains(t, out, "200 OK")
	require.Contains(t, out, "x-upstream: yes")
	require.Contains(t, out, `"rex"`)
	require.Len(t, *got, 1)
	require.Equal(t, recorded{method: "GET", path: "/pets/7", auth: "Bearer tok"}, (*got)[0])

	_, _, err = execute(t, "--spec", spec, "send", "POST /pets", "-d", `{"name":"max"}`)
	require.NoError(t, err)
	require.Len(t, *got, 2)
	require.Equal(t, "POST", (*got)[1].method)
	require.JSONEq(t, `{"name":"max"}`, (*got)[1].body)

	out, _, err = execute(t, "--spec", spec, "send", "getPet", "-p", "id=9", "--dry-run")
	require.NoError(t, err)
	require.Contains(t, out, "curl -X GET '"+srv.URL+"/pets/9'")
	require.Len(t, *got, 2)

	_, _, err = execute(t, "--spec", spec, "send", "getPet", "-p", "id=abc")
	require.ErrorIs(t, err, httpclient.ErrInvalidInput)

	_, _, err = execute(t, "--spec", spec, "send", "getPet", "-q", "novalue")
	require.ErrorContains(t, err, "--query")
}

func TestSendNoResponse(t *testing.T) {
	srv, _ := upstream(t)
	spec := petsSpec(t, srv.URL)
	srv.Close()

	out, _, err := execute(t, "--spec", spec, "send", "getPet")
	require.ErrorIs(t, err, errNoResponse)
	require.Contains(t, out, httpclient.NetworkErrorStatus)
}

func TestCurl(t *testing.T) {
	out, _, err := execute(t, "curl", "--parse-only", `curl -X PUT https://api.example.com/pets/1 -H 'X-A: 1' -d '{"a":1}'`)
	require.NoError(t, err)
	require.Contains(t, out, "curl -X PUT 'https://api.example.com/pets/1'")
	require.Contains(t, out, "-H 'X-A: 1'")
	require.Contains(t, out, `-d '{"a":1}'`)

	out, _, err = execute(t, "curl", "--parse-only", "--via", "http://relay.local/api/proxy?url=", "https://api.example.com/x")
	require.NoError(t, err)
	require.Contains(t, out, "http://relay.local/api/proxy?url=https%3A%2F%2Fapi.example.com%2Fx")

	srv, got := upstream(t)
	out, _, err = execute(t, "curl", "--", "-H", "Authorization: Bearer pasted", srv.URL+"/echo")
	require.NoError(t, err)
	require.Contains(t, out, "200 OK")
	require.Equal(t, "/echo", (*got)[0].path)
	require.Equal(t, "Bearer pasted", (*got)[0].auth)

	_, _, err = execute(t, "curl", "curl -X GET")
	require.Error(t, err)
}

func TestNormalize(t *testing.T) {
	spec := writeFile(t, "swagger.json", legacyDoc)

	out, _, err := execute(t, "--spec", spec, "normalize", "--format", "yaml")
	require.NoError(t, err)
	require.Contains(t, out, "openapi: 3.0.0")
	require.Contains(t, out, "https://legacy.example.com/api")
	require.Contains(t, out, "#/components/schemas/Item")
	require.NotContains(t, out, "definitions")
	require.Less(t, strings.Index(out, "info:"), strings.Index(out, "paths:"))

	dst := filepath.Join(t.TempDir(), "out.json")
	_, errOut, err := execute(t, "--spec", spec, "normalize", "-o", dst)
	require.NoError(t, err)
	require.Contains(t, errOut, "Written: "+dst)
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(b, &doc))
	require.Equal(t, "3.0.0", doc["openapi"])
	require.NotContains(t, doc, "swagger")

	_, _, err = execute(t, "--spec", spec, "normalize", "--format", "xml")
	require.ErrorContains(t, err, `unknown format "xml"`)
}

func TestValidate(t *testing.T) {
	out, _, err := execute(t, "--spec", petsSpec(t, "https://pets.example.com"), "validate")
	require.NoError(t, err)
	require.Contains(t, out, "Pets (OpenAPI 3.0.0, 2 operations)")
	require.Contains(t, out, "valid")

	bad := writeFile(t, "bad.json", `{"openapi": "3.0.0", "paths": {"/x": {"get": {}}}}`)
	out, _, err = execute(t, "--spec", bad, "validate")
	require.ErrorIs(t, err, errInvalidDocument)
	require.Contains(t, out, "invalid:")
}

func TestAuthInspect(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"iss": "https://issuer.example.com",
		"exp": time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	out, _, err := execute(t, "auth", "inspect", tok)
	require.NoError(t, err)
	require.Contains(t, out, "type:     JWT")
	require.Contains(t, out, "subject:  alice")
	require.Contains(t, out, "issuer:   https://issuer.example.com")
	require.Contains(t, out, "2020-01-01T00:00:00Z (expired)")
	require.Contains(t, out, `"HS256"`)
	require.NotContains(t, out, tok)

	out, _, err = execute(t, "--token", "opaque-value", "auth", "inspect")
	require.NoError(t, err)
	require.Contains(t, out, "type:     opaque")

	_, _, err = execute(t, "auth", "inspect")
	require.ErrorContains(t, err, "no token given")
}

func TestAuthToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.URL.Path != "/token" || r.PostForm.Get("password") != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"bearer","expires_in":60}`))
	}))
	defer srv.Close()

	out, errOut, err := execute(t, "--base-url", srv.URL, "auth", "token", "--token-url", "/token", "--username", "u", "--password", "pw")
	require.NoError(t, err)
	require.Equal(t, "abc\n", out)
	require.Contains(t, errOut, "Bearer token, expires in 1m0s")

	out, _, err = execute(t, "auth", "token", "--token-url", srv.URL+"/token", "--username", "u", "--password", "pw", "--export")
	require.NoError(t, err)
	require.Equal(t, "export SWV_AUTH_TOKEN=abc\n", out)

	_, _, err = execute(t, "auth", "token", "--token-url", srv.URL+"/token", "--username", "u", "--password", "wrong")
	require.ErrorContains(t, err, "token request failed")

	_, _, err = execute(t, "auth", "token")
	require.ErrorContains(t, err, "token-url and username are required")
}

func TestBrowseNeedsTerminal(t *testing.T) {
	_, _, err := execute(t, "browse", "openapi.json")
	require.ErrorIs(t, err, errNotTerminal)
}

func TestWriteResultTruncated(t *testing.T) {
	var buf bytes.Buffer
	writeResult(&buf, httpclient.Result{StatusCode: 200, Status: "200 OK", Body: "abcd", Truncated: true, Headers: map[string]string{}}, false, false)
	require.Contains(t, buf.String(), "abcd")
	require.Contains(t, buf.String(), "(body truncated after 4 bytes)")
}
