package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erdncyz/swagger-viewer/internal/httpclient"
	"github.com/erdncyz/swagger-viewer/internal/log"
	"github.com/erdncyz/swagger-viewer/internal/openapi"
)

const petsDoc = `{
  "openapi": "3.0.0",
  "info": {"title": "Pets", "version": "1.2.0"},
  "servers": [{"url": "https://pets.example.com/v1"}],
  "paths": {
    "/pets/{id}": {
      "get": {
        "tags": ["Pets"],
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
        "requestBody": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/Pet"}}}},
        "responses": {"201": {"description": "created"}}
      }
    }
  },
  "components": {"schemas": {"Pet": {"type": "object", "properties": {"name": {"type": "string"}, "age": {"type": "integer"}}}}}
}`

func newTestServer(t *testing.T, loader *openapi.Loader) *httptest.Server {
	t.Helper()
	s := New(Options{Loader: loader, Logger: log.Discard()})
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return srv
}

func proxyURL(srv *httptest.Server, target string) string {
	return srv.URL + "/api/proxy?url=" + url.QueryEscape(target)
}

func decode(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(r).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", decode(t, resp.Body)["status"])
	require.NotEmpty(t, resp.Header.Get(log.RequestIDHeader))
}

func TestProxyPreflight(t *testing.T) {
	srv := newTestServer(t, nil)
	req, err := http.NewRequest(http.MethodOptions, proxyURL(srv, "https://example.com"), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "PATCH")
	require.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "x-device-id")
}

func TestProxyBrowserPreflight(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, target := range []string{proxyURL(srv, "https://example.com"), srv.URL + "/api/spec?url=x"} {
		req, err := http.NewRequest(http.MethodOptions, target, nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", http.MethodPut)
		req.Header.Set("Access-Control-Request-Headers", "Authorization")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusNoContent, resp.StatusCode, target)
		require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"), target)
	}
}

func TestProxyRejectsOtherMethods(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("upstream got %s", r.Method)
	}))
	defer upstream.Close()
	srv := newTestServer(t, nil)

	for _, m := range []string{"TRACE", "PROPFIND"} {
		req, err := http.NewRequest(m, proxyURL(srv, upstream.URL), nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, m)
	}

	req, err := http.NewRequest(http.MethodHead, proxyURL(srv, "http://127.0.0.1:1"), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestProxyMissingURL(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/api/proxy")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.JSONEq(t, `{"error":"Missing \"url\" query parameter"}`, string(b))
}

func TestProxyForwards(t *testing.T) {
	var got struct {
		method, auth, custom, body string
	}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.auth = r.Header.Get("Authorization")
		got.custom = r.Header.Get("X-Device-Id")
		b, _ := io.ReadAll(r.Body)
		got.body = string(b)
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	defer upstream.Close()

	srv := newTestServer(t, nil)
	req, err := http.NewRequest(http.MethodPut, proxyURL(srv, upstream.URL+"/brew?x=1"), strings.NewReader(`{"cups":2}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer abc")
	req.Header.Set("X-Device-Id", "dev-1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusTeapot, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "short and stout", string(b))
	require.Equal(t, "yes", resp.Header.Get("X-Upstream"))
	require.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	require.Equal(t, http.MethodPut, got.method)
	require.Equal(t, "Bearer abc", got.auth)
	require.Equal(t, "dev-1", got.custom)
	require.Equal(t, `{"cups":2}`, got.body)
}

func TestProxyDoesNotFollowRedirects(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer upstream.Close()

	srv := newTestServer(t, nil)
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Get(proxyURL(srv, upstream.URL))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/elsewhere", resp.Header.Get("Location"))
}

func TestProxyUpstreamFailure(t *testing.T) {
	down := httptest.NewServer(http.NotFoundHandler())
	target := down.URL
	down.Close()

	srv := newTestServer(t, nil)
	resp, err := http.Get(proxyURL(srv, target))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	out := decode(t, resp.Body)
	require.True(t, strings.HasPrefix(out["error"].(string), "Proxy error: "), out["error"])
	require.Equal(t, "ECONNREFUSED", out["code"])
}

func specServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openapi.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(petsDoc))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSpec(t *testing.T) {
	origin := specServer(t)
	srv := newTestServer(t, &openapi.Loader{Candidates: openapi.Candidates()})

	resp, err := http.Get(srv.URL + "/api/spec?url=" + url.QueryEscape(origin.URL+"/openapi.json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode(t, resp.Body)
	require.Equal(t, "Pets", out["title"])
	require.Equal(t, "1.2.0", out["version"])
	require.Equal(t, "3.0.0", out["openapi"])
	require.Equal(t, "https://pets.example.com/v1", out["baseUrl"])
	require.Equal(t, []any{"Pets"}, out["tagOrder"])
	eps := out["endpoints"].([]any)
	require.Len(t, eps, 2)
	first := eps[0].(map[string]any)
	require.Equal(t, "GET", first["method"])
	require.Equal(t, "/pets/{id}", first["path"])
	require.Equal(t, "getPet", first["operationId"])
	require.Contains(t, out, "document")
}

func TestSpecErrors(t *testing.T) {
	origin := specServer(t)

	t.Run("no loader", func(t *testing.T) {
		srv := newTestServer(t, nil)
		resp, err := http.Get(srv.URL + "/api/spec?url=" + url.QueryEscape(origin.URL+"/openapi.json"))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	srv := newTestServer(t, &openapi.Loader{Candidates: openapi.Candidates()})
	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"missing url", "", http.StatusBadRequest},
		{"local path", "url=" + url.QueryEscape("/etc/passwd"), http.StatusBadRequest},
		{"unreachable", "url=" + url.QueryEscape(origin.URL+"/nope.json"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/api/spec?" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tt.status, resp.StatusCode)
			require.NotEmpty(t, decode(t, resp.Body)["error"])
		})
	}
}

func TestExample(t *testing.T) {
	origin := specServer(t)
	srv := newTestServer(t, &openapi.Loader{Candidates: openapi.Candidates()})
	specURL := url.QueryEscape(origin.URL + "/openapi.json")

	resp, err := http.Get(srv.URL + "/api/example?url=" + specURL + "&endpoint=getPet")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ex httpclient.Example
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ex))
	require.Equal(t, "GET-/pets/{id}", ex.Endpoint)
	require.Equal(t, "GET", ex.Request.Method)
	require.Equal(t, "https://pets.example.com/v1/pets/7", ex.Request.URL)
	require.Contains(t, ex.Request.Curl, "curl -X GET 'https://pets.example.com/v1/pets/7'")
	require.Equal(t, map[string]any{"name": "string", "age": float64(0)}, ex.Responses["200"])
	require.Equal(t, map[string]any{"detail": "not found"}, ex.Responses["404"])
}

func TestExampleRequestBody(t *testing.T) {
	origin := specServer(t)
	srv := newTestServer(t, &openapi.Loader{Candidates: openapi.Candidates()})

	resp, err := http.Get(srv.URL + "/api/example?url=" + url.QueryEscape(origin.URL+"/openapi.json") + "&endpoint=" + url.QueryEscape("POST /pets"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ex httpclient.Example
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ex))
	require.Equal(t, "POST", ex.Request.Method)
	require.Equal(t, map[string]any{"name": "string", "age": float64(0)}, ex.Request.Body)
	require.Empty(t, ex.Request.Error)
}

func TestExampleErrors(t *testing.T) {
	origin := specServer(t)
	srv := newTestServer(t, &openapi.Loader{Candidates: openapi.Candidates()})
	specURL := url.QueryEscape(origin.URL + "/openapi.json")

	resp, err := http.Get(srv.URL + "/api/example?url=" + specURL)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/example?url=" + specURL + "&endpoint=nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "unknown endpoint: nope", decode(t, resp.Body)["error"])
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(Options{Logger: log.Discard()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()
	cancel()
	require.NoError(t, <-done)
}
