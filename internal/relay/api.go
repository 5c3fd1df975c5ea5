package relay

import (
	"net/http"
	"strings"

	"github.com/erdncyz/swagger-viewer/internal/httpclient"
	"github.com/erdncyz/swagger-viewer/internal/model"
	"github.com/erdncyz/swagger-viewer/internal/openapi"
)

// EndpointSummary is the JSON form of an endpoint in /api/spec.
type EndpointSummary struct {
	ID          string   `json:"id"`
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	Summary     string   `json:"summary,omitempty"`
	OperationID string   `json:"operationId,omitempty"`
	Tags        []string `json:"tags"`
	Deprecated  bool     `json:"deprecated,omitempty"`
}

type specResponse struct {
	Source        string              `json:"source"`
	RetrievedFrom string              `json:"retrievedFrom"`
	Title         string              `json:"title"`
	Version       string              `json:"version"`
	OpenAPI       string              `json:"openapi"`
	BaseURL       string              `json:"baseUrl,omitempty"`
	Warnings      []string            `json:"warnings,omitempty"`
	Endpoints     []EndpointSummary   `json:"endpoints"`
	Tags          map[string][]string `json:"tags"`
	TagOrder      []string            `json:"tagOrder"`
	Document      any                 `json:"document"`
}

// Summarize converts endpoints to their JSON summary form.
func Summarize(eps []*model.Endpoint) []EndpointSummary {
	out := make([]EndpointSummary, 0, len(eps))
	for _, ep := range eps {
		out = append(out, EndpointSummary{
			ID:          ep.ID,
			Method:      ep.Method,
			Path:        ep.Path,
			Summary:     ep.Summary,
			OperationID: ep.OperationID,
			Tags:        ep.Tags,
			Deprecated:  ep.Deprecated,
		})
	}
	return out
}

func (s *Server) load(w http.ResponseWriter, r *http.Request) (*openapi.Session, bool) {
	if s.loader == nil {
		errorJSON(w, http.StatusServiceUnavailable, "document loading is not configured")
		return nil, false
	}
	source := strings.TrimSpace(r.URL.Query().Get("url"))
	if source == "" {
		errorJSON(w, http.StatusBadRequest, `Missing "url" query parameter`)
		return nil, false
	}
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		errorJSON(w, http.StatusBadRequest, "url must be an http(s) URL")
		return nil, false
	}
	sess, err := s.loader.Load(r.Context(), source)
	if err != nil {
		errorJSON(w, http.StatusBadGateway, "%s", err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleSpec(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, specResponse{
		Source:        sess.Source,
		RetrievedFrom: sess.RetrievedFrom,
		Title:         sess.Title(),
		Version:       sess.Info().String("version"),
		OpenAPI:       sess.Document.Version(),
		BaseURL:       sess.BaseURL(),
		Warnings:      sess.Warnings,
		Endpoints:     Summarize(sess.Endpoints),
		Tags:          sess.Tags.Map(),
		TagOrder:      sess.Tags.Tags(),
		Document:      sess.Document,
	})
}

func (s *Server) handleExample(w http.ResponseWriter, r *http.Request) {
	ref := strings.TrimSpace(r.URL.Query().Get("endpoint"))
	if ref == "" {
		errorJSON(w, http.StatusBadRequest, `Missing "endpoint" query parameter`)
		return
	}
	sess, ok := s.load(w, r)
	if !ok {
		return
	}
	ep, ok := sess.Find(ref)
	if !ok {
		errorJSON(w, http.StatusNotFound, "unknown endpoint: %s", ref)
		return
	}
	writeJSON(w, http.StatusOK, httpclient.BuildExample(sess.Document, ep, sess.BaseURL()))
}
