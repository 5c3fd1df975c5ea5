package httpclient

import (
	"encoding/json"
	"fmt"

	"github.com/erdncyz/swagger-viewer/internal/document"
	"github.com/erdncyz/swagger-viewer/internal/example"
	"github.com/erdncyz/swagger-viewer/internal/model"
)

// DefaultInputs pre-fills Inputs for ep: each parameter takes its default,
// then its example, then its first enum value. The body is the declared
// JSON example or one generated from the body schema.
func DefaultInputs(doc *document.Document, ep *model.Endpoint) Inputs {
	in := Inputs{
		Path:   map[string]string{},
		Query:  map[string]string{},
		Header: map[string]string{},
		Cookie: map[string]string{},
	}
	for _, p := range ep.Parameters {
		v, ok := seed(p)
		if !ok {
			continue
		}
		switch p.In {
		case model.ParamInPath:
			in.Path[p.Name] = v
		case model.ParamInQuery:
			in.Query[p.Name] = v
		case model.ParamInHeader:
			in.Header[p.Name] = v
		case model.ParamInCookie:
			in.Cookie[p.Name] = v
		}
	}
	if ep.HasBody() {
		in.Body = BodyExample(doc, ep)
	}
	return in
}

// BodyExample is the indented JSON sample for ep's request body, or "" when
// it declares no JSON body.
func BodyExample(doc *document.Document, ep *model.Endpoint) string {
	if ep.RequestBody == nil {
		return ""
	}
	for _, m := range ep.RequestBody.Content {
		if m.Name != "application/json" {
			continue
		}
		v := m.Example
		if v == nil {
			if m.Schema == nil {
				return ""
			}
			v = example.Generate(doc, m.Schema)
		}
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return ""
		}
		return string(b)
	}
	return ""
}

func seed(p model.Param) (string, bool) {
	for _, v := range []any{p.Default, p.Example} {
		if v != nil {
			return stringify(v), true
		}
	}
	if len(p.Enum) > 0 && p.Enum[0] != nil {
		return stringify(p.Enum[0]), true
	}
	return "", false
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool, int, int64, float64:
		return fmt.Sprint(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// ExampleRequest is a ready-to-send sample request. Error is set instead
// of URL when the defaults cannot satisfy a required parameter.
type ExampleRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Inputs  Inputs            `json:"inputs"`
	Body    any               `json:"body,omitempty"`
	Curl    string            `json:"curl,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// Example is the /api/example payload.
type Example struct {
	Endpoint  string         `json:"endpoint"`
	Request   ExampleRequest `json:"request"`
	Responses map[string]any `json:"responses"`
}

// BuildExample assembles the sample request against baseURL and the
// per-status sample responses for ep.
func BuildExample(doc *document.Document, ep *model.Endpoint, baseURL string) Example {
	in := DefaultInputs(doc, ep)
	req := ExampleRequest{Method: ep.Method, Inputs: in}
	if ep.HasBody() {
		req.Body = example.Generate(doc, ep.RequestBody.JSONSchema())
		for _, m := range ep.RequestBody.Content {
			if m.Name == "application/json" && m.Example != nil {
				req.Body = m.Example
			}
		}
	}
	if spec, err := BuildRequest(baseURL, ep, in, Auth{}); err == nil {
		req.URL = spec.URL
		req.Headers = spec.Headers
		req.Curl = CurlCommand(spec)
	} else {
		req.Error = err.Error()
	}

	out := Example{Endpoint: ep.ID, Request: req, Responses: map[string]any{}}
	for _, resp := range ep.Responses {
		if v := resp.JSONExample(); v != nil {
			out.Responses[resp.Status] = v
			continue
		}
		if schema := resp.JSONSchema(); schema != nil {
			out.Responses[resp.Status] = example.Generate(doc, schema)
		}
	}
	return out
}
