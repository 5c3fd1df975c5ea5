package openapi

import (
	"net/url"
	"strings"

	"github.com/erdncyz/swagger-viewer/internal/document"
	"github.com/erdncyz/swagger-viewer/internal/model"
)

// OpenAPIVersion is the marker written into normalized Swagger 2 documents.
const OpenAPIVersion = "3.0.0"

const jsonMediaType = "application/json"

type refMapping struct {
	from string
	to   string
}

// Swagger 2 sections and the component section each one moves to. Order
// matters only for output key order.
var sectionMappings = []struct {
	legacy    string
	component string
	refs      refMapping
}{
	{"definitions", "schemas", refMapping{"#/definitions/", "#/components/schemas/"}},
	{"parameters", "parameters", refMapping{"#/parameters/", "#/components/parameters/"}},
	{"responses", "responses", refMapping{"#/responses/", "#/components/responses/"}},
	{"securityDefinitions", "securitySchemes", refMapping{"#/securityDefinitions/", "#/components/securitySchemes/"}},
}

// Top-level Swagger 2 keys that have no place in the normalized document.
var legacyKeys = []string{"swagger", "host", "basePath", "schemes", "definitions", "parameters", "responses", "securityDefinitions"}

// Normalize rewrites a Swagger 2 document into the OpenAPI 3 shape. Anything
// else, including an already normalized document, is returned unchanged.
// sourceURL, when given, supplies host and scheme if the document has no host.
// Normalize never fails: fields it cannot derive are left out. The input is
// not modified.
func Normalize(doc *document.Document, sourceURL string) *document.Document {
	if doc == nil || doc.IsOpenAPI3() || !doc.IsSwagger2() {
		return doc
	}
	src := doc.Root()
	out := src.Clone()
	for _, k := range legacyKeys {
		out.Delete(k)
	}
	out.Set("openapi", OpenAPIVersion)

	if servers := deriveServers(src, sourceURL); servers != nil {
		out.Set("servers", servers)
	}

	if comps := relocateComponents(src); comps != nil {
		out.Set("components", comps)
	}

	if paths := src.Object("paths"); paths != nil {
		out.Set("paths", convertPaths(paths))
	}

	return document.New(document.AsObject(rewriteRefs(out)))
}

func deriveServers(src *document.Object, sourceURL string) []any {
	host := strings.TrimSpace(src.String("host"))
	scheme := ""
	if schemes := src.Strings("schemes"); len(schemes) > 0 {
		scheme = schemes[0]
	}
	if host == "" && sourceURL != "" {
		if u, err := url.Parse(sourceURL); err == nil && u.Host != "" {
			host = u.Host
			scheme = u.Scheme
		}
	}
	if host == "" {
		return nil
	}
	if scheme == "" {
		scheme = "https"
	}
	return []any{document.ObjectOf("url", scheme+"://"+host+src.String("basePath"))}
}

func relocateComponents(src *document.Object) *document.Object {
	comps := src.Object("components").Clone()
	if comps == nil {
		comps = document.NewObject()
	}
	for _, m := range sectionMappings {
		section := src.Object(m.legacy)
		if section == nil {
			continue
		}
		if m.legacy == "securityDefinitions" {
			section = convertSecurity(section)
		}
		comps.Set(m.component, section)
	}
	if comps.Len() == 0 {
		return nil
	}
	return comps
}

func convertSecurity(defs *document.Object) *document.Object {
	out := document.NewObject()
	defs.Range(func(name string, v any) bool {
		def := document.AsObject(v)
		if def == nil {
			out.Set(name, v)
			return true
		}
		switch def.String("type") {
		case "basic":
			conv := document.ObjectOf("type", "http", "scheme", "basic")
			if d := def.String("description"); d != "" {
				conv.Set("description", d)
			}
			out.Set(name, conv)
		case "oauth2":
			out.Set(name, convertOAuth2(def))
		default:
			out.Set(name, def)
		}
		return true
	})
	return out
}

var oauthFlows = map[string]string{
	"implicit":    "implicit",
	"password":    "password",
	"application": "clientCredentials",
	"accessCode":  "authorizationCode",
}

func convertOAuth2(def *document.Object) *document.Object {
	flow := document.NewObject()
	for _, k := range []string{"authorizationUrl", "tokenUrl"} {
		if v := def.String(k); v != "" {
			flow.Set(k, v)
		}
	}
	scopes := def.Object("scopes")
	if scopes == nil {
		scopes = document.NewObject()
	}
	flow.Set("scopes", scopes)

	conv := document.ObjectOf("type", "oauth2")
	if d := def.String("description"); d != "" {
		conv.Set("description", d)
	}
	if name, ok := oauthFlows[def.String("flow")]; ok {
		conv.Set("flows", document.ObjectOf(name, flow))
	}
	return conv
}

func convertPaths(paths *document.Object) *document.Object {
	out := document.NewObject()
	paths.Range(func(path string, v any) bool {
		item := document.AsObject(v)
		newItem := document.NewObject()
		item.Range(func(method string, op any) bool {
			if !model.IsMethod(method) {
				return true
			}
			if o := document.AsObject(op); o != nil {
				newItem.Set(method, convertOperation(o))
			} else {
				newItem.Set(method, op)
			}
			return true
		})
		out.Set(path, newItem)
		return true
	})
	return out
}

// convertOperation moves the body parameter into requestBody and response
// schemas into content. When several body parameters are declared the first
// one wins and the others are dropped.
func convertOperation(op *document.Object) *document.Object {
	out := op.Clone()

	if params := op.Slice("parameters"); params != nil {
		var body *document.Object
		rest := make([]any, 0, len(params))
		for _, p := range params {
			po := document.AsObject(p)
			if po.String("in") == string(model.ParamInBody) {
				if body == nil {
					body = po
				}
				continue
			}
			rest = append(rest, p)
		}
		out.Set("parameters", rest)

		if schema, ok := body.Get("schema"); ok && schema != nil {
			rb := document.NewObject()
			if d := body.String("description"); d != "" {
				rb.Set("description", d)
			}
			rb.Set("content", document.ObjectOf(jsonMediaType, document.ObjectOf("schema", schema)))
			rb.Set("required", body.Bool("required"))
			out.Set("requestBody", rb)
		}
	}

	if responses := op.Object("responses"); responses != nil {
		out.Set("responses", convertResponses(responses))
	}
	return out
}

func convertResponses(responses *document.Object) *document.Object {
	out := document.NewObject()
	responses.Range(func(code string, v any) bool {
		resp := document.AsObject(v)
		if resp == nil {
			out.Set(code, v)
			return true
		}
		newResp := resp.Clone()
		schema, hasSchema := resp.Get("schema")
		example, hasExample := resp.Object("examples").Get(jsonMediaType)
		if hasSchema || hasExample {
			media := document.NewObject()
			if hasSchema {
				media.Set("schema", schema)
			}
			if hasExample {
				media.Set("example", example)
			}
			newResp.Set("content", document.ObjectOf(jsonMediaType, media))
			newResp.Delete("schema")
			newResp.Delete("examples")
		}
		out.Set(code, newResp)
		return true
	})
	return out
}

// rewriteRefs returns a copy of v with every legacy reference prefix replaced
// in every string, at any depth.
func rewriteRefs(v any) any {
	switch t := v.(type) {
	case *document.Object:
		out := document.NewObject()
		t.Range(func(k string, val any) bool {
			out.Set(rewriteString(k), rewriteRefs(val))
			return true
		})
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = rewriteRefs(val)
		}
		return out
	case string:
		return rewriteString(t)
	default:
		return v
	}
}

func rewriteString(s string) string {
	if !strings.Contains(s, "#/") {
		return s
	}
	for _, m := range sectionMappings {
		s = strings.ReplaceAll(s, m.refs.from, m.refs.to)
	}
	return s
}
