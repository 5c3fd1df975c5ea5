package openapi

import (
	"strings"

	"github.com/erdncyz/swagger-viewer/internal/document"
	"github.com/erdncyz/swagger-viewer/internal/model"
)

// ExtractEndpoints flattens the path/method tree of a normalized document
// into endpoints, in declaration order, and files them by tag. A document
// without paths yields an empty list and index.
func ExtractEndpoints(doc *document.Document) ([]*model.Endpoint, *model.TagIndex) {
	out := []*model.Endpoint{}
	tags := model.NewTagIndex()

	rootSecurity := securityNames(doc.Root())
	paths := doc.Root().Object("paths")
	paths.Range(func(path string, v any) bool {
		item := document.AsObject(v)
		if item == nil {
			return true
		}
		commonParams := item.Slice("parameters")

		item.Range(func(method string, o any) bool {
			op := document.AsObject(o)
			if !model.IsMethod(method) || op == nil {
				return true
			}
			ep := &model.Endpoint{
				ID:          model.EndpointID(method, path),
				Method:      strings.ToUpper(method),
				Path:        path,
				Tags:        op.Strings("tags"),
				Summary:     strings.TrimSpace(op.String("summary")),
				Description: strings.TrimSpace(op.String("description")),
				OperationID: strings.TrimSpace(op.String("operationId")),
				Deprecated:  op.Bool("deprecated"),
			}
			if len(ep.Tags) == 0 {
				ep.Tags = []string{model.UntaggedTag}
			}
			ep.Parameters = extractParams(doc, mergeParams(doc, commonParams, op.Slice("parameters")))
			ep.RequestBody = extractBody(doc, op.Object("requestBody"))
			ep.Responses = extractResponses(doc, op.Object("responses"))
			ep.Security = rootSecurity
			if op.Has("security") {
				ep.Security = securityNames(op)
			}

			out = append(out, ep)
			tags.Add(ep)
			return true
		})
		return true
	})

	return out, tags
}

// mergeParams appends path-level parameters that the operation does not
// redeclare under the same (name, in).
func mergeParams(doc *document.Document, common, own []any) []any {
	if len(common) == 0 {
		return own
	}
	key := func(p any) string {
		o := document.AsObject(document.ResolveSchema(doc, p))
		return o.String("in") + "\x00" + o.String("name")
	}
	seen := map[string]bool{}
	for _, p := range own {
		seen[key(p)] = true
	}
	out := append([]any(nil), own...)
	for _, p := range common {
		if !seen[key(p)] {
			out = append(out, p)
		}
	}
	return out
}

func extractParams(doc *document.Document, params []any) []model.Param {
	var out []model.Param
	for _, raw := range params {
		p := document.AsObject(document.ResolveSchema(doc, raw))
		if p == nil {
			continue
		}
		schema := ParamSchema(p)
		resolved := document.AsObject(document.ResolveSchema(doc, schema))
		mp := model.Param{
			Name:        p.String("name"),
			In:          model.ParamLocation(p.String("in")),
			Required:    p.Bool("required"),
			Deprecated:  p.Bool("deprecated"),
			Description: strings.TrimSpace(p.String("description")),
			Schema:      schema,
			Type:        schemaType(doc, schema),
			Format:      resolved.String("format"),
			Enum:        resolved.Slice("enum"),
		}
		if v, ok := resolved.Get("default"); ok {
			mp.Default = v
		}
		if v, ok := p.Get("example"); ok {
			mp.Example = v
		} else if v, ok := resolved.Get("example"); ok {
			mp.Example = v
		}
		out = append(out, mp)
	}
	return out
}

// ParamSchema returns the schema of a parameter object: its inline schema,
// or for Swagger 2 non-body parameters a schema assembled from the legacy
// fields found directly on the parameter.
func ParamSchema(p *document.Object) any {
	if s, ok := p.Get("schema"); ok {
		return s
	}
	legacy := document.NewObject()
	for _, k := range []string{"type", "format", "enum", "default", "items", "minimum", "maximum", "pattern", "example"} {
		if v, ok := p.Get(k); ok {
			legacy.Set(k, v)
		}
	}
	if legacy.Len() == 0 {
		return nil
	}
	return legacy
}

func extractBody(doc *document.Document, raw *document.Object) *model.RequestBody {
	rb := document.AsObject(document.ResolveSchema(doc, raw))
	if rb == nil {
		return nil
	}
	return &model.RequestBody{
		Description: strings.TrimSpace(rb.String("description")),
		Required:    rb.Bool("required"),
		Content:     extractContent(rb.Object("content")),
	}
}

func extractResponses(doc *document.Document, responses *document.Object) []model.Response {
	var out []model.Response
	responses.Range(func(code string, v any) bool {
		r := document.AsObject(document.ResolveSchema(doc, v))
		out = append(out, model.Response{
			Status:      code,
			Description: strings.TrimSpace(r.String("description")),
			Content:     extractContent(r.Object("content")),
		})
		return true
	})
	return out
}

func extractContent(content *document.Object) []model.MediaType {
	var out []model.MediaType
	content.Range(func(name string, v any) bool {
		m := document.AsObject(v)
		mt := model.MediaType{Name: name}
		if s, ok := m.Get("schema"); ok {
			mt.Schema = s
		}
		if e, ok := m.Get("example"); ok {
			mt.Example = e
		}
		out = append(out, mt)
		return true
	})
	return out
}

// securityNames lists the scheme names of every security requirement on o.
// An explicit empty list yields none, which opts an operation out of the
// document-level requirement.
func securityNames(o *document.Object) []string {
	var out []string
	for _, req := range o.Slice("security") {
		out = append(out, document.AsObject(req).Keys()...)
	}
	return out
}

// ExtractSecuritySchemes lists components.securitySchemes in declaration order.
func ExtractSecuritySchemes(doc *document.Document) []model.SecurityScheme {
	var out []model.SecurityScheme
	doc.Root().Object("components").Object("securitySchemes").Range(func(name string, v any) bool {
		s := document.AsObject(v)
		ss := model.SecurityScheme{
			Name:         name,
			Type:         s.String("type"),
			Scheme:       s.String("scheme"),
			BearerFormat: s.String("bearerFormat"),
			In:           s.String("in"),
			ParamName:    s.String("name"),
			Description:  strings.TrimSpace(s.String("description")),
		}
		if pw := s.Object("flows").Object("password"); pw != nil {
			ss.TokenURL = pw.String("tokenUrl")
		}
		out = append(out, ss)
		return true
	})
	return out
}

// Servers returns the server URLs declared by a normalized document.
func Servers(doc *document.Document) []string {
	var out []string
	for _, s := range doc.Root().Slice("servers") {
		if u := strings.TrimSpace(document.AsObject(s).String("url")); u != "" {
			out = append(out, u)
		}
	}
	return out
}
