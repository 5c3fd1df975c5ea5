// Package example synthesizes illustrative JSON values from schema nodes.
package example

import (
	"github.com/erdncyz/swagger-viewer/internal/document"
	"github.com/erdncyz/swagger-viewer/internal/openapi"
)

const (
	// CircularSentinel replaces a reference that is already being expanded
	// on the current branch.
	CircularSentinel = "...circular ref..."
	// UnknownSentinel is emitted for schemas whose type cannot be determined.
	UnknownSentinel = "unknown"
)

var formatSamples = map[string]string{
	"date-time": "2024-01-01T00:00:00Z",
	"date":      "2024-01-01",
	"email":     "user@example.com",
	"uri":       "https://example.com",
	"url":       "https://example.com",
	"uuid":      "3fa85f64-5717-4562-b3fc-2c963f66afa6",
}

// seen is the set of reference pointers open on one recursion branch. It is
// never mutated after creation; with returns a copy.
type seen map[string]struct{}

func (s seen) with(ref string) seen {
	out := make(seen, len(s)+1)
	for k := range s {
		out[k] = struct{}{}
	}
	out[ref] = struct{}{}
	return out
}

// Generate returns a sample value for schema. It always returns a value:
// absent schemas yield nil and cycles yield CircularSentinel. Objects are
// returned as *document.Object so property order follows the schema.
func Generate(doc *document.Document, schema any) any {
	return generate(doc, schema, seen{})
}

func generate(doc *document.Document, schema any, visited seen) any {
	if schema == nil {
		return nil
	}
	if ref, ok := document.Ref(schema); ok {
		if _, open := visited[ref]; open {
			return CircularSentinel
		}
		resolved, ok := document.Resolve(doc, ref)
		if !ok {
			return nil
		}
		return generate(doc, resolved, visited.with(ref))
	}

	s := document.AsObject(schema)
	if s == nil {
		return nil
	}
	if v, ok := s.Get("example"); ok {
		return document.Copy(v)
	}
	if all := s.Slice("allOf"); len(all) > 0 {
		return generateAllOf(doc, s, all, visited)
	}
	for _, k := range []string{"oneOf", "anyOf"} {
		if branches := s.Slice(k); len(branches) > 0 {
			return generate(doc, branches[0], visited)
		}
	}

	t := openapi.SchemaTypeName(s)
	if t == "" && isTypeList(s) {
		return nil
	}
	if t == "object" || s.Has("properties") {
		return generateObject(doc, s, visited)
	}
	if t == "array" {
		item, ok := s.Get("items")
		if !ok {
			return []any{}
		}
		v := generate(doc, item, visited)
		if v == nil {
			return []any{}
		}
		return []any{v}
	}
	return primitive(s, t)
}

func generateObject(doc *document.Document, s *document.Object, visited seen) *document.Object {
	out := document.NewObject()
	s.Object("properties").Range(func(name string, prop any) bool {
		out.Set(name, generate(doc, prop, visited))
		return true
	})
	return out
}

// generateAllOf merges the members of every object-shaped branch in order;
// the schema's own properties come last. Non-object branches are skipped
// unless nothing else produced a value.
func generateAllOf(doc *document.Document, s *document.Object, branches []any, visited seen) any {
	var merged *document.Object
	var fallback any
	for _, b := range branches {
		v := generate(doc, b, visited)
		obj, ok := v.(*document.Object)
		if !ok {
			if fallback == nil {
				fallback = v
			}
			continue
		}
		if merged == nil {
			merged = document.NewObject()
		}
		obj.Range(func(k string, v any) bool {
			merged.Set(k, v)
			return true
		})
	}
	if s.Has("properties") {
		own := generateObject(doc, s, visited)
		if merged == nil {
			merged = document.NewObject()
		}
		own.Range(func(k string, v any) bool {
			merged.Set(k, v)
			return true
		})
	}
	if merged != nil {
		return merged
	}
	return fallback
}

func primitive(s *document.Object, t string) any {
	if enum := s.Slice("enum"); len(enum) > 0 {
		return document.Copy(enum[0])
	}
	switch t {
	case "string":
		if v, ok := formatSamples[s.String("format")]; ok {
			return v
		}
		return "string"
	case "integer", "number":
		return 0
	case "boolean":
		return false
	case "null":
		return nil
	}
	if s.Bool("nullable") {
		return nil
	}
	return UnknownSentinel
}

// isTypeList reports whether type is given as an array.
func isTypeList(s *document.Object) bool {
	v, _ := s.Get("type")
	_, ok := v.([]any)
	return ok
}
