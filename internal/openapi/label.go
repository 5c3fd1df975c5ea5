package openapi

import (
	"github.com/erdncyz/swagger-viewer/internal/document"
	"github.com/erdncyz/swagger-viewer/internal/model"
)

// SchemaTypeName returns the primary type of a resolved schema node. OpenAPI
// 3.1 type arrays yield their first non-null member.
func SchemaTypeName(schema *document.Object) string {
	v, _ := schema.Get("type")
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s != "null" {
				return s
			}
		}
	}
	return ""
}

func schemaType(doc *document.Document, schema any) model.ParamType {
	s := document.AsObject(document.ResolveSchema(doc, schema))
	if s == nil {
		return model.TypeUnknown
	}
	switch t := model.ParamType(SchemaTypeName(s)); t {
	case model.TypeString, model.TypeInteger, model.TypeNumber, model.TypeBoolean, model.TypeArray, model.TypeObject:
		return t
	}
	if s.Has("properties") {
		return model.TypeObject
	}
	return model.TypeUnknown
}

// TypeLabel renders a short type description: a reference shows its schema
// name, arrays show "item[]", formats appear in parentheses and nullable
// schemas end in "?".
func TypeLabel(doc *document.Document, schema any) string {
	return typeLabel(doc, schema, 0)
}

const maxLabelDepth = 8

func typeLabel(doc *document.Document, schema any, depth int) string {
	if schema == nil || depth > maxLabelDepth {
		return "any"
	}
	if ref, ok := document.Ref(schema); ok {
		return document.RefName(ref)
	}
	s := document.AsObject(document.ResolveSchema(doc, schema))
	if s == nil {
		return "any"
	}
	t := SchemaTypeName(s)
	if t == "array" {
		item := "any"
		if items, ok := s.Get("items"); ok {
			item = typeLabel(doc, items, depth+1)
		}
		return item + "[]"
	}
	label := t
	if label == "" {
		label = "any"
	}
	if f := s.String("format"); f != "" {
		label += "(" + f + ")"
	}
	if s.Bool("nullable") {
		label += "?"
	}
	return label
}
