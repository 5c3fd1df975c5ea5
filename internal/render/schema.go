// Package render formats documents, schemas and responses for terminal output.
package render

import (
	"fmt"
	"strings"

	"github.com/erdncyz/swagger-viewer/internal/document"
	"github.com/erdncyz/swagger-viewer/internal/openapi"
)

// MaxSchemaDepth bounds how many nested object levels SchemaTree expands.
const MaxSchemaDepth = 4

const indentUnit = "  "

// SchemaTree renders schema as an indented outline, one property per line:
// name, type label, a required marker and the description.
func SchemaTree(doc *document.Document, schema any) string {
	var sb strings.Builder
	writeSchema(&sb, doc, schema, 0)
	return strings.TrimRight(sb.String(), "\n")
}

func line(sb *strings.Builder, depth int, text string) {
	sb.WriteString(strings.Repeat(indentUnit, depth))
	sb.WriteString(text)
	sb.WriteByte('\n')
}

func writeSchema(sb *strings.Builder, doc *document.Document, schema any, depth int) {
	if schema == nil {
		line(sb, depth, "-")
		return
	}
	resolved := document.AsObject(document.ResolveSchema(doc, schema))
	if resolved == nil {
		if ref, ok := document.Ref(schema); ok {
			line(sb, depth, document.RefName(ref))
			return
		}
		line(sb, depth, "Unknown schema")
		return
	}

	t := openapi.SchemaTypeName(resolved)
	switch {
	case t == "array":
		line(sb, depth, "Array of:")
		items, _ := resolved.Get("items")
		writeSchema(sb, doc, items, depth+1)

	case t == "object" || resolved.Has("properties"):
		if ref, ok := document.Ref(schema); ok && depth == 0 {
			line(sb, depth, document.RefName(ref))
		}
		props := resolved.Object("properties")
		if props.Len() == 0 {
			if ap, ok := resolved.Get("additionalProperties"); ok && ap != false {
				line(sb, depth, "Map / Dictionary")
			} else {
				line(sb, depth, "Empty object")
			}
			return
		}
		required := map[string]bool{}
		for _, r := range resolved.Strings("required") {
			required[r] = true
		}
		props.Range(func(name string, prop any) bool {
			parts := []string{name, openapi.TypeLabel(doc, prop)}
			if required[name] {
				parts = append(parts, "required")
			}
			if desc := PlainText(document.AsObject(prop).String("description")); desc != "" {
				parts = append(parts, "- "+desc)
			}
			line(sb, depth, strings.Join(parts, "  "))
			if depth < MaxSchemaDepth && isNested(doc, prop) {
				writeSchema(sb, doc, prop, depth+1)
			}
			return true
		})

	default:
		label := t
		if label == "" {
			label = "any"
		}
		if f := resolved.String("format"); f != "" {
			label += " (" + f + ")"
		}
		if enum := resolved.Slice("enum"); len(enum) > 0 {
			vals := make([]string, len(enum))
			for i, v := range enum {
				vals[i] = fmt.Sprint(v)
			}
			label += " enum: [" + strings.Join(vals, ", ") + "]"
		}
		if resolved.Bool("nullable") {
			label += " | null"
		}
		line(sb, depth, label)
	}
}

func isNested(doc *document.Document, schema any) bool {
	s := document.AsObject(document.ResolveSchema(doc, schema))
	if s == nil {
		return false
	}
	t := openapi.SchemaTypeName(s)
	return t == "object" || t == "array" || s.Has("properties")
}
