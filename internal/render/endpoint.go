package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/erdncyz/swagger-viewer/internal/document"
	"github.com/erdncyz/swagger-viewer/internal/model"
	"github.com/erdncyz/swagger-viewer/internal/openapi"
)

// Endpoint writes the human-readable description of ep: summary,
// parameters, request body schema and responses.
func Endpoint(w io.Writer, doc *document.Document, ep *model.Endpoint, color bool) {
	fmt.Fprintf(w, "%s %s\n", Method(ep.Method, color), Path(ep.Path, color))
	if ep.Summary != "" {
		fmt.Fprintf(w, "%s\n", PlainText(ep.Summary))
	}
	if ep.Description != "" {
		fmt.Fprintf(w, "\n%s\n", PlainText(ep.Description))
	}
	if ep.OperationID != "" {
		fmt.Fprintf(w, "\noperationId: %s\n", ep.OperationID)
	}
	if ep.Deprecated {
		fmt.Fprintln(w, "deprecated: true")
	}
	if len(ep.Security) > 0 {
		fmt.Fprintf(w, "security: %s\n", strings.Join(ep.Security, ", "))
	}

	if len(ep.Parameters) > 0 {
		fmt.Fprintln(w, "\nParameters")
		for _, p := range ep.Parameters {
			req := ""
			if p.Required {
				req = "  required"
			}
			desc := ""
			if d := PlainText(p.Description); d != "" {
				desc = "  - " + d
			}
			fmt.Fprintf(w, "  %s %s  %s%s%s\n",
				PadRight(string(p.In), 7), p.Name, openapi.TypeLabel(doc, p.Schema), req, desc)
		}
	}

	if ep.RequestBody != nil {
		fmt.Fprintln(w, "\nRequest body")
		if d := PlainText(ep.RequestBody.Description); d != "" {
			fmt.Fprintf(w, "  %s\n", d)
		}
		for _, m := range ep.RequestBody.Content {
			fmt.Fprintf(w, "  %s\n", m.Name)
			Indent(w, SchemaTree(doc, m.Schema), "    ")
		}
	}

	if len(ep.Responses) > 0 {
		fmt.Fprintln(w, "\nResponses")
		for _, r := range ep.Responses {
			fmt.Fprintf(w, "  %s  %s\n", Status(r.Status, r.Status, color), PlainText(r.Description))
			if schema := r.JSONSchema(); schema != nil {
				Indent(w, SchemaTree(doc, schema), "    ")
			}
		}
	}
}

// Indent writes each line of text to w behind prefix.
func Indent(w io.Writer, text, prefix string) {
	for _, l := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(w, "%s%s\n", prefix, l)
	}
}
