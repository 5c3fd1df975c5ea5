package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erdncyz/swagger-viewer/internal/httpclient"
	"github.com/erdncyz/swagger-viewer/internal/model"
	"github.com/erdncyz/swagger-viewer/internal/relay"
	"github.com/erdncyz/swagger-viewer/internal/render"
)

func EndpointsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "endpoints",
		Aliases: []string{"ls"},
		Short:   "List operations grouped by tag",
		Args:    cobra.NoArgs,
		RunE:    withRuntime(runEndpoints),
	}
	cmd.Flags().StringP("tag", "t", "", "Only list operations with this tag")
	cmd.Flags().Bool("json", false, "Print endpoints and the tag index as JSON")
	return cmd
}

func runEndpoints(cmd *cobra.Command, _ []string, rt *runtime) error {
	sess, err := rt.session(cmd.Context())
	if err != nil {
		return err
	}
	tag, _ := cmd.Flags().GetString("tag")
	asJSON, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	tags := sess.Tags.Tags()
	if tag != "" {
		if len(sess.Tags.Endpoints(tag)) == 0 {
			return fmt.Errorf("no operations tagged %q", tag)
		}
		tags = []string{tag}
	}

	if asJSON {
		groups := make(map[string][]relay.EndpointSummary, len(tags))
		for _, t := range tags {
			groups[t] = relay.Summarize(sess.Tags.Endpoints(t))
		}
		return writeIndented(out, map[string]any{
			"title":    sess.Title(),
			"tagOrder": tags,
			"tags":     groups,
		})
	}

	color := rt.color(out)
	fmt.Fprintf(out, "%s (%d operations)\n", sess.Title(), len(sess.Endpoints))
	for _, t := range tags {
		fmt.Fprintf(out, "\n%s\n", t)
		for _, ep := range sess.Tags.Endpoints(t) {
			fmt.Fprintf(out, "  %s %s%s\n", render.Method(ep.Method, color), render.Path(ep.Path, color), endpointNote(ep))
		}
	}
	return nil
}

func endpointNote(ep *model.Endpoint) string {
	var parts []string
	if ep.Summary != "" {
		parts = append(parts, render.PlainText(ep.Summary))
	}
	if ep.Deprecated {
		parts = append(parts, "(deprecated)")
	}
	if len(parts) == 0 {
		return ""
	}
	return "  " + strings.Join(parts, " ")
}

func ShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <endpoint>",
		Short: "Describe one operation",
		Long: `Describe one operation: parameters, request body and responses with their
schemas. The endpoint is an id such as "GET-/pets/{id}", an operationId, or
"METHOD /path".`,
		Args: cobra.ExactArgs(1),
		RunE: withRuntime(runShow),
	}
}

func runShow(cmd *cobra.Command, args []string, rt *runtime) error {
	sess, err := rt.session(cmd.Context())
	if err != nil {
		return err
	}
	ep, err := sess.Lookup(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	render.Endpoint(out, sess.Document, ep, rt.color(out))
	return nil
}

func ExampleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "example <endpoint>",
		Short: "Print a sample request and sample responses",
		Args:  cobra.ExactArgs(1),
		RunE:  withRuntime(runExample),
	}
	cmd.Flags().Bool("json", false, "Print the example as JSON")
	cmd.Flags().String("status", "", "Only print the sample response for this status")
	return cmd
}

func runExample(cmd *cobra.Command, args []string, rt *runtime) error {
	sess, err := rt.session(cmd.Context())
	if err != nil {
		return err
	}
	ep, err := sess.Lookup(args[0])
	if err != nil {
		return err
	}
	ex := httpclient.BuildExample(sess.Document, ep, rt.baseURL(sess))

	out := cmd.OutOrStdout()
	status, _ := cmd.Flags().GetString("status")
	if status != "" {
		v, ok := ex.Responses[status]
		if !ok {
			return fmt.Errorf("no sample response for status %s", status)
		}
		fmt.Fprintln(out, render.JSON(v, rt.color(out)))
		return nil
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeIndented(out, ex)
	}

	color := rt.color(out)
	fmt.Fprintln(out, "Request")
	if ex.Request.Error != "" {
		fmt.Fprintf(out, "  %s\n", ex.Request.Error)
	} else {
		render.Indent(out, ex.Request.Curl, "  ")
	}
	if ex.Request.Body != nil {
		fmt.Fprintln(out, "\nRequest body")
		render.Indent(out, render.JSON(ex.Request.Body, color), "  ")
	}
	for _, r := range ep.Responses {
		v, ok := ex.Responses[r.Status]
		if !ok {
			continue
		}
		fmt.Fprintf(out, "\nResponse %s\n", render.Status(r.Status, r.Status, color))
		render.Indent(out, render.JSON(v, color), "  ")
	}
	return nil
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
