package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erdncyz/swagger-viewer/internal/config"
	"github.com/erdncyz/swagger-viewer/internal/curl"
	"github.com/erdncyz/swagger-viewer/internal/document"
	"github.com/erdncyz/swagger-viewer/internal/httpclient"
	"github.com/erdncyz/swagger-viewer/internal/model"
	"github.com/erdncyz/swagger-viewer/internal/render"
)

// errNoResponse marks a request that never got an HTTP response.
var errNoResponse = errors.New("no response")

func SendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <endpoint>",
		Short: "Send a test request for one operation",
		Long: `Send a test request for one operation. Parameters start from their
documented default or example; flags override them. The body defaults to a
generated example for operations that take one.`,
		Args: cobra.ExactArgs(1),
		RunE: withRuntime(runSend),
	}
	flags := cmd.Flags()
	flags.StringArrayP("path", "p", nil, "Path parameter as name=value (repeatable)")
	flags.StringArrayP("query", "q", nil, "Query parameter as name=value (repeatable)")
	flags.StringArrayP("header", "H", nil, "Header parameter as name=value or 'Name: value' (repeatable)")
	flags.StringArray("cookie", nil, "Cookie parameter as name=value (repeatable)")
	flags.StringP("data", "d", "", "JSON request body, or @file to read it from a file")
	flags.Bool("no-defaults", false, "Do not pre-fill parameters and body from the document")
	flags.Bool("dry-run", false, "Print the equivalent curl command instead of sending")
	flags.BoolP("include", "i", false, "Print response headers")
	config.BindAuthFlags(cmd)
	return cmd
}

func runSend(cmd *cobra.Command, args []string, rt *runtime) error {
	ctx := cmd.Context()
	sess, err := rt.session(ctx)
	if err != nil {
		return err
	}
	ep, err := sess.Lookup(args[0])
	if err != nil {
		return err
	}

	in, err := sendInputs(cmd, sess.Document, ep)
	if err != nil {
		return err
	}
	base := rt.baseURL(sess)
	auth, err := rt.credentials(ctx, base)
	if err != nil {
		return err
	}
	spec, err := httpclient.BuildRequest(base, ep, in, auth)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
		fmt.Fprintln(out, httpclient.CurlCommand(spec))
		return nil
	}
	include, _ := cmd.Flags().GetBool("include")
	res := rt.client().Do(ctx, spec)
	writeResult(out, res, include, rt.color(out))
	if res.StatusCode == 0 {
		return fmt.Errorf("%s %s: %w", spec.Method, spec.URL, errNoResponse)
	}
	return nil
}

func sendInputs(cmd *cobra.Command, doc *document.Document, ep *model.Endpoint) (httpclient.Inputs, error) {
	var in httpclient.Inputs
	if noDefaults, _ := cmd.Flags().GetBool("no-defaults"); noDefaults {
		in = httpclient.Inputs{
			Path:   map[string]string{},
			Query:  map[string]string{},
			Header: map[string]string{},
			Cookie: map[string]string{},
		}
	} else {
		in = httpclient.DefaultInputs(doc, ep)
	}

	for _, f := range []struct {
		flag string
		dst  map[string]string
	}{
		{"path", in.Path},
		{"query", in.Query},
		{"header", in.Header},
		{"cookie", in.Cookie},
	} {
		vals, _ := cmd.Flags().GetStringArray(f.flag)
		for _, kv := range vals {
			k, v, err := splitPair(kv)
			if err != nil {
				return in, fmt.Errorf("--%s: %w", f.flag, err)
			}
			f.dst[k] = v
		}
	}

	if data, _ := cmd.Flags().GetString("data"); data != "" {
		body, err := readData(data)
		if err != nil {
			return in, err
		}
		in.Body = body
	}
	return in, nil
}

func splitPair(kv string) (string, string, error) {
	if k, v, ok := strings.Cut(kv, "="); ok && strings.TrimSpace(k) != "" {
		return strings.TrimSpace(k), v, nil
	}
	if k, v, ok := strings.Cut(kv, ":"); ok && strings.TrimSpace(k) != "" {
		return strings.TrimSpace(k), strings.TrimSpace(v), nil
	}
	return "", "", fmt.Errorf("expected name=value, got %q", kv)
}

func readData(data string) (string, error) {
	name, ok := strings.CutPrefix(data, "@")
	if !ok {
		return data, nil
	}
	var (
		b   []byte
		err error
	)
	if name == "-" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	return string(b), nil
}

func writeResult(w io.Writer, res httpclient.Result, headers, color bool) {
	code := fmt.Sprint(res.StatusCode)
	status := res.Status
	if res.StatusCode == 0 {
		status = httpclient.NetworkErrorStatus
	}
	fmt.Fprintf(w, "%s  %dms\n", render.Status(code, status, color), res.Elapsed.Milliseconds())
	if headers {
		for _, k := range sortedKeys(res.Headers) {
			fmt.Fprintf(w, "%s: %s\n", k, res.Headers[k])
		}
	}
	fmt.Fprintln(w)
	if res.Data != nil {
		fmt.Fprintln(w, render.JSON(res.Data, color))
		return
	}
	fmt.Fprintln(w, render.Body(res.Headers["content-type"], res.Body, color))
	if res.Truncated {
		fmt.Fprintf(w, "(body truncated after %d bytes)\n", len(res.Body))
	}
}

func CurlCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curl <command>",
		Short: "Run a pasted curl command",
		Long: `Run a pasted curl command. Give the command as one quoted argument, or as
separate arguments after "--"; the leading "curl" is optional. Targets that
are not local go through --via when it is set.`,
		Example: `  swagger-viewer curl "curl -X POST https://api.example.com/pets -d '{\"name\":\"rex\"}'"
  swagger-viewer curl --via http://127.0.0.1:8080/api/proxy?url= -- -H 'Accept: text/plain' https://example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: withRuntime(runCurl),
	}
	cmd.Flags().String("via", "", "Relay prefix for non-local targets, e.g. http://127.0.0.1:8080/api/proxy?url=")
	cmd.Flags().Bool("parse-only", false, "Print the parsed request instead of sending it")
	cmd.Flags().BoolP("include", "i", false, "Print response headers")
	return cmd
}

func runCurl(cmd *cobra.Command, args []string, rt *runtime) error {
	command := args[0]
	if len(args) > 1 {
		command = joinQuoted(args)
	}
	spec, err := curl.Parse(command)
	if err != nil {
		return err
	}
	if via, _ := cmd.Flags().GetString("via"); via != "" && !curl.IsLocal(spec.URL) {
		spec = curl.ViaRelay(spec, via)
	}

	out := cmd.OutOrStdout()
	if parseOnly, _ := cmd.Flags().GetBool("parse-only"); parseOnly {
		fmt.Fprintln(out, httpclient.CurlCommand(spec))
		return nil
	}
	include, _ := cmd.Flags().GetBool("include")
	res := rt.client().Do(cmd.Context(), spec)
	writeResult(out, res, include, rt.color(out))
	if res.StatusCode == 0 {
		return fmt.Errorf("%s %s: %w", spec.Method, spec.URL, errNoResponse)
	}
	return nil
}

// joinQuoted re-quotes separately passed arguments so the shell-style
// tokenizer sees the same words again.
func joinQuoted(args []string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}
	return strings.Join(parts, " ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
