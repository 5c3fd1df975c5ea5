package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/erdncyz/swagger-viewer/internal/document"
	"github.com/erdncyz/swagger-viewer/internal/openapi"
)

var errInvalidDocument = errors.New("document is not valid")

func NormalizeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Print the document converted to OpenAPI 3.0",
		Long: `Print the document converted to OpenAPI 3.0. Swagger 2 documents are
converted (definitions move under components, references are rewritten, body
parameters become request bodies); OpenAPI 3 documents pass through unchanged.`,
		Args: cobra.NoArgs,
		RunE: withRuntime(runNormalize),
	}
	cmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")
	cmd.Flags().String("format", "json", "Output format: json or yaml")
	return cmd
}

func runNormalize(cmd *cobra.Command, _ []string, rt *runtime) error {
	sess, err := rt.session(cmd.Context())
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	data, err := encodeDocument(sess.Document, format)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("output"); path != "" {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		cmd.PrintErrf("Written: %s\n", path)
		return nil
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func encodeDocument(doc *document.Document, format string) ([]byte, error) {
	switch format {
	case "", "json":
		var buf bytes.Buffer
		if err := writeIndented(&buf, doc); err != nil {
			return nil, fmt.Errorf("encoding document: %w", err)
		}
		return buf.Bytes(), nil
	case "yaml", "yml":
		b, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encoding document: %w", err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("unknown format %q (valid: json, yaml)", format)
}

func ValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the normalized document against the OpenAPI 3 schema",
		Args:  cobra.NoArgs,
		RunE:  withRuntime(runValidate),
	}
}

func runValidate(cmd *cobra.Command, _ []string, rt *runtime) error {
	rt.cfg.ValidateDocument = false
	sess, err := rt.session(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (OpenAPI %s, %d operations)\n", sess.Title(), sess.Document.Version(), len(sess.Endpoints))
	if err := openapi.Validate(cmd.Context(), sess.Document); err != nil {
		fmt.Fprintf(out, "invalid: %v\n", err)
		return errInvalidDocument
	}
	fmt.Fprintln(out, "valid")
	return nil
}
