// Package cli holds the swagger-viewer command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/erdncyz/swagger-viewer/internal/config"
)

// Version is set via ldflags at build time.
var Version = "dev"

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "swagger-viewer",
		Short: "Browse and exercise OpenAPI 3 and Swagger 2 documents",
		Long: `swagger-viewer loads an OpenAPI 3 or Swagger 2 document from a URL or a file,
lists its operations by tag, renders schemas and examples, and sends test
requests against the documented server.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,

		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetVersionTemplate("swagger-viewer version {{.Version}}\n")

	config.BindFlags(root)
	root.AddCommand(
		EndpointsCommand(),
		ShowCommand(),
		ExampleCommand(),
		SendCommand(),
		CurlCommand(),
		NormalizeCommand(),
		ValidateCommand(),
		ServeCommand(),
		BrowseCommand(),
		AuthCommand(),
	)

	return root
}
