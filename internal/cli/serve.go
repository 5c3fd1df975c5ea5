package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/erdncyz/swagger-viewer/internal/config"
	"github.com/erdncyz/swagger-viewer/internal/relay"
)

func ServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the CORS relay and the JSON document API",
		Long: `Run the CORS relay and the JSON document API.

  /api/proxy?url=<target>      forwards any request to target
  /api/spec?url=<document>     normalized document, endpoints and tags
  /api/example?url=&endpoint=  sample request and responses for one endpoint
  /health`,
		Args: cobra.NoArgs,
		RunE: withRuntime(runServe),
	}
	config.BindServeFlags(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, _ []string, rt *runtime) error {
	srv := relay.New(relay.Options{
		Timeout:     rt.cfg.Relay.Timeout,
		InsecureTLS: rt.cfg.Relay.InsecureTLS,
		Loader:      rt.loader(),
		Logger:      rt.logger,
	})
	if rt.cfg.Relay.InsecureTLS {
		rt.logger.Warn("upstream TLS verification disabled")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := rt.cfg.Relay.Addr
	cmd.Printf("Relay listening on http://%s\n", addr)
	cmd.Printf("  Proxy: http://%s/api/proxy?url=\n", addr)
	if err := srv.Run(ctx, addr); err != nil {
		return fmt.Errorf("relay server: %w", err)
	}
	return nil
}
