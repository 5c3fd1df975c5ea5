package cli

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/erdncyz/swagger-viewer/internal/config"
	"github.com/erdncyz/swagger-viewer/internal/ui"
)

var errNotTerminal = errors.New("browse needs an interactive terminal")

func BrowseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse [document]",
		Short: "Explore the document in a terminal UI",
		Long: `Explore the document in a terminal UI: filter operations, read their
schemas and examples, edit parameters and send requests. The document may be
given as an argument instead of --spec. Logs are discarded unless --log-file
is set, since the UI owns the screen.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runBrowse,
	}
	config.BindAuthFlags(cmd)
	return cmd
}

func runBrowse(cmd *cobra.Command, args []string) error {
	if !stdinIsTerminal() {
		return errNotTerminal
	}
	rt, err := setup(cmd, io.Discard)
	if err != nil {
		return err
	}
	defer rt.Close()
	if len(args) == 1 {
		rt.cfg.Spec = args[0]
	}

	ctx := cmd.Context()
	sess, err := rt.session(ctx)
	if err != nil {
		return err
	}
	for _, w := range sess.Warnings {
		rt.logger.Warn("document warning", "warning", w)
	}
	base := rt.baseURL(sess)
	creds, err := rt.credentials(ctx, base)
	if err != nil {
		return err
	}

	rt.logger.Info("browsing", "source", sess.Source, "retrieved_from", sess.RetrievedFrom, "endpoints", len(sess.Endpoints))
	return ui.NewApp(sess, ui.Options{
		BaseURL: base,
		Auth:    creds,
		Client:  rt.client(),
		Logger:  rt.logger,
	}).Run()
}
