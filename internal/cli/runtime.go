package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/erdncyz/swagger-viewer/internal/config"
	"github.com/erdncyz/swagger-viewer/internal/httpclient"
	"github.com/erdncyz/swagger-viewer/internal/log"
	"github.com/erdncyz/swagger-viewer/internal/openapi"
)

// runtime is the per-invocation state shared by commands.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
}

// setup loads configuration and installs the logger. Logs go to stderr
// unless a log file is configured; logTo overrides stderr.
func setup(cmd *cobra.Command, logTo io.Writer) (*runtime, error) {
	cfg, err := config.Load(cmd)
	if err != nil {
		return nil, err
	}
	if logTo == nil {
		logTo = cmd.ErrOrStderr()
	}
	closer, err := log.Init(cfg.Log, logTo)
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, logger: slog.Default(), closer: closer}, nil
}

func (rt *runtime) Close() error {
	if rt.closer == nil {
		return nil
	}
	return rt.closer.Close()
}

func (rt *runtime) loader() *openapi.Loader {
	return &openapi.Loader{
		Client:     &http.Client{},
		Candidates: openapi.Candidates(rt.cfg.ActiveRelays()...),
		Timeout:    rt.cfg.Timeout,
		Validate:   rt.cfg.ValidateDocument,
		Logger:     rt.logger,
	}
}

func (rt *runtime) client() *httpclient.Client {
	return &httpclient.Client{
		HTTP:   &http.Client{Timeout: rt.cfg.Timeout},
		Logger: rt.logger,
	}
}

// session loads the configured document, asking for its location first
// when none is configured and stdin is a terminal.
func (rt *runtime) session(ctx context.Context) (*openapi.Session, error) {
	if strings.TrimSpace(rt.cfg.Spec) == "" && stdinIsTerminal() {
		spec, err := askSpec()
		if err != nil {
			return nil, err
		}
		rt.cfg.Spec = spec
	}
	if err := rt.cfg.RequireSpec(); err != nil {
		return nil, err
	}
	sess, err := rt.loader().Load(ctx, rt.cfg.Spec)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", rt.cfg.Spec, err)
	}
	return sess, nil
}

// baseURL is the configured override or the document's first server.
func (rt *runtime) baseURL(sess *openapi.Session) string {
	if u := strings.TrimRight(strings.TrimSpace(rt.cfg.BaseURL), "/"); u != "" {
		return u
	}
	return sess.BaseURL()
}

// credentials returns the configured token, or runs the password grant when
// one is configured.
func (rt *runtime) credentials(ctx context.Context, baseURL string) (httpclient.Auth, error) {
	if tok := strings.TrimSpace(rt.cfg.Auth.Token); tok != "" {
		return httpclient.Auth{Token: tok}, nil
	}
	if !rt.cfg.PasswordGrant() {
		return httpclient.Auth{}, nil
	}
	tok, err := rt.fetchToken(ctx, baseURL)
	if err != nil {
		return httpclient.Auth{}, err
	}
	return tok.Auth(), nil
}

func (rt *runtime) fetchToken(ctx context.Context, baseURL string) (httpclient.Token, error) {
	a := rt.cfg.Auth
	if a.Password == "" && stdinIsTerminal() {
		pw, err := askPassword(a.Username)
		if err != nil {
			return httpclient.Token{}, err
		}
		a.Password = pw
	}
	tok, err := rt.client().FetchOAuthPasswordToken(ctx, baseURL, httpclient.PasswordGrant{
		TokenURL: a.TokenURL,
		Username: a.Username,
		Password: a.Password,
		Scope:    a.Scope,
	})
	if err != nil {
		return httpclient.Token{}, fmt.Errorf("fetching token: %w", err)
	}
	rt.logger.Debug("token acquired", "token_url", a.TokenURL, "user", a.Username)
	return tok, nil
}

// color reports whether output to w should carry ANSI colour.
func (rt *runtime) color(w io.Writer) bool {
	switch rt.cfg.Color {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// withRuntime adapts a command body that needs configuration and logging.
func withRuntime(run func(cmd *cobra.Command, args []string, rt *runtime) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()
		return run(cmd, args, rt)
	}
}
