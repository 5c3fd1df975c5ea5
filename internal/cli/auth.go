package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/erdncyz/swagger-viewer/internal/auth"
	"github.com/erdncyz/swagger-viewer/internal/config"
	"github.com/erdncyz/swagger-viewer/internal/render"
)

func AuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Inspect and obtain bearer tokens",
	}
	cmd.AddCommand(newAuthInspectCmd(), newAuthTokenCmd())
	return cmd
}

func newAuthInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [token]",
		Short: "Decode a bearer token without verifying it",
		Long: `Decode a bearer token without verifying it. The token defaults to the
configured one (--token or SWV_AUTH_TOKEN). Opaque tokens are reported as such.`,
		Args: cobra.MaximumNArgs(1),
		RunE: withRuntime(runAuthInspect),
	}
}

func runAuthInspect(cmd *cobra.Command, args []string, rt *runtime) error {
	token := rt.cfg.Auth.Token
	if len(args) == 1 {
		token = args[0]
	}
	if strings.TrimSpace(token) == "" {
		return errors.New("no token given")
	}
	out := cmd.OutOrStdout()
	writeTokenInfo(out, auth.Inspect(token), time.Now(), rt.color(out))
	return nil
}

func writeTokenInfo(w io.Writer, info auth.Info, now time.Time, color bool) {
	fmt.Fprintf(w, "token:    %s\n", auth.Masked(info.Token))
	if !info.JWT {
		fmt.Fprintln(w, "type:     opaque")
		return
	}
	fmt.Fprintln(w, "type:     JWT")
	if info.Subject != "" {
		fmt.Fprintf(w, "subject:  %s\n", info.Subject)
	}
	if info.Issuer != "" {
		fmt.Fprintf(w, "issuer:   %s\n", info.Issuer)
	}
	if !info.Issued.IsZero() {
		fmt.Fprintf(w, "issued:   %s\n", info.Issued.UTC().Format(time.RFC3339))
	}
	if !info.Expires.IsZero() {
		state := "valid"
		if info.Expired(now) {
			state = "expired"
		}
		fmt.Fprintf(w, "expires:  %s (%s)\n", info.Expires.UTC().Format(time.RFC3339), state)
	}
	fmt.Fprintln(w, "\nheader")
	render.Indent(w, render.JSON(info.Header, color), "  ")
	fmt.Fprintln(w, "\nclaims")
	render.Indent(w, render.JSON(map[string]any(info.Claims), color), "  ")
}

func newAuthTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Obtain a token with the OAuth2 password grant",
		Long: `Obtain a token with the OAuth2 password grant and print it. A relative
--token-url is resolved against the document's server (or --base-url). The
password is prompted for when it is not configured and stdin is a terminal.`,
		Args: cobra.NoArgs,
		RunE: withRuntime(runAuthToken),
	}
	config.BindAuthFlags(cmd)
	cmd.Flags().Bool("export", false, "Print as a shell export of "+config.EnvPrefix+"AUTH_TOKEN")
	return cmd
}

func runAuthToken(cmd *cobra.Command, _ []string, rt *runtime) error {
	if !rt.cfg.PasswordGrant() {
		return errors.New("token-url and username are required")
	}
	ctx := cmd.Context()
	base := rt.cfg.BaseURL
	if base == "" && !isAbsolute(rt.cfg.Auth.TokenURL) {
		sess, err := rt.session(ctx)
		if err != nil {
			return err
		}
		base = rt.baseURL(sess)
	}

	tok, err := rt.fetchToken(ctx, base)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if export, _ := cmd.Flags().GetBool("export"); export {
		fmt.Fprintf(out, "export %sAUTH_TOKEN=%s\n", config.EnvPrefix, tok.AccessToken)
		return nil
	}
	fmt.Fprintln(out, tok.AccessToken)
	if tok.ExpiresIn > 0 {
		cmd.PrintErrf("%s token, expires in %s\n", tok.TokenType, time.Duration(tok.ExpiresIn)*time.Second)
	}
	return nil
}

func isAbsolute(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}
