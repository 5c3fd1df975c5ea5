package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/erdncyz/swagger-viewer/internal/log"
	"github.com/erdncyz/swagger-viewer/internal/openapi"
)

// DefaultFile is read from the working directory when no --config is given.
const DefaultFile = "swagger-viewer.yaml"

// EnvPrefix namespaces environment overrides, e.g. SWV_AUTH_TOKEN.
const EnvPrefix = "SWV_"

type Config struct {
	Spec             string        `koanf:"spec"`
	BaseURL          string        `koanf:"base-url"`
	Timeout          time.Duration `koanf:"timeout"`
	Relays           []string      `koanf:"relays"`
	NoRelay          bool          `koanf:"no-relay"`
	ValidateDocument bool          `koanf:"validate"`
	Color            string        `koanf:"color"`
	Auth             AuthConfig    `koanf:"auth"`
	Log              log.Config    `koanf:"log"`
	Relay            RelayConfig   `koanf:"relay"`
}

type AuthConfig struct {
	Token    string `koanf:"token"`
	TokenURL string `koanf:"token-url"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Scope    string `koanf:"scope"`
}

// RelayConfig configures the serve command.
type RelayConfig struct {
	Addr        string        `koanf:"addr"`
	Timeout     time.Duration `koanf:"timeout"`
	InsecureTLS bool          `koanf:"insecure-tls"`
}

func defaults() map[string]any {
	return map[string]any{
		"timeout":       "10s",
		"relays":        slices.Clone(openapi.DefaultRelays),
		"color":         "auto",
		"log.level":     "info",
		"log.format":    "text",
		"relay.addr":    "127.0.0.1:8080",
		"relay.timeout": "20s",
	}
}

// flagKeys maps flag names to config keys. Flags are only applied when set
// on the command line.
var flagKeys = map[string]string{
	"spec":          "spec",
	"base-url":      "base-url",
	"timeout":       "timeout",
	"relay":         "relays",
	"no-relay":      "no-relay",
	"validate":      "validate",
	"color":         "color",
	"token":         "auth.token",
	"token-url":     "auth.token-url",
	"username":      "auth.username",
	"password":      "auth.password",
	"scope":         "auth.scope",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"log-file":      "log.file",
	"addr":          "relay.addr",
	"relay-timeout": "relay.timeout",
	"insecure-tls":  "relay.insecure-tls",
}

// envKeys maps SWV_-prefixed variable suffixes to config keys.
var envKeys = map[string]string{
	"SPEC":               "spec",
	"BASE_URL":           "base-url",
	"TIMEOUT":            "timeout",
	"RELAYS":             "relays",
	"NO_RELAY":           "no-relay",
	"VALIDATE":           "validate",
	"COLOR":              "color",
	"AUTH_TOKEN":         "auth.token",
	"AUTH_TOKEN_URL":     "auth.token-url",
	"AUTH_USERNAME":      "auth.username",
	"AUTH_PASSWORD":      "auth.password",
	"AUTH_SCOPE":         "auth.scope",
	"LOG_LEVEL":          "log.level",
	"LOG_FORMAT":         "log.format",
	"LOG_FILE":           "log.file",
	"RELAY_ADDR":         "relay.addr",
	"RELAY_TIMEOUT":      "relay.timeout",
	"RELAY_INSECURE_TLS": "relay.insecure-tls",
}

// BindFlags registers the flags shared by every command.
func BindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringP("config", "c", "", "Config file path (default: "+DefaultFile+")")
	flags.StringP("spec", "s", "", "OpenAPI/Swagger document URL or file")
	flags.String("base-url", "", "Override the server URL requests are sent to")
	flags.Duration("timeout", 0, "Per-request timeout (default 10s)")
	flags.StringSlice("relay", nil, "CORS relay prefixes tried after the direct URL")
	flags.Bool("no-relay", false, "Only fetch documents directly")
	flags.Bool("validate", false, "Validate the loaded document and report warnings")
	flags.String("color", "", "Colour output: auto, always or never")
	flags.String("token", "", "Bearer token sent with requests")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: text or json")
	flags.String("log-file", "", "Write logs to this file")
}

// BindAuthFlags registers the OAuth2 password grant flags.
func BindAuthFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("token-url", "", "OAuth2 token endpoint, absolute or relative to the base URL")
	flags.String("username", "", "OAuth2 username")
	flags.String("password", "", "OAuth2 password (prompted when omitted)")
	flags.String("scope", "", "OAuth2 scope")
}

// BindServeFlags registers the relay server flags.
func BindServeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("addr", "", "Listen address (default 127.0.0.1:8080)")
	flags.Duration("relay-timeout", 0, "Upstream timeout for relayed requests (default 20s)")
	flags.Bool("insecure-tls", false, "Skip upstream TLS certificate verification")
}

// Load merges defaults, the config file, SWV_* environment variables and
// changed flags, in increasing precedence.
func Load(cmd *cobra.Command) (*Config, error) {
	return load(cmd, os.Environ())
}

func load(cmd *cobra.Command, environ []string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	configFile := ""
	if cmd != nil {
		configFile, _ = cmd.Flags().GetString("config")
	}
	if configFile == "" {
		configFile = lookupEnv(environ, EnvPrefix+"CONFIG")
	}
	if configFile == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			configFile = DefaultFile
		}
	}
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	if m := envMap(environ); len(m) > 0 {
		if err := k.Load(confmap.Provider(m, "."), nil); err != nil {
			return nil, fmt.Errorf("loading environment: %w", err)
		}
	}

	if cmd != nil {
		if m := flagsMap(cmd.Flags()); len(m) > 0 {
			if err := k.Load(confmap.Provider(m, "."), nil); err != nil {
				return nil, fmt.Errorf("loading flags: %w", err)
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func lookupEnv(environ []string, name string) string {
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k == name {
			return v
		}
	}
	return ""
}

func envMap(environ []string) map[string]any {
	m := make(map[string]any)
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, EnvPrefix) || v == "" {
			continue
		}
		if key, ok := envKeys[strings.TrimPrefix(k, EnvPrefix)]; ok {
			m[key] = v
		}
	}
	return m
}

func flagsMap(flags *pflag.FlagSet) map[string]any {
	m := make(map[string]any)
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		switch f.Value.Type() {
		case "bool":
			v, _ := flags.GetBool(name)
			m[key] = v
		case "duration":
			v, _ := flags.GetDuration(name)
			m[key] = v.String()
		case "stringSlice":
			v, _ := flags.GetStringSlice(name)
			m[key] = v
		default:
			m[key] = f.Value.String()
		}
	}
	return m
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Relay.Timeout <= 0 {
		return fmt.Errorf("relay timeout must be positive, got %s", c.Relay.Timeout)
	}
	if !log.ValidLevel(c.Log.Level) {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Log.Level)
	}
	validFormats := map[string]bool{"": true, "text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s (valid: text, json)", c.Log.Format)
	}
	validColors := map[string]bool{"": true, "auto": true, "always": true, "never": true}
	if !validColors[c.Color] {
		return fmt.Errorf("invalid color mode: %s (valid: auto, always, never)", c.Color)
	}
	for _, r := range c.Relays {
		if !strings.HasPrefix(r, "http://") && !strings.HasPrefix(r, "https://") {
			return fmt.Errorf("invalid relay prefix: %s (must be an http(s) URL)", r)
		}
	}
	if c.BaseURL != "" && !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("invalid base url: %s", c.BaseURL)
	}
	return nil
}

// RequireSpec reports an error when no document source is configured.
func (c *Config) RequireSpec() error {
	if strings.TrimSpace(c.Spec) == "" {
		return fmt.Errorf("spec is required (--spec, %sSPEC or the config file)", EnvPrefix)
	}
	return nil
}

// ActiveRelays returns the relay prefixes to use, honouring no-relay.
func (c *Config) ActiveRelays() []string {
	if c.NoRelay {
		return nil
	}
	return c.Relays
}

// PasswordGrant reports whether the password grant is configured.
func (c *Config) PasswordGrant() bool {
	return c.Auth.TokenURL != "" && c.Auth.Username != ""
}
