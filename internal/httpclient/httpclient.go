package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/erdncyz/swagger-viewer/internal/model"
)

// NetworkErrorStatus is the Result.Status reported when no response arrived.
const NetworkErrorStatus = "Network Error"

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 16 << 20
)

var ErrInvalidInput = errors.New("invalid request input")

// Result is the uniform outcome of one request. A transport failure is a
// Result with StatusCode 0, never an error.
type Result struct {
	StatusCode int
	Status     string
	Elapsed    time.Duration
	Headers    map[string]string
	Body       string
	// Truncated is set when Body was cut at the client's MaxBodySize.
	Truncated bool
	// Data holds the decoded body when the response is JSON.
	Data any
}

// OK reports whether the request produced a 2xx response.
func (r Result) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

type RequestSpec struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Inputs are the user-supplied values for one endpoint, keyed by parameter
// name. Body is raw JSON text.
type Inputs struct {
	Path   map[string]string `json:"path,omitempty"`
	Query  map[string]string `json:"query,omitempty"`
	Header map[string]string `json:"header,omitempty"`
	Cookie map[string]string `json:"cookie,omitempty"`
	Body   string            `json:"body,omitempty"`
}

// Auth carries explicit credentials for request building.
type Auth struct {
	Token     string
	TokenType string
}

func (a Auth) header() string {
	tok := strings.TrimSpace(a.Token)
	if tok == "" {
		return ""
	}
	tt := strings.TrimSpace(a.TokenType)
	if tt == "" {
		tt = "Bearer"
	}
	return tt + " " + tok
}

// BuildRequest assembles the try-it request for ep against baseURL.
func BuildRequest(baseURL string, ep *model.Endpoint, in Inputs, auth Auth) (RequestSpec, error) {
	path, err := substitutePath(ep.Path, ep.ParamsIn(model.ParamInPath), in.Path)
	if err != nil {
		return RequestSpec{}, err
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/") + path)
	if err != nil {
		return RequestSpec{}, fmt.Errorf("%w: request url: %w", ErrInvalidInput, err)
	}

	q := u.Query()
	for _, p := range ep.ParamsIn(model.ParamInQuery) {
		v := strings.TrimSpace(in.Query[p.Name])
		if v == "" {
			if p.Required {
				return RequestSpec{}, fmt.Errorf("%w: missing required query param: %s", ErrInvalidInput, p.Name)
			}
			continue
		}
		if err := checkType(p, v); err != nil {
			return RequestSpec{}, err
		}
		q.Set(p.Name, v)
	}
	u.RawQuery = q.Encode()

	headers := map[string]string{"Content-Type": "application/json"}
	if h := auth.header(); h != "" {
		headers["Authorization"] = h
	}
	for _, p := range ep.ParamsIn(model.ParamInHeader) {
		if v := strings.TrimSpace(in.Header[p.Name]); v != "" {
			headers[p.Name] = v
		} else if p.Required {
			return RequestSpec{}, fmt.Errorf("%w: missing required header: %s", ErrInvalidInput, p.Name)
		}
	}
	var cookies []string
	for _, p := range ep.ParamsIn(model.ParamInCookie) {
		if v := strings.TrimSpace(in.Cookie[p.Name]); v != "" {
			cookies = append(cookies, (&http.Cookie{Name: p.Name, Value: v}).String())
		}
	}
	if len(cookies) > 0 {
		headers["Cookie"] = strings.Join(cookies, "; ")
	}

	var body []byte
	if ep.HasBody() {
		if raw := strings.TrimSpace(in.Body); raw != "" {
			if !json.Valid([]byte(raw)) {
				return RequestSpec{}, fmt.Errorf("%w: body is not valid JSON", ErrInvalidInput)
			}
			body = []byte(raw)
		} else if ep.RequestBody.Required {
			return RequestSpec{}, fmt.Errorf("%w: request body is required", ErrInvalidInput)
		}
	}

	return RequestSpec{Method: ep.Method, URL: u.String(), Headers: headers, Body: body}, nil
}

// WithAPIKey returns a copy of spec carrying an API key in the header,
// query parameter or cookie called name. in is the scheme's location.
func WithAPIKey(spec RequestSpec, in, name, value string) (RequestSpec, error) {
	headers := make(map[string]string, len(spec.Headers)+1)
	for k, v := range spec.Headers {
		headers[k] = v
	}
	spec.Headers = headers

	switch in {
	case "header":
		headers[name] = value
	case "query":
		u, err := url.Parse(spec.URL)
		if err != nil {
			return spec, fmt.Errorf("%w: request url: %w", ErrInvalidInput, err)
		}
		q := u.Query()
		q.Set(name, value)
		u.RawQuery = q.Encode()
		spec.URL = u.String()
	case "cookie":
		c := (&http.Cookie{Name: name, Value: value}).String()
		if prev := headers["Cookie"]; prev != "" {
			c = prev + "; " + c
		}
		headers["Cookie"] = c
	default:
		return spec, fmt.Errorf("%w: api key location %q", ErrInvalidInput, in)
	}
	return spec, nil
}

func substitutePath(pathTpl string, params []model.Param, vals map[string]string) (string, error) {
	out := pathTpl
	for _, p := range params {
		v := strings.TrimSpace(vals[p.Name])
		if v == "" {
			return "", fmt.Errorf("%w: missing required path param: %s", ErrInvalidInput, p.Name)
		}
		if err := checkType(p, v); err != nil {
			return "", err
		}
		out = strings.ReplaceAll(out, "{"+p.Name+"}", url.PathEscape(v))
	}
	return out, nil
}

func checkType(p model.Param, v string) error {
	var err error
	switch p.Type {
	case model.TypeInteger:
		_, err = strconv.ParseInt(v, 10, 64)
	case model.TypeNumber:
		_, err = strconv.ParseFloat(v, 64)
	case model.TypeBoolean:
		_, err = strconv.ParseBool(v)
	}
	if err != nil {
		return fmt.Errorf("%w: invalid %s for %s", ErrInvalidInput, p.Type, p.Name)
	}
	return nil
}

// Client sends try-it requests.
type Client struct {
	HTTP   *http.Client
	Logger *slog.Logger
	// MaxBodySize caps the response body kept in a Result. Zero means 16 MiB.
	MaxBodySize int64
}

func (c *Client) maxBodySize() int64 {
	if c != nil && c.MaxBodySize > 0 {
		return c.MaxBodySize
	}
	return maxResponseSize
}

func (c *Client) httpClient() *http.Client {
	if c != nil && c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: defaultTimeout}
}

func (c *Client) logger() *slog.Logger {
	if c != nil && c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Do sends spec and reports the outcome. It does not return an error: a
// request that never got a response yields a zero-status Result whose body
// is {"error": "<message>"}.
func (c *Client) Do(ctx context.Context, spec RequestSpec) Result {
	var body io.Reader
	if len(spec.Body) > 0 {
		body = bytes.NewReader(spec.Body)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, spec.Method, spec.URL, body)
	if err != nil {
		return networkError(err, time.Since(start))
	}
	for k, v := range spec.Headers {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if strings.EqualFold(k, "host") {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		c.logger().Debug("request failed", "method", spec.Method, "url", spec.URL, "error", err)
		return networkError(err, time.Since(start))
	}
	defer resp.Body.Close()

	limit := c.maxBodySize()
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	elapsed := time.Since(start)
	if err != nil {
		return networkError(err, elapsed)
	}
	truncated := int64(len(b)) > limit
	if truncated {
		b = b[:limit]
	}

	res := Result{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Elapsed:    elapsed,
		Headers:    flattenHeaders(resp.Header),
		Body:       string(b),
		Truncated:  truncated,
	}
	if truncated {
		c.logger().Warn("response body truncated", "url", spec.URL, "limit", limit)
	} else if isJSON(resp.Header.Get("Content-Type")) {
		var v any
		if err := json.Unmarshal(b, &v); err == nil {
			res.Data = v
		}
	}
	c.logger().Debug("request done", "method", spec.Method, "url", spec.URL, "status", resp.StatusCode, "elapsed", elapsed)
	return res
}

func networkError(err error, elapsed time.Duration) Result {
	msg := err.Error()
	data := map[string]any{"error": msg}
	b, _ := json.Marshal(data)
	return Result{
		Status:  NetworkErrorStatus,
		Elapsed: elapsed,
		Headers: map[string]string{},
		Body:    string(b),
		Data:    data,
	}
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		out[strings.ToLower(k)] = strings.Join(vs, ", ")
	}
	return out
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "json")
}

// CurlCommand renders spec as a shell command. Headers are sorted by name.
func CurlCommand(spec RequestSpec) string {
	var sb strings.Builder
	sb.WriteString("curl -X " + spec.Method + " " + shellQuote(spec.URL))

	keys := make([]string, 0, len(spec.Headers))
	for k := range spec.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(" \\\n  -H " + shellQuote(k+": "+spec.Headers[k]))
	}
	if len(spec.Body) > 0 {
		sb.WriteString(" \\\n  -d " + shellQuote(string(spec.Body)))
	}
	return sb.String()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// PasswordGrant holds OAuth2 resource-owner credentials.
type PasswordGrant struct {
	TokenURL string
	Username string
	Password string
	Scope    string
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
}

// Auth converts the token into request credentials.
func (t Token) Auth() Auth { return Auth{Token: t.AccessToken, TokenType: t.TokenType} }

// FetchOAuthPasswordToken obtains a token with the password grant. A
// relative TokenURL (FastAPI commonly declares "/token") is resolved
// against baseURL.
func (c *Client) FetchOAuthPasswordToken(ctx context.Context, baseURL string, g PasswordGrant) (Token, error) {
	full := g.TokenURL
	if u, err := url.Parse(g.TokenURL); err == nil && !u.IsAbs() {
		if base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/"); err == nil {
			full = base.ResolveReference(u).String()
		}
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", g.Username)
	form.Set("password", g.Password)
	if s := strings.TrimSpace(g.Scope); s != "" {
		form.Set("scope", s)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, full, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Token{}, err
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Token{}, fmt.Errorf("token request failed: %s", resp.Status)
	}

	var tok Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return Token{}, fmt.Errorf("token response not json: %w", err)
	}
	if strings.TrimSpace(tok.AccessToken) == "" {
		return Token{}, errors.New("token response missing access_token")
	}
	switch tt := strings.TrimSpace(tok.TokenType); {
	case tt == "", strings.EqualFold(tt, "bearer"):
		tok.TokenType = "Bearer"
	}
	return tok, nil
}
