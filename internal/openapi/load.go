package openapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/erdncyz/swagger-viewer/internal/document"
	"github.com/erdncyz/swagger-viewer/internal/model"
)

const (
	defaultTimeout  = 10 * time.Second
	maxDocumentSize = 64 << 20
)

// ErrUnavailable is returned when no candidate location yields a document.
var ErrUnavailable = errors.New("could not load API document")

// ErrNotFound is returned by Session.Lookup for an unknown endpoint.
var ErrNotFound = errors.New("endpoint not found")

// ErrTooLarge is returned when a retrieved document exceeds Loader.MaxSize.
var ErrTooLarge = errors.New("document too large")

var errNotSpec = errors.New("body is not an OpenAPI or Swagger document")

// DefaultRelays are public CORS relays tried after the direct URL. The
// target URL is query-escaped and appended to each prefix.
var DefaultRelays = []string{
	"https://api.allorigins.win/raw?url=",
	"https://corsproxy.io/?",
}

// Candidate maps the requested document URL to one location to try.
type Candidate func(target string) string

// Direct fetches the document URL itself.
func Direct(target string) string { return target }

// Relay fetches the document through a relay that takes the escaped target
// appended to prefix, e.g. "http://localhost:8080/api/proxy?url=".
func Relay(prefix string) Candidate {
	return func(target string) string {
		return prefix + url.QueryEscape(target)
	}
}

// Candidates builds the default fallback order: direct, then each relay.
func Candidates(relays ...string) []Candidate {
	out := []Candidate{Direct}
	for _, r := range relays {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, Relay(r))
		}
	}
	return out
}

// Session is the state derived from one successful load.
type Session struct {
	Source        string
	RetrievedFrom string
	Document      *document.Document
	Endpoints     []*model.Endpoint
	Tags          *model.TagIndex
	Security      []model.SecurityScheme
	Warnings      []string
}

// NewSession normalizes doc and derives endpoints from it. sourceURL is the
// address the document was requested from; it supplies the base URL when
// the document declares no servers.
func NewSession(doc *document.Document, sourceURL string) *Session {
	doc = Normalize(doc, sourceURL)
	if len(Servers(doc)) == 0 {
		if origin := originOf(sourceURL); origin != "" {
			root := doc.Root().Clone()
			root.Set("servers", []any{document.ObjectOf("url", origin)})
			doc = document.New(root)
		}
	}
	endpoints, tags := ExtractEndpoints(doc)
	return &Session{
		Source:    sourceURL,
		Document:  doc,
		Endpoints: endpoints,
		Tags:      tags,
		Security:  ExtractSecuritySchemes(doc),
	}
}

// Info returns the document's info object.
func (s *Session) Info() *document.Object {
	return s.Document.Root().Object("info")
}

// Title returns info.title, or the source when the document has none.
func (s *Session) Title() string {
	if t := strings.TrimSpace(s.Info().String("title")); t != "" {
		return t
	}
	return s.Source
}

// BaseURL is the first declared server URL without a trailing slash.
func (s *Session) BaseURL() string {
	servers := Servers(s.Document)
	if len(servers) == 0 {
		return ""
	}
	return strings.TrimRight(servers[0], "/")
}

func (s *Session) Endpoint(id string) (*model.Endpoint, bool) {
	for _, ep := range s.Endpoints {
		if ep.ID == id {
			return ep, true
		}
	}
	return nil, false
}

// Find looks an endpoint up by id, operationId or "METHOD /path".
func (s *Session) Find(ref string) (*model.Endpoint, bool) {
	ref = strings.TrimSpace(ref)
	if ep, ok := s.Endpoint(ref); ok {
		return ep, true
	}
	if method, path, ok := strings.Cut(ref, " "); ok {
		return s.Endpoint(model.EndpointID(method, strings.TrimSpace(path)))
	}
	for _, ep := range s.Endpoints {
		if ep.OperationID != "" && ep.OperationID == ref {
			return ep, true
		}
	}
	return nil, false
}

// Lookup is Find with an error naming the reference.
func (s *Session) Lookup(ref string) (*model.Endpoint, error) {
	if ep, ok := s.Find(ref); ok {
		return ep, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
}

// Loader retrieves documents over HTTP or from disk.
type Loader struct {
	Client     *http.Client
	Candidates []Candidate
	Timeout    time.Duration
	Validate   bool
	Logger     *slog.Logger
	// MaxSize caps a retrieved document in bytes. Zero means 64 MiB.
	MaxSize int64
}

// Load retrieves source, trying each candidate location in order and
// keeping the first that returns a document. Individual failures are only
// logged; if every candidate fails the result is ErrUnavailable.
func (l *Loader) Load(ctx context.Context, source string) (*Session, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("%w: no source given", ErrUnavailable)
	}

	if !isRemote(source) {
		data, err := os.ReadFile(strings.TrimPrefix(source, "@"))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		doc, err := parseSpec(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		sess := NewSession(doc, "")
		sess.Source = source
		sess.RetrievedFrom = source
		l.validate(ctx, sess)
		return sess, nil
	}

	candidates := l.Candidates
	if len(candidates) == 0 {
		candidates = []Candidate{Direct}
	}
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		try := c(source)
		doc, err := l.fetch(ctx, try)
		if errors.Is(err, ErrTooLarge) {
			l.logger().Warn("document too large", "url", try, "limit", l.maxSize())
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		if err != nil {
			l.logger().Debug("document candidate failed", "url", try, "error", err)
			continue
		}
		sess := NewSession(doc, source)
		sess.RetrievedFrom = try
		l.logger().Info("document loaded",
			"source", source,
			"retrieved_from", try,
			"version", doc.Version(),
			"endpoints", len(sess.Endpoints),
		)
		l.validate(ctx, sess)
		return sess, nil
	}

	l.logger().Warn("all document candidates failed", "source", source, "candidates", len(candidates))
	return nil, ErrUnavailable
}

func (l *Loader) fetch(ctx context.Context, target string) (*document.Document, error) {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.5")

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GET %s: %s", target, resp.Status)
	}
	limit := l.maxSize()
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, target, limit)
	}
	return parseSpec(data)
}

func (l *Loader) maxSize() int64 {
	if l.MaxSize > 0 {
		return l.MaxSize
	}
	return maxDocumentSize
}

func (l *Loader) validate(ctx context.Context, sess *Session) {
	if !l.Validate {
		return
	}
	if err := Validate(ctx, sess.Document); err != nil {
		sess.Warnings = append(sess.Warnings, err.Error())
		l.logger().Warn("document failed validation", "source", sess.Source, "error", err)
	}
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func parseSpec(data []byte) (*document.Document, error) {
	doc, err := document.Parse(data)
	if err != nil {
		return nil, err
	}
	if !doc.HasMarker() {
		return nil, errNotSpec
	}
	return doc, nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func originOf(raw string) string {
	if !isRemote(raw) {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
