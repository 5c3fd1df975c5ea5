// Package relay serves the CORS pass-through proxy and a small read-only
// JSON API over loaded documents.
package relay

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/erdncyz/swagger-viewer/internal/log"
	"github.com/erdncyz/swagger-viewer/internal/openapi"
)

const (
	DefaultTimeout = 20 * time.Second

	shutdownTimeout = 5 * time.Second

	allowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS, HEAD"
	allowHeaders = "Content-Type, Authorization, x-lang, x-application, x-client-name, x-device-id, x-device-type, " +
		"x-client-version, x-device-model, x-os-version, x-build-version, x-build-no, x-is-mock"
)

// proxyMethods are the methods /api/proxy forwards. Anything else is 405.
var proxyMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
	http.MethodDelete, http.MethodOptions, http.MethodHead,
}

// Options configures a Server.
type Options struct {
	// Timeout bounds each upstream request. Zero means DefaultTimeout.
	Timeout time.Duration
	// InsecureTLS skips upstream certificate verification, for staging
	// services with self-signed chains.
	InsecureTLS bool
	// Loader backs /api/spec and /api/example. Those routes answer 503
	// when it is nil.
	Loader *openapi.Loader
	Logger *slog.Logger
}

type Server struct {
	router  *chi.Mux
	client  *http.Client
	timeout time.Duration
	loader  *openapi.Loader
	logger  *slog.Logger
}

func New(opts Options) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		timeout: opts.Timeout,
		loader:  opts.Loader,
		logger:  opts.Logger,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	s.client = &http.Client{
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:     []string{"*"},
		AllowedMethods:     proxyMethods,
		AllowedHeaders:     []string{"*"},
		AllowCredentials:   false,
		MaxAge:             300,
		OptionsPassthrough: true,
	}))
	s.router.Use(log.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		for _, m := range proxyMethods {
			r.Method(m, "/proxy", http.HandlerFunc(s.handleProxy))
		}
		r.Get("/spec", s.handleSpec)
		r.Options("/spec", noContent)
		r.Get("/example", s.handleExample)
		r.Options("/example", noContent)
	})
}

func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down relay", "addr", addr)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func setCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", allowMethods)
	h.Set("Access-Control-Allow-Headers", allowHeaders)
}

// noContent answers preflight requests once cors has set its headers.
func noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// handleProxy forwards the request to the url query parameter and copies
// the upstream answer back verbatim.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		setCORS(w.Header())
		w.WriteHeader(http.StatusNoContent)
		return
	}

	target := r.URL.Query().Get("url")
	if target == "" {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": `Missing "url" query parameter`})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		body = r.Body
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		s.proxyError(w, target, err)
		return
	}
	for k, vs := range r.Header {
		if strings.EqualFold(k, "Host") || strings.EqualFold(k, "Content-Length") {
			continue
		}
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.proxyError(w, target, err)
		return
	}
	defer resp.Body.Close()

	h := w.Header()
	for k, vs := range resp.Header {
		if strings.EqualFold(k, "Content-Length") {
			continue
		}
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	setCORS(h)
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		s.logger.Debug("relay body copy interrupted", "url", target, "error", err)
	}
}

type proxyErrorBody struct {
	Error string  `json:"error"`
	Code  *string `json:"code"`
	Cause *string `json:"cause"`
}

func (s *Server) proxyError(w http.ResponseWriter, target string, err error) {
	s.logger.Warn("relay upstream failed", "url", target, "error", err)
	out := proxyErrorBody{Error: "Proxy error: " + err.Error()}
	if code := errorCode(err); code != "" {
		out.Code = &code
	}
	if cause := errors.Unwrap(err); cause != nil {
		msg := cause.Error()
		out.Cause = &msg
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeJSON(w, http.StatusInternalServerError, out)
}

func errorCode(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "ETIMEDOUT"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "ECONNREFUSED"
	case errors.Is(err, syscall.ECONNRESET):
		return "ECONNRESET"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "ETIMEDOUT"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "ENOTFOUND"
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write json response", "error", err)
	}
}

func errorJSON(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}
