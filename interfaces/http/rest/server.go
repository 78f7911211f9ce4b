// Package rest adapts the execution pipeline to HTTP: it extracts the
// transport-level request envelope, delegates decoding and encoding to
// collaborator interfaces, and owns server lifecycle. Everything between
// route match and response encoding happens inside the pipeline.
package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"relay/pkg/common"
	"relay/pkg/pipeline"
	"relay/pkg/routing"
)

// Options configures the HTTP server.
type Options struct {
	Addr string

	// Decoder and Encoder default to the JSON implementations.
	Decoder Decoder
	Encoder Encoder

	EnableCORS  bool
	CORSOptions *cors.Options

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server serves HTTP traffic through the execution pipeline.
type Server struct {
	pipeline *pipeline.Pipeline
	logger   *zap.Logger
	opts     Options
	decoder  Decoder
	encoder  Encoder
}

// NewServer creates an HTTP server over a wired pipeline.
func NewServer(p *pipeline.Pipeline, logger *zap.Logger, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 15 * time.Second
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 30 * time.Second
	}

	s := &Server{
		pipeline: p,
		logger:   logger,
		opts:     opts,
		decoder:  opts.Decoder,
		encoder:  opts.Encoder,
	}
	if s.decoder == nil {
		s.decoder = NewJSONDecoder()
	}
	if s.encoder == nil {
		s.encoder = NewJSONEncoder()
	}
	return s
}

// Handler returns the http.Handler for the server, suitable for tests and
// custom listeners.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = http.HandlerFunc(s.serveRequest)

	if s.opts.EnableCORS {
		corsOpts := cors.Options{
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}
		if s.opts.CORSOptions != nil {
			corsOpts = *s.opts.CORSOptions
		}
		handler = cors.Handler(corsOpts)(handler)
	}

	return handler
}

func (s *Server) serveRequest(w http.ResponseWriter, r *http.Request) {
	requestID := common.ExtractRequestID(r)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	req := &pipeline.Request{
		Method:    r.Method,
		Path:      r.URL.Path,
		RequestID: requestID,
		Meta: map[string]interface{}{
			pipeline.MetaAuthorization: r.Header.Get("Authorization"),
			pipeline.MetaClientIP:      clientIP(r),
		},
		Decode: func(entry *routing.Entry, params routing.Params) (interface{}, error) {
			return s.decoder.Decode(r, entry, params)
		},
	}

	res := s.pipeline.Execute(r.Context(), req)

	w.Header().Set("X-Request-ID", requestID)
	s.encoder.Encode(w, res)
}

// Run freezes the pipeline, starts serving, and blocks until the context is
// cancelled or the listener fails. Shutdown drains in-flight requests up to
// the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	s.pipeline.Freeze()

	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("address", s.opts.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// clientIP extracts the client address, preferring proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
