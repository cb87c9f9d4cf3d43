// Package server exposes a filesystem over HTTP: listing, glob, download
// and upload endpoints behind a chi router.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nimbusfs/azfs/internal/errs"
	"github.com/nimbusfs/azfs/internal/fsys"
	"github.com/nimbusfs/azfs/internal/logger"
)

// FS is the filesystem surface the gateway serves. It is the shared
// capability contract plus recursive listing and single-entry deletion.
type FS interface {
	fsys.FileSystem
	Find(ctx context.Context, path string, opts fsys.FindOptions) ([]fsys.Entry, error)
	RmFile(ctx context.Context, path string) error
}

// Config tunes the gateway.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the default gateway configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:            "0.0.0.0:8080",
		ShutdownTimeout: 30 * time.Second,
	}
}

// Server serves an FS over HTTP.
type Server struct {
	cfg *Config
	fs  FS
	log *logger.Logger
}

// New returns a Server over fs. A nil cfg uses DefaultConfig; a nil log uses
// the default logger.
func New(cfg *Config, fs FS, log *logger.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.New(nil)
	}
	return &Server{cfg: cfg, fs: fs, log: log}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/containers", s.handleContainers)
	r.Get("/ls", s.handleLs)
	r.Get("/find", s.handleFind)
	r.Get("/glob", s.handleGlob)
	r.Get("/files", s.handleDownload)
	r.Put("/files", s.handleUpload)
	r.Delete("/files", s.handleDelete)

	return r
}

// Run serves until ctx is canceled, then drains in-flight requests within
// the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Infof("gateway listening on %s", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.RequestEvent().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// httpStatus maps an error to a response status by kind.
func httpStatus(err error) int {
	var e *errs.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch {
	case errs.IsNotFound(err):
		return http.StatusNotFound
	case errs.IsInvalidInput(err):
		return http.StatusBadRequest
	case errs.IsInvalidState(err), errs.IsAmbiguous(err):
		return http.StatusConflict
	case errs.IsConnectionFailed(err), errs.IsTimeout(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
