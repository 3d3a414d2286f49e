// Package server publishes the dataset resource over HTTP together with
// stateless renders of caller-supplied thresholds.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/vanderheijden86/kerrigan/pkg/debug"
	"github.com/vanderheijden86/kerrigan/pkg/encode"
	"github.com/vanderheijden86/kerrigan/pkg/filter"
	"github.com/vanderheijden86/kerrigan/pkg/layout"
	"github.com/vanderheijden86/kerrigan/pkg/loader"
	"github.com/vanderheijden86/kerrigan/pkg/store"
)

// DefaultLayoutTicks bounds the simulation run per render request.
const DefaultLayoutTicks = 300

// Options configures a Server.
type Options struct {
	Loader      *loader.Loader
	Store       *store.Store // optional; POST /records answers 503 without it
	Predicates  filter.Predicate
	Encode      encode.Config
	Layout      layout.Params
	LayoutTicks int
	CORSOrigins []string
}

// Server serves the dataset and renders.
type Server struct {
	opts   Options
	router chi.Router
}

// New builds the router.
func New(opts Options) *Server {
	if opts.Predicates == 0 {
		opts.Predicates = filter.AllPredicates
	}
	if opts.LayoutTicks <= 0 {
		opts.LayoutTicks = DefaultLayoutTicks
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	s := &Server{opts: opts}
	s.router = s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Get("/"+loader.DatasetFileName, s.dataset)
	r.Get("/render.png", s.renderPNG)
	r.Get("/render.svg", s.renderSVG)
	r.Post("/records", s.createRecord)
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		debug.Log("http %s %s status=%d bytes=%d dur=%v req=%s",
			r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(), time.Since(start),
			chimiddleware.GetReqID(r.Context()))
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if s.opts.Loader != nil {
		go s.opts.Loader.Load(ctx)
	}
	errCh := make(chan error, 1)
	go func() {
		debug.Log("server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
