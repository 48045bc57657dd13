// Package api exposes students, attempts, exam configs and analyses over
// HTTP for the dashboard.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/abhisek/mockscope/internal/graphy"
	"github.com/abhisek/mockscope/internal/mentor"
	"github.com/abhisek/mockscope/internal/store"
)

// Options configures a Server.
type Options struct {
	Repo           store.Repo
	Source         graphy.Source
	Mentor         *mentor.Service
	Logger         *zap.Logger
	Metrics        *Metrics
	AllowedOrigins []string
	// DefaultExam is used when a request names no exam.
	DefaultExam string
	// Now stamps synced attempts; defaults to time.Now.
	Now func() time.Time
}

// Server is the HTTP API.
type Server struct {
	repo        store.Repo
	source      graphy.Source
	mentor      *mentor.Service
	logger      *zap.Logger
	metrics     *Metrics
	origins     []string
	defaultExam string
	now         func() time.Time
}

// New creates a Server. Repo is required.
func New(opts Options) *Server {
	s := &Server{
		repo:        opts.Repo,
		source:      opts.Source,
		mentor:      opts.Mentor,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		origins:     opts.AllowedOrigins,
		defaultExam: opts.DefaultExam,
		now:         opts.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if s.mentor == nil {
		s.mentor = mentor.NewService(nil, mentor.DefaultConfig(), s.logger)
	}
	if s.defaultExam == "" {
		s.defaultExam = store.DefaultExamID
	}
	if s.now == nil {
		s.now = time.Now
	}
	if len(s.origins) == 0 {
		s.origins = []string{"*"}
	}
	return s
}

// Handler builds the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/students", s.handleListStudents)
		r.Route("/students/{studentID}", func(r chi.Router) {
			r.Get("/", s.handleGetStudent)
			r.Get("/attempts", s.handleListAttempts)
			r.Get("/attempts/{mockID}", s.handleGetAttempt)
			r.Get("/attempts/{mockID}/analysis", s.handleAttemptAnalysis)
			r.Get("/attempts/{mockID}/mentor", s.handleAttemptMentor)
			r.Post("/sync", s.handleSync)
		})
		r.Post("/import", s.handleImport)
		r.Post("/analyze", s.handleAnalyze)

		r.Get("/exams", s.handleListExams)
		r.Post("/exams", s.handleAddExam)
		r.Put("/exams/{examID}/topics", s.handleUpdateExamTopics)
	})

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(r)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// ListenAndServe runs the API on addr until ctx is cancelled, then shuts
// down gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("api shutting down")
	return srv.Shutdown(shutdownCtx)
}
