package httpapi

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/jonwraymond/neuroscan/analysis"
	"github.com/jonwraymond/neuroscan/auth"
	"github.com/jonwraymond/neuroscan/health"
	"github.com/jonwraymond/neuroscan/observe"
	"github.com/jonwraymond/neuroscan/pipeline"
	"github.com/jonwraymond/neuroscan/resilience"
)

// DefaultMaxUploadBytes bounds the multipart request body.
const DefaultMaxUploadBytes = 10 << 20

// formField is the multipart field that carries the image.
const formField = "file"

// Analyzer is the subset of pipeline.Orchestrator the API serves.
type Analyzer interface {
	Classify(ctx context.Context, up pipeline.Upload) (analysis.ClassificationResult, error)
	Interpret(ctx context.Context, up pipeline.Upload) (analysis.InterpretationResult, error)
	Analyze(ctx context.Context, up pipeline.Upload) (analysis.FullAnalysisResult, error)
}

// Options configures a Server. Analyzer is required.
type Options struct {
	Analyzer Analyzer

	// Health mounts the health endpoints when set.
	Health *health.Aggregator
	// Metrics is served on GET /metrics when set.
	Metrics http.Handler
	// Authenticator guards /api when set.
	Authenticator auth.Authenticator

	Logger observe.Logger

	MaxUploadBytes int64
	CORSOrigins    []string

	// RateLimit is requests per second per client IP; zero disables it.
	RateLimit float64
	RateBurst int

	Now func() time.Time
}

// Server is the HTTP front of the orchestrator.
type Server struct {
	analyzer  Analyzer
	health    *health.Aggregator
	metrics   http.Handler
	authn     auth.Authenticator
	logger    observe.Logger
	limiter   *resilience.KeyedRateLimiter
	maxUpload int64
	origins   []string
	now       func() time.Time

	router chi.Router
}

// ErrNilAnalyzer is returned by New when Options.Analyzer is nil.
var ErrNilAnalyzer = errors.New("httpapi: analyzer is nil")

// New builds the router.
func New(opts Options) (*Server, error) {
	if opts.Analyzer == nil {
		return nil, ErrNilAnalyzer
	}
	s := &Server{
		analyzer:  opts.Analyzer,
		health:    opts.Health,
		metrics:   opts.Metrics,
		authn:     opts.Authenticator,
		logger:    opts.Logger,
		maxUpload: opts.MaxUploadBytes,
		origins:   opts.CORSOrigins,
		now:       opts.Now,
	}
	if s.logger == nil {
		s.logger = observe.NopLogger()
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUploadBytes
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.RateLimit > 0 {
		s.limiter = resilience.NewKeyedRateLimiter(resilience.RateLimiterConfig{
			Rate:  opts.RateLimit,
			Burst: opts.RateBurst,
			Now:   s.now,
		})
	}
	s.router = s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.accessLog)
	r.Use(s.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
	})
	if s.health != nil {
		health.Routes(r, s.health)
	}
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimit)
		if s.authn != nil {
			r.Use(auth.Middleware(s.authn, s.authFailure))
		}
		r.Post("/classify", s.handleClassify)
		r.Post("/interpret", s.handleInterpret)
		r.Post("/analyze", s.handleAnalyze)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})
	return r
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	res, err := s.analyzer.Classify(r.Context(), up)
	if err != nil {
		s.fail(w, r, "classify", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleInterpret(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	res, err := s.analyzer.Interpret(r.Context(), up)
	if err != nil {
		s.fail(w, r, "interpret", err)
		return
	}
	writeJSON(w, http.StatusOK, toInterpretationResponse(res))
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	res, err := s.analyzer.Analyze(r.Context(), up)
	if err != nil {
		s.fail(w, r, "analyze", err)
		return
	}
	writeJSON(w, http.StatusOK, toAnalyzeResponse(res))
}

// readUpload extracts the image from the multipart body. On failure it has
// already written the response.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (pipeline.Upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	file, header, err := r.FormFile(formField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, CodeFileTooLarge, "upload exceeds size limit")
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			writeError(w, http.StatusUnprocessableEntity, CodeMissingFile, `multipart field "file" is required`)
		default:
			writeError(w, http.StatusBadRequest, CodeInvalidImage, "malformed multipart body")
		}
		return pipeline.Upload{}, false
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidImage, "could not read upload")
		return pipeline.Upload{}, false
	}
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}

	return pipeline.Upload{
		Content:   content,
		MediaType: partMediaType(header.Header.Get("Content-Type")),
		Filename:  header.Filename,
	}, true
}

// partMediaType strips parameters from a part's Content-Type.
func partMediaType(v string) string {
	if v == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return strings.TrimSpace(v)
	}
	return mt
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code, detail := statusFor(err)
	fields := []observe.Field{
		observe.F("operation", op),
		observe.F("status", status),
		observe.F("error", err.Error()),
		observe.F("error_kind", observe.ErrorLabel(err)),
	}
	if status >= 500 {
		s.logger.Error(r.Context(), "request failed", fields...)
	} else {
		s.logger.Warn(r.Context(), "request rejected", fields...)
	}
	writeError(w, status, code, detail)
}
