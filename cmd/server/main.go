package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/liamcoop/prospects/intake"
	"github.com/liamcoop/prospects/internal/config"
	"github.com/liamcoop/prospects/internal/logger"
	"github.com/liamcoop/prospects/policy"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	svc    *intake.Service
	db     pinger
	router *chi.Mux
}

// NewServer exposes svc over HTTP. db is pinged by the health check and may
// be nil.
func NewServer(svc *intake.Service, db pinger) *Server {
	s := &Server{
		svc: svc,
		db:  db,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/v1/health", s.handleHealth)
	r.Get("/api/v1/due-date", s.handleDueDate)

	r.Route("/api/v1/prospects", func(r chi.Router) {
		r.Get("/", s.handleListProspects)
		r.Post("/", s.handleSubmitProspect)
		r.Post("/duplicate-check", s.handleDuplicateCheck)

		r.Route("/{prospectId}", func(r chi.Router) {
			r.Get("/", s.handleGetProspect)
			r.Delete("/", s.handleDeleteProspect)
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	counters := map[string]int64{
		"errors":     logger.TotalErrors.Load(),
		"warnings":   logger.TotalWarnings.Load(),
		"http5xx":    logger.Total5xxErrors.Load(),
		"http4xx":    logger.Total4xxErrors.Load(),
		"duplicates": logger.Total409Errors.Load(),
		"invalid":    logger.Total422Errors.Load(),
	}

	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":   "unhealthy",
				"error":    err.Error(),
				"counters": counters,
			})
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"counters": counters,
	})
}

func (s *Server) handleDueDate(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, DueDateResponse{
		DueDate: s.svc.DefaultDueDate().Format(dateLayout),
	})
}

func (s *Server) handleSubmitProspect(w http.ResponseWriter, r *http.Request) {
	override := false
	if v := r.URL.Query().Get("override"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "override must be a boolean", err)
			return
		}
		override = parsed
	}

	var payload intake.SubmissionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	stored, err := s.svc.Submit(r.Context(), payload, override)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, newProspectResponse(s.svc.Summarize(stored)))
}

func (s *Server) handleDuplicateCheck(w http.ResponseWriter, r *http.Request) {
	var payload intake.SubmissionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	match, err := s.svc.CheckDuplicate(r.Context(), payload)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	resp := DuplicateCheckResponse{}
	if match != nil {
		resp.Duplicate = true
		resp.MatchID = match.ID
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListProspects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := intake.ListFilter{
		Name:     q.Get("name"),
		Industry: q.Get("industry"),
	}

	if v := q.Get("from"); v != "" {
		from, err := time.Parse(dateLayout, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "from must be YYYY-MM-DD", err)
			return
		}
		filter.CreatedFrom = from
	}
	if v := q.Get("to"); v != "" {
		to, err := time.Parse(dateLayout, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "to must be YYYY-MM-DD", err)
			return
		}
		// inclusive of the whole day
		filter.CreatedTo = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	prospects, err := s.svc.List(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	resp := ProspectsListResponse{Prospects: make([]ProspectResponse, 0, len(prospects))}
	for _, p := range prospects {
		resp.Prospects = append(resp.Prospects, newProspectResponse(s.svc.Summarize(p)))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetProspect(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Get(r.Context(), chi.URLParam(r, "prospectId"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, newProspectResponse(s.svc.Summarize(p)))
}

func (s *Server) handleDeleteProspect(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), chi.URLParam(r, "prospectId")); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	respond(w, status, resp)
}

func respond(w http.ResponseWriter, status int, resp ErrorResponse) {
	if status >= 500 {
		logger.ErrorHttp5xx()
	} else {
		logger.WarnHttp4xx(status)
	}
	respondJSON(w, status, resp)
}

// respondServiceError maps intake errors onto status codes.
func respondServiceError(w http.ResponseWriter, err error) {
	var (
		validationErr   *intake.ValidationError
		mismatchErr     *intake.DistributionMismatchError
		duplicateErr    *intake.DuplicateDetectedError
		readErr         *intake.RepositoryReadError
		writeErr        *intake.RepositoryWriteError
		inconsistentErr *intake.InconsistentWriteError
	)

	switch {
	case errors.As(err, &validationErr):
		respond(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: validationErr.Message,
			Code:  "VALIDATION_FAILED",
			Field: validationErr.Field,
		})
	case errors.As(err, &mismatchErr):
		respond(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: mismatchErr.Error(),
			Code:  "DISTRIBUTION_MISMATCH",
			Field: "healthPlans",
		})
	case errors.As(err, &duplicateErr):
		respond(w, http.StatusConflict, ErrorResponse{
			Error:   "An identical submission already exists. Resubmit with override=true to save it anyway.",
			Code:    "DUPLICATE_SUBMISSION",
			MatchID: duplicateErr.MatchID,
		})
	case errors.Is(err, intake.ErrNotFound):
		respond(w, http.StatusNotFound, ErrorResponse{Error: "prospect not found", Code: "NOT_FOUND"})
	case errors.As(err, &inconsistentErr):
		logger.Error("prospect stored without health plans",
			"prospect_id", inconsistentErr.ProspectID,
			"hash_key", inconsistentErr.HashKey,
			"error", inconsistentErr.Err,
		)
		respond(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "prospect was saved without its health plans",
			Code:    "INCONSISTENT_WRITE",
			Details: inconsistentErr.ProspectID,
		})
	case errors.As(err, &readErr), errors.As(err, &writeErr), errors.Is(err, intake.ErrLockUnavailable):
		logger.Error("repository unavailable", "error", err)
		respond(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:   "storage is temporarily unavailable",
			Code:    "UNAVAILABLE",
			Details: err.Error(),
		})
	default:
		logger.Error("unexpected service error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error", err)
	}
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// buildService wires the intake service from cfg. The returned close
// function releases the Redis client when one was opened.
func buildService(cfg config.Config, repo intake.Repository) (*intake.Service, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	engine, err := policy.NewDefaultEngine(cfg.Intake.Rules...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compile policy rules: %w", err)
	}

	validator := intake.NewValidator(engine,
		intake.WithLocation(cfg.Location()),
		intake.WithDueDays(cfg.Intake.DueDays),
	)

	if cfg.Database.BreakerFailures > 0 {
		repo = intake.NewBreakerRepository(repo, intake.BreakerConfig{
			ConsecutiveFailures: cfg.Database.BreakerFailures,
			OpenTimeout:         cfg.Database.BreakerTimeout,
			HalfOpenRequests:    1,
		})
	}

	var client *redis.Client
	closeFn := func() error { return nil }
	if cfg.Redis.Addr != "" {
		client = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		closeFn = client.Close
	}

	if cfg.Intake.LookupCacheTTL > 0 {
		cacheConfig := intake.CacheConfig{TTL: cfg.Intake.LookupCacheTTL}
		var cache intake.LookupCache = intake.NewInMemoryLookupCache(cacheConfig)
		if cfg.Redis.SharedLookupCache && client != nil {
			cache = intake.NewRedisLookupCache(client, cacheConfig)
		}
		repo = intake.NewCachedRepository(repo, cache)
	}

	var opts []intake.ServiceOption
	if client != nil {
		opts = append(opts, intake.WithLocker(intake.NewRedisLocker(client, intake.RedisLockOptions{
			Expiry:     cfg.Redis.LockExpiry,
			Tries:      cfg.Redis.LockTries,
			RetryDelay: cfg.Redis.LockRetryDelay,
		})))
		logger.Info("submission lock enabled", "redis", cfg.Redis.Addr, "shared_lookup_cache", cfg.Redis.SharedLookupCache)
	}

	return intake.NewService(repo, validator, opts...), closeFn, nil
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to YAML config (defaults to INTAKE_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}

	if err := logger.Init(cfg.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		logger.Fatal("invalid log level", "level", cfg.Logging.Level, "error", err)
	}
	logger.SetLevel(level)

	if cfg.Database.URL == "" {
		logger.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	defer db.Close()

	svc, closeLocker, err := buildService(cfg, intake.NewPostgresRepository(db))
	if err != nil {
		logger.Fatal("failed to build service", "error", err)
	}
	defer closeLocker()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      NewServer(svc, db),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown handling
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port, "business_location", cfg.Intake.BusinessLocation)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
