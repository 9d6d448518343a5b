package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/voicebot-cli/internal/model"
	"github.com/sells-group/voicebot-cli/internal/pipeline"
	"github.com/sells-group/voicebot-cli/internal/store"
	"github.com/sells-group/voicebot-cli/internal/voices"
)

var servePort int

// runService is the part of the pipeline the API drives.
type runService interface {
	Submit(ctx context.Context, req model.AgentRequest) (*model.Run, error)
	Execute(ctx context.Context, run *model.Run) (*model.RunResult, error)
}

// voiceCatalog lists and resolves voices.
type voiceCatalog interface {
	Voices(ctx context.Context) ([]model.Voice, error)
	Resolve(ctx context.Context, nameOrID string) (model.Voice, error)
}

// cancelGrace is how long cancelled runs get to record their failure
// before the store is closed.
const cancelGrace = 10 * time.Second

// apiServer serves the HTTP API. Runs accepted through POST /v1/agents
// execute in the background on baseCtx, bounded by runTimeout.
// cancelRuns cancels baseCtx.
type apiServer struct {
	baseCtx         context.Context
	cancelRuns      context.CancelFunc
	runs            runService
	voices          voiceCatalog
	store           store.Store
	runTimeout      time.Duration
	defaultMaxPages int
	allowedOrigins  []string
	// submitLimit throttles run submissions; nil means unlimited.
	submitLimit *rate.Limiter

	wg sync.WaitGroup
}

type createAgentBody struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	MaxPages int    `json:"max_pages"`
	Role     string `json:"role"`
	Tone     string `json:"tone"`
	Language string `json:"language"`
	Voice    string `json:"voice"`
	DryRun   bool   `json:"dry_run"`
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/voices", s.listVoices)
		r.Post("/agents", s.createAgent)
		r.Get("/runs", s.listRuns)
		r.Get("/runs/{id}", s.getRun)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

func (s *apiServer) listVoices(w http.ResponseWriter, r *http.Request) {
	list, err := s.voices.Voices(r.Context())
	if err != nil {
		zap.L().Error("api: list voices", zap.Error(err))
		writeError(w, http.StatusBadGateway, "could not load voices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"voices": list})
}

func (s *apiServer) createAgent(w http.ResponseWriter, r *http.Request) {
	if s.submitLimit != nil && !s.submitLimit.Allow() {
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "too many agent submissions, retry later")
		return
	}

	var body createAgentBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req := model.AgentRequest{
		URL:      body.URL,
		Name:     body.Name,
		MaxPages: body.MaxPages,
		Persona:  model.Persona{Role: body.Role, Tone: body.Tone, Language: body.Language},
		VoiceID:  body.Voice,
		DryRun:   body.DryRun,
	}
	if req.MaxPages == 0 {
		req.MaxPages = s.defaultMaxPages
	}

	if !req.DryRun && req.VoiceID != "" {
		voice, err := s.voices.Resolve(r.Context(), req.VoiceID)
		switch {
		case errors.Is(err, voices.ErrVoiceNotFound):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			zap.L().Error("api: resolve voice", zap.Error(err))
			writeError(w, http.StatusBadGateway, "could not load voices")
			return
		}
		req.VoiceID = voice.ID
	}

	run, err := s.runs.Submit(r.Context(), req)
	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		zap.L().Error("api: submit run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not submit run")
		return
	}

	s.wg.Add(1)
	go func(run model.Run) {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.baseCtx, s.runTimeout)
		defer cancel()
		if _, err := s.runs.Execute(ctx, &run); err != nil {
			zap.L().Warn("api: run failed", zap.String("run_id", run.ID), zap.Error(err))
		}
	}(*run)

	w.Header().Set("Location", "/v1/runs/"+run.ID)
	writeJSON(w, http.StatusAccepted, run)
}

func (s *apiServer) listRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Status: model.RunStatus(q.Get("status")),
		URL:    q.Get("url"),
	}
	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, key+" must be a non-negative integer")
				return
			}
			*dst = n
		}
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list runs")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *apiServer) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, store.ErrRunNotFound):
		writeError(w, http.StatusNotFound, "run not found")
		return
	case err != nil:
		zap.L().Error("api: get run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// wait blocks until background runs finish or ctx is done. It reports
// whether every run finished.
func (s *apiServer) wait(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// drain lets background runs finish until ctx is done, then cancels the
// rest and waits up to grace for them to record their failure.
func (s *apiServer) drain(ctx context.Context, grace time.Duration) {
	if s.wait(ctx) {
		return
	}
	zap.L().Warn("cancelling in-flight runs")
	if s.cancelRuns != nil {
		s.cancelRuns()
	}
	graceCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if !s.wait(graceCtx) {
		zap.L().Error("in-flight runs did not stop before shutdown")
	}
}

// newSubmitLimiter allows perMinute submissions with the given burst.
// A non-positive rate disables limiting.
func newSubmitLimiter(perMinute, burst int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60), burst)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for provisioning voice agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		runCtx, cancelRuns := context.WithCancel(context.WithoutCancel(ctx))
		defer cancelRuns()

		api := &apiServer{
			baseCtx:         runCtx,
			cancelRuns:      cancelRuns,
			runs:            env.Pipeline,
			voices:          env.Voices,
			store:           env.Store,
			runTimeout:      cfg.Server.RunTimeout(),
			defaultMaxPages: cfg.Crawl.DefaultMaxPages,
			allowedOrigins:  cfg.Server.AllowedOrigins,
			submitLimit:     newSubmitLimiter(cfg.Server.AgentsPerMinute, cfg.Server.AgentsBurst),
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("starting server", zap.Int("port", port))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
		case <-ctx.Done():
		}

		// Stop accepting requests, then drain accepted runs before the
		// deferred store close.
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("server shutdown", zap.Error(err))
		}
		api.drain(shutdownCtx, cancelGrace)

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
