package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inferd/internal/engine"
	"inferd/internal/lifecycle"
	"inferd/pkg/types"
)

// Service defines the methods required by the HTTP API layer. The lifecycle
// Controller satisfies it.
type Service interface {
	ListModels() []types.Model
	Status() types.StatusResponse
	Ready() bool
	StartGeneration(ctx context.Context, prompt string) (*lifecycle.Stream, error)
	StopGeneration() bool
	ResetContext() error
	EnsureEngine(ctx context.Context, modelID string, params engine.SessionParams) error
}

// NewMux builds the HTTP router over svc.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/models", handleModels(svc))
	r.Get("/status", handleStatus(svc))
	r.Post("/generate", handleGenerate(svc))
	r.Post("/generate/stop", handleStop(svc))
	r.Post("/context/reset", handleReset(svc))
	r.Post("/engine/load", handleLoad(svc))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("unloaded"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	return r
}

// handleModels godoc
// @Summary List discoverable models
// @Produce json
// @Success 200 {object} types.ModelsResponse
// @Router /models [get]
func handleModels(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(types.ModelsResponse{Models: svc.ListModels()}); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	}
}

// handleStatus godoc
// @Summary Engine and generation status
// @Produce json
// @Success 200 {object} types.StatusResponse
// @Router /status [get]
func handleStatus(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	}
}

// handleGenerate godoc
// @Summary Start a generation and stream its tokens as NDJSON
// @Description One {"token":...} line per token. Naturally completed
// @Description generations end with a {"done":true} line; stopped or
// @Description superseded ones just end. Fails 503 until /engine/load has
// @Description established a model and session.
// @Accept json
// @Produce x-ndjson
// @Param request body types.GenerateRequest true "generation request"
// @Success 200 {object} types.TokenLine
// @Failure 400 {object} types.ErrorResponse
// @Failure 503 {object} types.ErrorResponse
// @Router /generate [post]
func handleGenerate(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.Prompt) == "" {
			writeJSONError(w, http.StatusBadRequest, "prompt is required")
			return
		}

		// Join server base context with request context so shutdown and
		// client disconnect both cancel the pull loop.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()

		start := time.Now()
		lvl := requestLogLevel(r)
		logEnd := func(status int, err error) {
			if lvl < LevelInfo {
				return
			}
			if zlog != nil {
				z := zlog.Info().Int("status", status).Dur("dur", time.Since(start))
				if rid := middleware.GetReqID(r.Context()); rid != "" {
					z = z.Str("request_id", rid)
				}
				if err != nil {
					z = z.Err(err)
				}
				z.Msg("generate end")
				return
			}
			log.Printf("generate end status=%d dur=%s err=%v", status, time.Since(start), err)
		}

		st, err := svc.StartGeneration(ctx, req.Prompt)
		if err != nil {
			status := statusForError(err)
			writeJSONError(w, status, err.Error())
			logEnd(status, err)
			return
		}
		defer st.Close()

		w.Header().Set("Content-Type", "application/x-ndjson")
		var flush func()
		if f, ok := w.(http.Flusher); ok {
			flush = f.Flush
		}
		var tap *loggingLineWriter
		if lvl >= LevelDebug {
			tap = &loggingLineWriter{}
		}

		enc := json.NewEncoder(w)
		for tok := range st.Tokens() {
			line := types.TokenLine{Token: tok.Text, GenerationID: string(tok.GenerationID), Index: tok.Index}
			if err := enc.Encode(line); err != nil {
				// Consumer is gone; abandoning the stream is enough, the
				// pump filters everything from here on.
				logEnd(http.StatusOK, err)
				return
			}
			if tap != nil {
				b, _ := json.Marshal(line)
				_, _ = tap.Write(append(b, '\n'))
			}
			if flush != nil {
				flush()
			}
		}

		switch st.Outcome() {
		case lifecycle.OutcomeCompleted:
			_ = enc.Encode(types.DoneLine{Done: true, GenerationID: string(st.ID()), TokenCount: st.TokenCount()})
			if flush != nil {
				flush()
			}
			logEnd(http.StatusOK, nil)
		case lifecycle.OutcomeFailed:
			// Headers are long gone; surface the failure as a final NDJSON line.
			_ = enc.Encode(types.ErrorResponse{Error: st.Err().Error(), Code: http.StatusInternalServerError})
			if flush != nil {
				flush()
			}
			logEnd(http.StatusInternalServerError, st.Err())
		default:
			// Cancelled: partial text stays visible, no completion signal.
			logEnd(http.StatusOK, nil)
		}
	}
}

// handleStop godoc
// @Summary Stop the active generation
// @Description Idempotent; a no-op when nothing is active. Returns once the
// @Description cancellation is recorded, without waiting for the pull loop.
// @Produce json
// @Success 200 {object} types.StopResponse
// @Router /generate/stop [post]
func handleStop(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(types.StopResponse{Stopped: svc.StopGeneration()})
	}
}

// handleReset godoc
// @Summary Tear down the session and model to clear conversation state
// @Description Implicitly stops any in-flight generation. Local handles are
// @Description cleared even when engine teardown fails; the failure surfaces
// @Description as a warning field, not an error status.
// @Produce json
// @Success 200 {object} types.ResetResponse
// @Router /context/reset [post]
func handleReset(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := types.ResetResponse{Reset: true}
		if err := svc.ResetContext(); err != nil {
			resp.Warning = err.Error()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// handleLoad godoc
// @Summary Establish the model and session
// @Accept json
// @Produce json
// @Param request body types.LoadRequest true "load request"
// @Success 200 {object} types.StatusResponse
// @Failure 404 {object} types.ErrorResponse
// @Failure 503 {object} types.ErrorResponse
// @Router /engine/load [post]
func handleLoad(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.LoadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		params := engine.SessionParams{
			MaxTokens:   req.MaxTokens,
			Temperature: float32(req.Temperature),
			TopP:        float32(req.TopP),
			TopK:        req.TopK,
			Stop:        req.Stop,
			Seed:        req.Seed,
		}
		if err := svc.EnsureEngine(ctx, req.Model, params); err != nil {
			writeJSONError(w, statusForError(err), err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(svc.Status())
	}
}
