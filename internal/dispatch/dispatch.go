// Package dispatch wires every component behind one net/http.ServeMux.
//
// Grounded in services/orchestrator/main.go's handler wiring (one
// ServeMux, a /health endpoint, a metrics counter/histogram pair per
// request) and services/api-gateway/gateway_v2.go's middleware chaining
// (loggingMiddleware wraps a responseWriter to capture status, writeJSON
// helper, request-id header) plus request_validator.go's manual
// (non-struct-tag) validation style.
package dispatch

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/NREL/torc-sub005/internal/artifact"
	"github.com/NREL/torc-sub005/internal/auth"
	"github.com/NREL/torc-sub005/internal/claimcoord"
	"github.com/NREL/torc-sub005/internal/engine"
	"github.com/NREL/torc-sub005/internal/exportimport"
	"github.com/NREL/torc-sub005/internal/scheduled"
	"github.com/NREL/torc-sub005/internal/store"
	"github.com/NREL/torc-sub005/internal/torcerr"
)

// Server bundles every component the dispatch layer routes to.
type Server struct {
	store     *store.Store
	engine    *engine.Engine
	claims    *claimcoord.Coordinator
	artifacts *artifact.Resolver
	tracker   *scheduled.Tracker
	exporter  *exportimport.Service
	authN     *auth.Authenticator

	reqCounter  metric.Int64Counter
	latencyHist metric.Float64Histogram
}

// Deps is the set of wired components Server routes requests to.
type Deps struct {
	Store     *store.Store
	Engine    *engine.Engine
	Claims    *claimcoord.Coordinator
	Artifacts *artifact.Resolver
	Tracker   *scheduled.Tracker
	Exporter  *exportimport.Service
	Auth      *auth.Authenticator
}

// NewServer builds the routed http.Handler.
func NewServer(deps Deps) http.Handler {
	meter := otel.GetMeterProvider().Meter("torc-dispatch")
	reqCounter, _ := meter.Int64Counter("torc_http_requests_total")
	latencyHist, _ := meter.Float64Histogram("torc_http_request_duration_ms")

	s := &Server{
		store:       deps.Store,
		engine:      deps.Engine,
		claims:      deps.Claims,
		artifacts:   deps.Artifacts,
		tracker:     deps.Tracker,
		exporter:    deps.Exporter,
		authN:       deps.Auth,
		reqCounter:  reqCounter,
		latencyHist: latencyHist,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var handler http.Handler = mux
	handler = s.loggingMiddleware(handler)
	handler = deps.Auth.Middleware(handler)
	return handler
}

// responseWriter captures the status code for the logging middleware,
// mirroring gateway_v2.go's responseWriter wrapper.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := otel.Tracer("torc-dispatch").Start(r.Context(), r.URL.Path)
		defer span.End()

		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = fmt.Sprintf("%d-%d", time.Now().UnixNano(), os.Getpid())
		}
		w.Header().Set("X-Request-ID", reqID)

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r.WithContext(ctx))

		duration := float64(time.Since(start).Milliseconds())
		s.reqCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("path", r.URL.Path),
			attribute.Int("status", rw.status),
		))
		s.latencyHist.Record(ctx, duration, metric.WithAttributes(attribute.String("path", r.URL.Path)))

		slog.InfoContext(ctx, "request completed",
			"request_id", reqID, "method", r.Method, "path", r.URL.Path,
			"status", rw.status, "duration_ms", duration)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps a torcerr.Code to its HTTP status, the dispatch layer's
// single error-code→status table (spec.md §6) instead of a cascade of type
// switches.
func writeError(w http.ResponseWriter, err error) {
	code := torcerr.CodeOf(err)
	status, ok := codeStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": err.Error(), "code": string(code)})
}

var codeStatus = map[torcerr.Code]int{
	torcerr.NotFound:          http.StatusNotFound,
	torcerr.Conflict:          http.StatusConflict,
	torcerr.InvalidDag:        http.StatusBadRequest,
	torcerr.InvalidState:      http.StatusConflict,
	torcerr.RetryableConflict: http.StatusServiceUnavailable,
	torcerr.AuthRequired:      http.StatusUnauthorized,
	torcerr.AuthFailed:        http.StatusUnauthorized,
	torcerr.Internal:          http.StatusInternalServerError,
}

func pathInt64(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, torcerr.NewInvalidState("path parameter %q must be an integer, got %q", name, raw)
	}
	return v, nil
}

func queryBool(r *http.Request, name string) bool {
	v := r.URL.Query().Get(name)
	return v == "1" || v == "true"
}
