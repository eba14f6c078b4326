package chi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/whatmovie/internal/logger"
	"github.com/kailas-cloud/whatmovie/internal/metrics"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	APIKeys []string
	Logger  *zap.Logger
}

// NewRouter mounts the API. /health and /metrics stay reachable without a key.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(
		recoverJSON(logger),
		chiMiddleware.RequestID,
		accessLog(logger),
		metrics.Middleware(),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireAPIKey(opts.APIKeys))
		r.Post("/chat", s.Chat)
		r.Post("/chat/", s.Chat)
		r.Post("/search", s.Search)
	})
	return r
}

// recoverJSON turns a handler panic into a 500 with the usual error body.
func recoverJSON(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
					panic(rvr)
				}
				logpkg.FromContext(r.Context(), logger).Error("Handler panicked",
					zap.Any("panic", rvr),
					zap.String("path", r.URL.Path),
					zap.Stack("stacktrace"),
				)
				writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// accessLog writes one line per request with a request-scoped logger that
// handlers pick up from the context. X-Request-ID is echoed back.
func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := chiMiddleware.GetReqID(r.Context())
			if id != "" {
				w.Header().Set("X-Request-ID", id)
			}
			ctx, log := logpkg.WithRequestLogger(r.Context(), logger, zap.String("request_id", id))

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			log.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
				zap.Bool("degraded", ww.Header().Get(DegradedHeader) == "true"),
			)
		})
	}
}
