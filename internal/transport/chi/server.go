package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/whatmovie/internal/domain"
	domchat "github.com/kailas-cloud/whatmovie/internal/domain/chat"
	logpkg "github.com/kailas-cloud/whatmovie/internal/logger"
	chatuc "github.com/kailas-cloud/whatmovie/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/whatmovie/internal/usecase/health"
	searchuc "github.com/kailas-cloud/whatmovie/internal/usecase/search"
)

const (
	maxBodyBytes   = 64 << 10
	maxSearchLimit = 100

	// nginx convention, no net/http constant exists.
	statusClientClosedRequest = 499
)

// DegradedHeader is set on responses built from partial retrieval.
const DegradedHeader = "X-Retrieval-Degraded"

// Replier answers one chat message.
type Replier interface {
	Reply(ctx context.Context, message string, history []domchat.Turn) (chatuc.Reply, error)
}

// Retriever returns fused matches for a free-text query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) (searchuc.Retrieval, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server holds the HTTP handlers of the API.
type Server struct {
	chat          Replier
	search        Retriever
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(chat Replier, search Retriever, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		chat:   chat,
		search: search,
		health: health,
		logger: logger,
		// Order matters: a generation failure caused by a provider rejection also
		// carries ErrGenerationUnavailable.
		errorHandlers: []errorHandler{
			sentinelHandler(domain.ErrInvalidMessage, http.StatusBadRequest, CodeValidationFailed),
			sentinelHandler(domain.ErrGenerationRejected, http.StatusBadGateway, CodeGenerationRejected),
			sentinelHandler(domain.ErrRetrievalUnavailable, http.StatusServiceUnavailable, CodeRetrievalUnavailable),
			sentinelHandler(domain.ErrGenerationUnavailable, http.StatusServiceUnavailable, CodeGenerationUnavailable),
			sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
			sentinelHandler(domain.ErrKeywordSearchNotSupported,
				http.StatusNotImplemented, CodeKeywordSearchNotSupported),
			sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout),
		},
	}
}

// Chat handles POST /api/chat/.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "message is required")
		return
	}

	history := make([]domchat.Turn, len(req.History))
	for i, t := range req.History {
		history[i] = domchat.Turn{Role: domchat.Role(t.Role), Text: t.Text}
	}

	reply, err := s.chat.Reply(r.Context(), req.Message, history)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setDegraded(w, reply.Degraded)
	writeJSON(w, http.StatusOK, ChatResponse{
		ID:       reply.ID,
		Response: reply.Text,
		Degraded: reply.Degraded,
		Matches:  matchesToDTO(reply.Matches),
	})
}

// Search handles POST /api/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "query is required")
		return
	}
	if req.Limit < 0 || req.Limit > maxSearchLimit {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			fmt.Sprintf("limit must be between 1 and %d", maxSearchLimit))
		return
	}

	res, err := s.search.Retrieve(r.Context(), req.Query, req.Limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setDegraded(w, res.Degraded)
	writeJSON(w, http.StatusOK, SearchResponse{
		Matches:       searchMatchesToDTO(res.Matches),
		Degraded:      res.Degraded,
		FailedSources: res.FailedSources,
	})
}

// HealthCheck handles GET /health. Only an unhealthy report answers 503.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthToDTO(report))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func setDegraded(w http.ResponseWriter, degraded bool) {
	if degraded {
		w.Header().Set(DegradedHeader, "true")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context(), s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("request failed", zap.Error(err))
			return
		}
	}
	if errors.Is(err, context.Canceled) {
		log.Info("request canceled by client", zap.Error(err))
		writeError(w, statusClientClosedRequest, CodeBadRequest, "request canceled")
		return
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
