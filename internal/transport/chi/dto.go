package chi

import (
	"github.com/kailas-cloud/whatmovie/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/whatmovie/internal/usecase/health"
)

// ErrorCode is the machine-readable error kind in an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest                ErrorCode = "bad_request"
	CodeValidationFailed          ErrorCode = "validation_failed"
	CodeUnauthorized              ErrorCode = "unauthorized"
	CodeRetrievalUnavailable      ErrorCode = "retrieval_unavailable"
	CodeGenerationUnavailable     ErrorCode = "generation_unavailable"
	CodeGenerationRejected        ErrorCode = "generation_rejected"
	CodeEmbeddingProviderError    ErrorCode = "embedding_provider_error"
	CodeKeywordSearchNotSupported ErrorCode = "keyword_search_not_supported"
	CodeTimeout                   ErrorCode = "timeout"
	CodeInternalError             ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// TurnDTO is one prior exchange supplied by the client.
type TurnDTO struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ChatRequest is the body of POST /api/chat/.
type ChatRequest struct {
	Message string    `json:"message"`
	History []TurnDTO `json:"history,omitempty"`
}

// MatchDTO is one fused match.
type MatchDTO struct {
	Rank    int     `json:"rank"`
	MovieID string  `json:"movie_id"`
	Score   float64 `json:"score"`
}

// ChatResponse is the body of a successful chat reply.
type ChatResponse struct {
	ID       string     `json:"id"`
	Response string     `json:"response"`
	Degraded bool       `json:"degraded"`
	Matches  []MatchDTO `json:"matches"`
}

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// SearchMatchDTO is a fused match with its per-source ranks and stored content.
type SearchMatchDTO struct {
	MatchDTO
	DenseRank  *int   `json:"dense_rank,omitempty"`
	SparseRank *int   `json:"sparse_rank,omitempty"`
	Content    string `json:"content"`
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Matches       []SearchMatchDTO `json:"matches"`
	Degraded      bool             `json:"degraded"`
	FailedSources []string         `json:"failed_sources,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Movies int               `json:"movies"`
}

func matchToDTO(f *result.Fused) MatchDTO {
	return MatchDTO{Rank: f.Rank(), MovieID: f.ID(), Score: f.Score()}
}

func matchesToDTO(fused []result.Fused) []MatchDTO {
	out := make([]MatchDTO, len(fused))
	for i := range fused {
		out[i] = matchToDTO(&fused[i])
	}
	return out
}

func searchMatchesToDTO(fused []result.Fused) []SearchMatchDTO {
	out := make([]SearchMatchDTO, len(fused))
	for i := range fused {
		f := &fused[i]
		out[i] = SearchMatchDTO{
			MatchDTO:   matchToDTO(f),
			DenseRank:  rankPtr(f.DenseRank()),
			SparseRank: rankPtr(f.SparseRank()),
			Content:    f.Content(),
		}
	}
	return out
}

// rankPtr hides the absent rank (0) from JSON.
func rankPtr(rank int) *int {
	if rank <= 0 {
		return nil
	}
	return &rank
}

func healthToDTO(r healthuc.Report) HealthResponse {
	checks := make(map[string]string, len(r.Checks))
	for k, v := range r.Checks {
		checks[k] = string(v)
	}
	return HealthResponse{Status: string(r.Status), Checks: checks, Movies: r.Movies}
}
