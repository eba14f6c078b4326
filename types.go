package whatmovie

import (
	"context"

	"github.com/kailas-cloud/whatmovie/internal/domain"
	"github.com/kailas-cloud/whatmovie/internal/domain/search/result"
)

// Errors callers can match with errors.Is.
var (
	ErrInvalidMessage            = domain.ErrInvalidMessage
	ErrRetrievalUnavailable      = domain.ErrRetrievalUnavailable
	ErrGenerationUnavailable     = domain.ErrGenerationUnavailable
	ErrGenerationRejected        = domain.ErrGenerationRejected
	ErrEmbeddingProviderError    = domain.ErrEmbeddingProviderError
	ErrKeywordSearchNotSupported = domain.ErrKeywordSearchNotSupported
)

// EmbeddingResult is a single embedding with token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder turns a query into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// Role identifies who wrote a turn.
type Role string

// Turn roles.
const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one message of the conversation history.
type Turn struct {
	Role Role
	Text string
}

// Prompt is what a Generator receives for one reply.
type Prompt struct {
	System  string
	History []Turn
	User    string
}

// Completion is a generated reply.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Generator produces the assistant reply.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (Completion, error)
}

// Match is one fused movie match. DenseRank and SparseRank are 0 when the
// movie was absent from that source.
type Match struct {
	Rank       int
	MovieID    string
	Score      float64
	DenseRank  int
	SparseRank int
	Content    string
}

// SearchResult is the outcome of a hybrid search.
type SearchResult struct {
	Matches       []Match
	Degraded      bool
	FailedSources []string
}

// ChatReply is the assistant answer to one message.
type ChatReply struct {
	ID       string
	Text     string
	Degraded bool
	Matches  []Match
}

func toMatches(fused []result.Fused) []Match {
	out := make([]Match, len(fused))
	for i := range fused {
		f := &fused[i]
		out[i] = Match{
			Rank:       f.Rank(),
			MovieID:    f.ID(),
			Score:      f.Score(),
			DenseRank:  f.DenseRank(),
			SparseRank: f.SparseRank(),
			Content:    f.Content(),
		}
	}
	return out
}
