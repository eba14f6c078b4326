// Package chat answers movie descriptions: it retrieves hybrid matches,
// renders them as grounding context and asks the generator for a guess.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/whatmovie/internal/domain"
	domchat "github.com/kailas-cloud/whatmovie/internal/domain/chat"
	"github.com/kailas-cloud/whatmovie/internal/domain/search/result"
	"github.com/kailas-cloud/whatmovie/internal/resilience"
	"github.com/kailas-cloud/whatmovie/internal/usecase/search"
)

// DefaultSystemInstruction is the WhatMovie persona.
var DefaultSystemInstruction = strings.Join([]string{
	"You are a AI movie guessing chatbot named WhatMovie.",
	"Your mission is to guess the movie based on the description provided by the user.",
	"You will be 10 movies retrieved from a database, ranked by how closely they match the user's description, to help you.",
	"You're movie guess does not have to be one of the movies if they are obviously wrong.",
}, "\n")

// ContextHeader separates the user's description from the retrieved matches.
const ContextHeader = "\n\nRelevant movie suggestions from database:\n"

const (
	// DefaultMaxMessageLength bounds the description in runes.
	DefaultMaxMessageLength = 4000
	// DefaultMaxHistoryTurns keeps only the most recent turns.
	DefaultMaxHistoryTurns = 20

	generationOperation = "generation"
)

// Config tunes the chat service.
type Config struct {
	SystemInstruction string
	TopK              int
	MaxMessageLength  int
	MaxHistoryTurns   int
}

// Reply is the assistant answer to one message.
type Reply struct {
	ID       string
	Text     string
	Degraded bool
	Matches  []result.Fused
}

// Service orchestrates retrieval and generation. It keeps no conversation state.
type Service struct {
	retriever Retriever
	generator domchat.Generator
	exec      *resilience.Executor
	cfg       Config
	logger    *zap.Logger
}

// New creates a chat service. exec may be nil to call the generator directly.
func New(
	retriever Retriever, generator domchat.Generator,
	exec *resilience.Executor, cfg Config, logger *zap.Logger,
) *Service {
	if cfg.SystemInstruction == "" {
		cfg.SystemInstruction = DefaultSystemInstruction
	}
	if cfg.TopK <= 0 {
		cfg.TopK = search.DefaultTopK
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = DefaultMaxMessageLength
	}
	if cfg.MaxHistoryTurns <= 0 {
		cfg.MaxHistoryTurns = DefaultMaxHistoryTurns
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		retriever: retriever,
		generator: generator,
		exec:      exec,
		cfg:       cfg,
		logger:    logger,
	}
}

// Reply answers message given the prior conversation.
func (s *Service) Reply(ctx context.Context, message string, history []domchat.Turn) (Reply, error) {
	message = strings.TrimSpace(message)
	if err := s.validate(message, history); err != nil {
		return Reply{}, err
	}

	retrieval, err := s.retriever.Retrieve(ctx, message, s.cfg.TopK)
	if err != nil {
		return Reply{}, fmt.Errorf("chat retrieve: %w", err)
	}

	prompt := domchat.Prompt{
		System:  s.cfg.SystemInstruction,
		History: s.trimHistory(history),
		User:    BuildUserMessage(message, retrieval.Matches),
	}

	completion, err := s.generate(ctx, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Reply{}, fmt.Errorf("chat generate: %w", ctxErr)
		}
		return Reply{}, fmt.Errorf("chat generate: %w: %w", domain.ErrGenerationUnavailable, err)
	}

	s.logger.Debug("Chat reply generated",
		zap.Int("matches", len(retrieval.Matches)),
		zap.Bool("degraded", retrieval.Degraded),
		zap.Int("history_turns", len(prompt.History)),
		zap.Int("prompt_tokens", completion.PromptTokens),
		zap.Int("completion_tokens", completion.CompletionTokens),
	)

	return Reply{
		ID:       uuid.NewString(),
		Text:     completion.Text,
		Degraded: retrieval.Degraded,
		Matches:  retrieval.Matches,
	}, nil
}

// BuildUserMessage appends the formatted matches to the user's description.
func BuildUserMessage(message string, matches []result.Fused) string {
	return message + ContextHeader + search.FormatContext(matches)
}

func (s *Service) validate(message string, history []domchat.Turn) error {
	if message == "" {
		return fmt.Errorf("%w: message is required", domain.ErrInvalidMessage)
	}
	if n := utf8.RuneCountInString(message); n > s.cfg.MaxMessageLength {
		return fmt.Errorf("%w: message has %d characters, limit is %d",
			domain.ErrInvalidMessage, n, s.cfg.MaxMessageLength)
	}
	for i, turn := range history {
		if err := turn.Validate(); err != nil {
			return fmt.Errorf("history[%d]: %w", i, err)
		}
	}
	return nil
}

func (s *Service) trimHistory(history []domchat.Turn) []domchat.Turn {
	if len(history) > s.cfg.MaxHistoryTurns {
		history = history[len(history)-s.cfg.MaxHistoryTurns:]
	}
	out := make([]domchat.Turn, len(history))
	copy(out, history)
	return out
}

func (s *Service) generate(ctx context.Context, p domchat.Prompt) (domchat.Completion, error) {
	if s.exec == nil {
		return s.generator.Generate(ctx, p) //nolint:wrapcheck // wrapped by caller
	}
	var completion domchat.Completion
	err := s.exec.Execute(ctx, generationOperation, func(ctx context.Context) error {
		var err error
		completion, err = s.generator.Generate(ctx, p)
		return err
	}, generationClassifier)
	return completion, err //nolint:wrapcheck // wrapped by caller
}

// generationClassifier does not retry requests the provider rejected.
func generationClassifier(err error) resilience.ErrorClassification {
	if errors.Is(err, domain.ErrGenerationRejected) {
		return resilience.ErrorClassification{}
	}
	return resilience.TransientClassifier(err)
}
