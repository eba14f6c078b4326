package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/whatmovie/internal/domain"
	domchat "github.com/kailas-cloud/whatmovie/internal/domain/chat"
	"github.com/kailas-cloud/whatmovie/internal/metrics"
)

// ChatConfig holds the generation provider settings.
type ChatConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration // 0 = no client-side deadline
	Logger      *zap.Logger
}

// ChatGenerator implements domchat.Generator over the chat completions API.
type ChatGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// NewChatGenerator creates an OpenAI-compatible chat generator.
func NewChatGenerator(cfg *ChatConfig) *ChatGenerator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatGenerator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// Generate sends system instruction, history and the user turn as one completion request.
func (g *ChatGenerator) Generate(ctx context.Context, p domchat.Prompt) (domchat.Completion, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    buildMessages(p),
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		sentinel := domain.ErrGenerationUnavailable
		if inspect(err).permanent() {
			sentinel = domain.ErrGenerationRejected
		}
		return domchat.Completion{}, wrapAPIError("chat", err, sentinel)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "empty").Inc()
		return domchat.Completion{}, fmt.Errorf("empty chat completion: %w", domain.ErrGenerationUnavailable)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.model).Observe(duration.Seconds())
	metrics.GenerationTokensTotal.WithLabelValues(g.model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.GenerationTokensTotal.WithLabelValues(g.model, "completion").Add(float64(resp.Usage.CompletionTokens))

	g.logger.Debug("Chat completion finished",
		zap.String("model", g.model),
		zap.Duration("duration", duration),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
	)

	return domchat.Completion{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels.
func (g *ChatGenerator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func buildMessages(p domchat.Prompt) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(p.History)+2)
	if p.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.System})
	}
	for _, t := range p.History {
		role := openai.ChatMessageRoleUser
		if t.Role == domchat.RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Text})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: p.User})
}
