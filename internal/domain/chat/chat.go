// Package chat holds the conversation types shared by the chat use case and
// the generation provider.
package chat

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/whatmovie/internal/domain"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser is a turn written by the person guessing.
	RoleUser Role = "user"
	// RoleModel is a turn produced by the assistant.
	RoleModel Role = "model"
)

// Turn is one message of the conversation history.
type Turn struct {
	Role Role
	Text string
}

// Validate rejects unknown roles and empty turns.
func (t Turn) Validate() error {
	if t.Role != RoleUser && t.Role != RoleModel {
		return fmt.Errorf("%w: unknown role %q", domain.ErrInvalidMessage, t.Role)
	}
	if t.Text == "" {
		return fmt.Errorf("%w: empty %s turn", domain.ErrInvalidMessage, t.Role)
	}
	return nil
}

// Prompt is everything a generator needs for one reply.
type Prompt struct {
	System  string
	History []Turn
	User    string
}

// Completion is a generated reply with its token usage.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Generator produces the assistant reply for a prompt.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (Completion, error)
}
