package providers

import (
	"context"
	"time"
)

// Role of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ModelInfo describes one model offered by a provider.
type ModelInfo struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Provider          string `json:"provider"`
	ContextLength     int    `json:"context_length"`
	SupportsStreaming bool   `json:"supports_streaming"`
}

// ChatOptions are the per-request generation knobs forwarded upstream.
type ChatOptions struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// StreamChunk is one element of a chat stream. Exactly one of Text or
// Err is meaningful; a chunk with Err set is the last one sent.
type StreamChunk struct {
	Text string
	Err  error
}

// Provider is the interface every provider plugin implements.
//
// Initialize builds the upstream client from environment credentials;
// a missing or invalid key must return a non-empty error. Models makes
// a live listing call against the vendor API so that a dead key fails
// loudly instead of serving a stale catalog. StreamChat forwards one
// chat request and yields text deltas until the upstream stream ends
// or ctx is cancelled.
type Provider interface {
	ID() string
	DisplayName() string

	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	CheckHealth(ctx context.Context) bool

	Models(ctx context.Context) ([]ModelInfo, error)
	StreamChat(ctx context.Context, modelID string, messages []Message, opts ChatOptions) (<-chan StreamChunk, error)
}

// Settings carries the resolved setting values a provider instance is
// constructed with. Credentials are looked up from the environment
// during Initialize, not stored here.
type Settings struct {
	ID          string
	DisplayName string
	BaseURL     string
	Timeout     time.Duration
	Extra       map[string]string
}

// SplitSystem separates the leading system prompt from the remaining
// turns, for vendors that take the system message out of band. The
// last system message wins if several are present.
func SplitSystem(messages []Message) (system string, rest []Message) {
	rest = make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
