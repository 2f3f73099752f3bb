package providers

import (
	"context"
	"fmt"
	"strings"
	"time"
)

func init() {
	RegisterFactory("mock", func(s Settings) (Provider, error) {
		return NewMockProvider(s), nil
	})
}

// MockProvider is an offline provider that echoes canned responses.
// It backs demos without credentials and most of the test suite.
type MockProvider struct {
	id          string
	displayName string
	initialized bool

	// Delay between emitted chunks, to exercise streaming consumers.
	ChunkDelay time.Duration
	// Reply overrides the canned response when non-empty.
	Reply string
}

func NewMockProvider(s Settings) *MockProvider {
	displayName := s.DisplayName
	if displayName == "" {
		displayName = "Mock"
	}
	return &MockProvider{id: s.ID, displayName: displayName}
}

func (p *MockProvider) ID() string {
	return p.id
}

func (p *MockProvider) DisplayName() string {
	return p.displayName
}

func (p *MockProvider) Initialize(ctx context.Context) error {
	p.initialized = true
	return nil
}

func (p *MockProvider) Shutdown(ctx context.Context) error {
	p.initialized = false
	return nil
}

func (p *MockProvider) CheckHealth(ctx context.Context) bool {
	return p.initialized
}

func (p *MockProvider) Models(ctx context.Context) ([]ModelInfo, error) {
	if !p.initialized {
		return nil, fmt.Errorf("provider not initialized")
	}
	return []ModelInfo{
		{
			ID:                "mock-small",
			Name:              "Mock Small",
			Provider:          p.displayName,
			ContextLength:     4096,
			SupportsStreaming: true,
		},
		{
			ID:                "mock-large",
			Name:              "Mock Large",
			Provider:          p.displayName,
			ContextLength:     32768,
			SupportsStreaming: true,
		},
	}, nil
}

func (p *MockProvider) StreamChat(ctx context.Context, modelID string, messages []Message, opts ChatOptions) (<-chan StreamChunk, error) {
	if !p.initialized {
		return nil, fmt.Errorf("provider not initialized")
	}

	reply := p.Reply
	if reply == "" {
		last := ""
		for _, m := range messages {
			if m.Role == RoleUser {
				last = m.Content
			}
		}
		reply = fmt.Sprintf("mock reply to %q from %s", last, modelID)
	}

	out := make(chan StreamChunk, 16)
	go func() {
		defer close(out)
		for _, word := range strings.SplitAfter(reply, " ") {
			if p.ChunkDelay > 0 {
				select {
				case <-time.After(p.ChunkDelay):
				case <-ctx.Done():
					return
				}
			}
			select {
			case out <- StreamChunk{Text: word}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
