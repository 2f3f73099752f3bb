package providers

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectStream(t *testing.T, ch <-chan StreamChunk) (string, error) {
	t.Helper()
	var sb strings.Builder
	for chunk := range ch {
		if chunk.Err != nil {
			return sb.String(), chunk.Err
		}
		sb.WriteString(chunk.Text)
	}
	return sb.String(), nil
}

func TestSplitSystem(t *testing.T) {
	tests := []struct {
		name       string
		messages   []Message
		wantSystem string
		wantRest   int
	}{
		{
			name:     "no system message",
			messages: []Message{{Role: RoleUser, Content: "hi"}},
			wantRest: 1,
		},
		{
			name: "leading system message",
			messages: []Message{
				{Role: RoleSystem, Content: "be brief"},
				{Role: RoleUser, Content: "hi"},
			},
			wantSystem: "be brief",
			wantRest:   1,
		},
		{
			name: "last system message wins",
			messages: []Message{
				{Role: RoleSystem, Content: "first"},
				{Role: RoleUser, Content: "hi"},
				{Role: RoleSystem, Content: "second"},
			},
			wantSystem: "second",
			wantRest:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			system, rest := SplitSystem(tt.messages)
			assert.Equal(t, tt.wantSystem, system)
			assert.Len(t, rest, tt.wantRest)
		})
	}
}

func TestFactoryRegistry(t *testing.T) {
	types := Types()
	for _, want := range []string{"anthropic", "openai", "google", "mock"} {
		assert.Contains(t, types, want)
	}

	_, err := New("no-such-type", Settings{ID: "x"})
	assert.ErrorContains(t, err, "unknown provider type")

	p, err := New("mock", Settings{ID: "m1", DisplayName: "My Mock"})
	require.NoError(t, err)
	assert.Equal(t, "m1", p.ID())
	assert.Equal(t, "My Mock", p.DisplayName())
}

func TestMockProviderLifecycle(t *testing.T) {
	ctx := context.Background()
	p := NewMockProvider(Settings{ID: "mock"})

	assert.False(t, p.CheckHealth(ctx))
	_, err := p.Models(ctx)
	assert.Error(t, err)

	require.NoError(t, p.Initialize(ctx))
	assert.True(t, p.CheckHealth(ctx))

	models, err := p.Models(ctx)
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "mock-small", models[0].ID)

	require.NoError(t, p.Shutdown(ctx))
	assert.False(t, p.CheckHealth(ctx))
}

func TestMockProviderStreamChat(t *testing.T) {
	ctx := context.Background()
	p := NewMockProvider(Settings{ID: "mock"})
	require.NoError(t, p.Initialize(ctx))
	p.Reply = "three word reply"

	ch, err := p.StreamChat(ctx, "mock-small", []Message{{Role: RoleUser, Content: "hi"}}, ChatOptions{})
	require.NoError(t, err)

	got, err := collectStream(t, ch)
	require.NoError(t, err)
	assert.Equal(t, "three word reply", got)
}

func TestMockProviderStreamRespectsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewMockProvider(Settings{ID: "mock"})
	require.NoError(t, p.Initialize(ctx))
	p.Reply = strings.Repeat("word ", 1000)

	ch, err := p.StreamChat(ctx, "mock-small", []Message{{Role: RoleUser, Content: "hi"}}, ChatOptions{})
	require.NoError(t, err)

	<-ch
	cancel()

	// Channel must close once the producer observes cancellation.
	for range ch {
	}
}
