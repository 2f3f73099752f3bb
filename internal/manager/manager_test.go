package manager

import (
	"context"
	"fmt"
	"testing"

	"github.com/frankjeworrek-lab/yat/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// failingProvider always errors on Models, for aggregation tests.
type failingProvider struct {
	*providers.MockProvider
}

func (p *failingProvider) Models(ctx context.Context) ([]providers.ModelInfo, error) {
	return nil, fmt.Errorf("listing failed")
}

func newMock(t *testing.T, id string) *providers.MockProvider {
	t.Helper()
	p := providers.NewMockProvider(providers.Settings{ID: id})
	require.NoError(t, p.Initialize(context.Background()))
	return p
}

func TestRegisterDuplicate(t *testing.T) {
	m := New(zap.NewNop())
	require.NoError(t, m.Register("mock", newMock(t, "mock")))
	err := m.Register("mock", newMock(t, "mock"))
	assert.ErrorContains(t, err, "already registered")
}

func TestGetUnknown(t *testing.T) {
	m := New(zap.NewNop())
	_, err := m.Get("nope")
	assert.ErrorContains(t, err, "not found")
}

func TestIDsSorted(t *testing.T) {
	m := New(zap.NewNop())
	require.NoError(t, m.Register("zeta", newMock(t, "zeta")))
	require.NoError(t, m.Register("alpha", newMock(t, "alpha")))
	assert.Equal(t, []string{"alpha", "zeta"}, m.IDs())
}

func TestAvailableModelsSkipsFailures(t *testing.T) {
	ctx := context.Background()
	m := New(zap.NewNop())
	require.NoError(t, m.Register("good", newMock(t, "good")))
	require.NoError(t, m.Register("bad", &failingProvider{newMock(t, "bad")}))

	models := m.AvailableModels(ctx)
	require.Len(t, models, 2)
	assert.Equal(t, "mock-small", models[0].ID)
}

func TestSetActiveValidatesProvider(t *testing.T) {
	m := New(zap.NewNop())
	require.NoError(t, m.Register("mock", newMock(t, "mock")))

	assert.Error(t, m.SetActive("ghost", "model"))
	require.NoError(t, m.SetActive("mock", "mock-small"))

	pid, mid := m.Active()
	assert.Equal(t, "mock", pid)
	assert.Equal(t, "mock-small", mid)
}

func TestRemoveClearsActiveSelection(t *testing.T) {
	ctx := context.Background()
	m := New(zap.NewNop())
	p := newMock(t, "mock")
	require.NoError(t, m.Register("mock", p))
	require.NoError(t, m.SetActive("mock", "mock-small"))

	m.Remove(ctx, "mock")

	pid, mid := m.Active()
	assert.Empty(t, pid)
	assert.Empty(t, mid)
	assert.False(t, p.CheckHealth(ctx))
	_, err := m.Get("mock")
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	ctx := context.Background()
	m := New(zap.NewNop())
	healthy := newMock(t, "up")
	down := providers.NewMockProvider(providers.Settings{ID: "down"})
	require.NoError(t, m.Register("up", healthy))
	require.NoError(t, m.Register("down", down))

	health := m.Health(ctx)
	assert.True(t, health["up"])
	assert.False(t, health["down"])
}

func TestShutdown(t *testing.T) {
	ctx := context.Background()
	m := New(zap.NewNop())
	p := newMock(t, "mock")
	require.NoError(t, m.Register("mock", p))

	m.Shutdown(ctx)
	assert.False(t, p.CheckHealth(ctx))
}
