// Package manager holds the registered providers and the active
// provider/model selection the chat UI operates against.
package manager

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/frankjeworrek-lab/yat/internal/providers"
	"go.uber.org/zap"
)

type Manager struct {
	mu        sync.RWMutex
	providers map[string]providers.Provider
	activePID string
	activeMID string
	logger    *zap.Logger
}

func New(logger *zap.Logger) *Manager {
	return &Manager{
		providers: make(map[string]providers.Provider),
		logger:    logger,
	}
}

// Register adds a provider under an id. Registering the same id twice
// is an error: each plugin contributes exactly one provider.
func (m *Manager) Register(id string, p providers.Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.providers[id]; exists {
		return fmt.Errorf("provider already registered: %s", id)
	}
	m.providers[id] = p
	m.logger.Info("Registered provider", zap.String("provider", id))
	return nil
}

func (m *Manager) Get(id string) (providers.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.providers[id]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", id)
	}
	return p, nil
}

// Remove drops a provider, shutting it down best-effort. Used by hot
// reload before re-registering the fresh instance.
func (m *Manager) Remove(ctx context.Context, id string) {
	m.mu.Lock()
	p, ok := m.providers[id]
	delete(m.providers, id)
	if m.activePID == id {
		m.activePID = ""
		m.activeMID = ""
	}
	m.mu.Unlock()

	if ok {
		if err := p.Shutdown(ctx); err != nil {
			m.logger.Warn("Provider shutdown failed",
				zap.String("provider", id), zap.Error(err))
		}
		m.logger.Info("Removed provider", zap.String("provider", id))
	}
}

// IDs returns the registered provider ids, sorted.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.providers))
	for id := range m.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ProviderModels lists the models of one provider via its live API.
func (m *Manager) ProviderModels(ctx context.Context, id string) ([]providers.ModelInfo, error) {
	p, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	return p.Models(ctx)
}

// AvailableModels aggregates the model listings of every registered
// provider. A provider whose listing fails is skipped, so one dead
// key does not hide the rest.
func (m *Manager) AvailableModels(ctx context.Context) []providers.ModelInfo {
	var all []providers.ModelInfo
	for _, id := range m.IDs() {
		p, err := m.Get(id)
		if err != nil {
			continue
		}
		models, err := p.Models(ctx)
		if err != nil {
			m.logger.Warn("Skipping provider in model aggregation",
				zap.String("provider", id), zap.Error(err))
			continue
		}
		all = append(all, models...)
	}
	return all
}

// SetActive selects the provider and model new chats default to.
func (m *Manager) SetActive(providerID, modelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if providerID != "" {
		if _, ok := m.providers[providerID]; !ok {
			return fmt.Errorf("provider not found: %s", providerID)
		}
	}
	m.activePID = providerID
	m.activeMID = modelID
	return nil
}

// Active returns the current default provider and model ids.
func (m *Manager) Active() (providerID, modelID string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activePID, m.activeMID
}

// Health reports per-provider health flags.
func (m *Manager) Health(ctx context.Context) map[string]bool {
	health := make(map[string]bool)
	for _, id := range m.IDs() {
		if p, err := m.Get(id); err == nil {
			health[id] = p.CheckHealth(ctx)
		}
	}
	return health
}

// Shutdown tears down every provider best-effort.
func (m *Manager) Shutdown(ctx context.Context) {
	for _, id := range m.IDs() {
		p, err := m.Get(id)
		if err != nil {
			continue
		}
		if err := p.Shutdown(ctx); err != nil {
			m.logger.Warn("Provider shutdown failed",
				zap.String("provider", id), zap.Error(err))
		}
	}
}
