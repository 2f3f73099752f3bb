package manager

import (
	"context"

	"github.com/frankjeworrek-lab/yat/internal/metrics"
	"github.com/frankjeworrek-lab/yat/internal/plugin"
	"github.com/frankjeworrek-lab/yat/internal/providers"
	"github.com/frankjeworrek-lab/yat/internal/registry"
	"go.uber.org/zap"
)

// Bootstrap discovers plugins, initializes their providers and
// registers the usable ones. Every failure is local: a provider that
// cannot initialize gets its error attached to the registry record
// and the scan moves on. After registration the first enabled
// provider with a working model listing becomes the active default.
func Bootstrap(ctx context.Context, m *Manager, loader *plugin.Loader, reg *registry.Registry) error {
	loaded, err := loader.LoadAll()
	if err != nil {
		return err
	}

	for range loader.Errors() {
		metrics.PluginLoadFailures.Inc()
	}

	for name, p := range loaded {
		id := plugin.ProviderID(name)

		rec, ok := reg.Get(id)
		if !ok {
			info, _ := loader.Info(name)
			rec = reg.Ensure(id, p.DisplayName(), info.Type)
		}
		if !rec.Enabled {
			m.logger.Info("Skipping disabled provider", zap.String("provider", id))
			continue
		}

		if err := initProvider(ctx, m, reg, id, p); err != nil {
			continue
		}
	}

	selectDefaults(ctx, m, reg)
	return nil
}

// InitProvider initializes a single provider and registers it if
// usable, updating the registry record either way. Exported for the
// hot-reload path.
func InitProvider(ctx context.Context, m *Manager, reg *registry.Registry, id string, p providers.Provider) error {
	return initProvider(ctx, m, reg, id, p)
}

func initProvider(ctx context.Context, m *Manager, reg *registry.Registry, id string, p providers.Provider) error {
	if err := p.Initialize(ctx); err != nil {
		reg.SetStatus(id, registry.StatusError, err.Error())
		metrics.ProviderUp.WithLabelValues(id).Set(0)
		m.logger.Error("Provider initialization failed",
			zap.String("provider", id), zap.Error(err))
		return err
	}

	if err := m.Register(id, p); err != nil {
		reg.SetStatus(id, registry.StatusError, err.Error())
		metrics.ProviderUp.WithLabelValues(id).Set(0)
		return err
	}

	reg.SetStatus(id, registry.StatusActive, "")
	metrics.ProviderUp.WithLabelValues(id).Set(1)
	return nil
}

func selectDefaults(ctx context.Context, m *Manager, reg *registry.Registry) {
	for _, rec := range reg.Enabled() {
		p, err := m.Get(rec.ID)
		if err != nil {
			continue
		}
		models, err := p.Models(ctx)
		if err != nil || len(models) == 0 {
			continue
		}
		if err := m.SetActive(rec.ID, models[0].ID); err != nil {
			continue
		}
		m.logger.Info("Selected default provider",
			zap.String("provider", rec.ID),
			zap.String("model", models[0].ID))
		return
	}
	m.logger.Warn("No usable provider found; chat is unavailable until one is configured")
}
