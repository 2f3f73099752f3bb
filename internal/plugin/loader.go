// Package plugin discovers provider plugins in a directory. A plugin
// is a JSON manifest naming a registered provider type plus instance
// settings; provider types themselves are compiled in and register
// with the providers factory. Each manifest loads independently: a
// broken file is recorded and skipped, never aborting the scan.
package plugin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/frankjeworrek-lab/yat/internal/providers"
	"go.uber.org/zap"
)

// Manifest is the on-disk description of one provider instance.
type Manifest struct {
	Type        string            `json:"type"`
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
	BaseURL     string            `json:"base_url,omitempty"`
	TimeoutSecs int               `json:"timeout_seconds,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Info is metadata about a loaded plugin.
type Info struct {
	Name        string `json:"name"`
	ProviderID  string `json:"provider_id"`
	Type        string `json:"type"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// Loader scans a directory for provider plugin manifests.
type Loader struct {
	mu     sync.Mutex
	dir    string
	loaded map[string]providers.Provider
	infos  map[string]Info
	errs   map[string]string
	logger *zap.Logger
}

func NewLoader(dir string, logger *zap.Logger) *Loader {
	return &Loader{
		dir:    dir,
		loaded: make(map[string]providers.Provider),
		infos:  make(map[string]Info),
		errs:   make(map[string]string),
		logger: logger,
	}
}

// Discover lists the manifest stems in the plugins directory, sorted.
// Names starting with an underscore (templates, disabled drafts) are
// skipped. The directory is created if it does not exist.
func (l *Loader) Discover() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read plugins directory: %w", err)
		}
		if err := os.MkdirAll(l.dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create plugins directory: %w", err)
		}
		l.logger.Info("Created plugins directory", zap.String("dir", l.dir))
		return nil, nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Load reads one manifest and constructs its provider. Loading a name
// that already loaded returns the cached instance. Failures are
// recorded in the error map and returned.
func (l *Loader) Load(name string) (providers.Provider, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(name)
}

func (l *Loader) load(name string) (providers.Provider, error) {
	if p, ok := l.loaded[name]; ok {
		return p, nil
	}

	path := filepath.Join(l.dir, name+".json")
	provider, info, err := l.build(name, path)
	if err != nil {
		l.errs[name] = err.Error()
		l.logger.Error("Failed to load plugin",
			zap.String("plugin", name),
			zap.Error(err))
		return nil, err
	}

	l.loaded[name] = provider
	l.infos[name] = info
	delete(l.errs, name)
	l.logger.Info("Loaded plugin",
		zap.String("plugin", name),
		zap.String("type", info.Type),
		zap.String("provider", info.ProviderID))
	return provider, nil
}

func (l *Loader) build(name, path string) (providers.Provider, Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Info{}, fmt.Errorf("plugin manifest not found: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, Info{}, fmt.Errorf("invalid plugin manifest: %w", err)
	}
	if m.Type == "" {
		return nil, Info{}, fmt.Errorf("plugin manifest has no provider type")
	}

	id := ProviderID(name)
	provider, err := providers.New(m.Type, providers.Settings{
		ID:          id,
		DisplayName: m.Name,
		BaseURL:     m.BaseURL,
		Timeout:     time.Duration(m.TimeoutSecs) * time.Second,
		Extra:       m.Extra,
	})
	if err != nil {
		return nil, Info{}, err
	}

	return provider, Info{
		Name:        name,
		ProviderID:  id,
		Type:        m.Type,
		Path:        path,
		Description: m.Description,
	}, nil
}

// LoadAll discovers and loads every plugin, returning the loaded set
// keyed by plugin name. Individual failures land in Errors.
func (l *Loader) LoadAll() (map[string]providers.Provider, error) {
	names, err := l.Discover()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.Info("Discovering plugins",
		zap.String("dir", l.dir),
		zap.Int("found", len(names)))

	for _, name := range names {
		_, _ = l.load(name)
	}

	if len(l.errs) > 0 {
		l.logger.Warn("Some plugins failed to load", zap.Int("failed", len(l.errs)))
	}

	out := make(map[string]providers.Provider, len(l.loaded))
	for name, p := range l.loaded {
		out[name] = p
	}
	return out, nil
}

// Reload drops the cached instance and error for a plugin and loads
// it again from disk.
func (l *Loader) Reload(name string) (providers.Provider, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.loaded, name)
	delete(l.infos, name)
	delete(l.errs, name)
	return l.load(name)
}

// Info returns metadata about a loaded plugin.
func (l *Loader) Info(name string) (Info, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	info, ok := l.infos[name]
	return info, ok
}

// Errors returns a copy of the per-plugin error map.
func (l *Loader) Errors() map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]string, len(l.errs))
	for k, v := range l.errs {
		out[k] = v
	}
	return out
}

// ProviderID derives the provider id from a plugin file stem,
// stripping the conventional plugin suffix: "anthropic-plugin" and
// "anthropic_plugin" both map to "anthropic".
func ProviderID(name string) string {
	id := strings.TrimSuffix(name, "-plugin")
	return strings.TrimSuffix(id, "_plugin")
}
