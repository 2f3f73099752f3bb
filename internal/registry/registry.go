// Package registry manages the provider configuration file: which
// providers exist, whether they are enabled, and the setting
// descriptors that map credential values to environment variables.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Status of a provider record.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
	StatusError    = "error"
	StatusOffline  = "offline"
)

// Setting types understood by the settings UI.
const (
	SettingPassword = "password"
	SettingText     = "text"
	SettingBoolean  = "boolean"
	SettingNumber   = "number"
)

// Setting describes one configurable value of a provider. Values with
// an EnvVar are sourced from (and persisted to) the environment.
type Setting struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	EnvVar   string `json:"env_var,omitempty"`
	Required bool   `json:"required"`
	Default  string `json:"default,omitempty"`
}

// Record is the durable configuration of one provider.
type Record struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	Icon     string    `json:"icon,omitempty"`
	Color    string    `json:"color,omitempty"`
	Enabled  bool      `json:"enabled"`
	Status   string    `json:"status,omitempty"`
	Settings []Setting `json:"settings,omitempty"`

	// InitError is set at load time when initialization fails. It is
	// runtime state and never written back to the registry file.
	InitError string `json:"init_error,omitempty"`
}

type registryFile struct {
	Providers []Record `json:"providers"`
}

// Registry holds provider records loaded from a JSON file.
type Registry struct {
	mu      sync.RWMutex
	path    string
	envPath string
	records map[string]*Record
	order   []string
	logger  *zap.Logger
}

func New(path, envPath string, logger *zap.Logger) *Registry {
	return &Registry{
		path:    path,
		envPath: envPath,
		records: make(map[string]*Record),
		logger:  logger,
	}
}

// Load reads the registry file. A missing file is not an error: the
// registry starts empty and records are created as plugins load.
// Duplicate ids are rejected; the first record wins.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Info("No provider registry file, starting empty",
				zap.String("path", r.path))
			return nil
		}
		return fmt.Errorf("failed to read provider registry: %w", err)
	}

	var file registryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse provider registry: %w", err)
	}

	r.records = make(map[string]*Record, len(file.Providers))
	r.order = r.order[:0]
	for i := range file.Providers {
		rec := file.Providers[i]
		if rec.ID == "" {
			return fmt.Errorf("provider record %d has no id", i)
		}
		if _, dup := r.records[rec.ID]; dup {
			r.logger.Warn("Duplicate provider id in registry, keeping first",
				zap.String("provider", rec.ID))
			continue
		}
		rec.InitError = ""
		if rec.Status == "" {
			if rec.Enabled {
				rec.Status = StatusOffline
			} else {
				rec.Status = StatusDisabled
			}
		}
		r.records[rec.ID] = &rec
		r.order = append(r.order, rec.ID)
	}

	r.logger.Info("Loaded provider registry",
		zap.String("path", r.path),
		zap.Int("providers", len(r.records)))
	return nil
}

// Save writes the registry back to disk, without runtime-only fields.
func (r *Registry) Save() error {
	r.mu.RLock()
	file := registryFile{Providers: make([]Record, 0, len(r.order))}
	for _, id := range r.order {
		rec := *r.records[id]
		rec.InitError = ""
		file.Providers = append(file.Providers, rec)
	}
	r.mu.RUnlock()

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal provider registry: %w", err)
	}
	if err := os.WriteFile(r.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write provider registry: %w", err)
	}
	return nil
}

// Get returns a copy of the record for id.
func (r *Registry) Get(id string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// All returns every record in file order.
func (r *Registry) All() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.records[id])
	}
	return out
}

// Enabled returns the enabled records in file order. The first entry
// is the default provider at startup.
func (r *Registry) Enabled() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Record
	for _, id := range r.order {
		if r.records[id].Enabled {
			out = append(out, *r.records[id])
		}
	}
	return out
}

// Ensure creates a default record for a provider discovered on disk
// but absent from the registry file.
func (r *Registry) Ensure(id, name, typ string) Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok {
		return *rec
	}
	rec := &Record{
		ID:      id,
		Name:    name,
		Type:    typ,
		Enabled: true,
		Status:  StatusOffline,
	}
	r.records[id] = rec
	r.order = append(r.order, id)
	return *rec
}

func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("provider not found: %s", id)
	}
	rec.Enabled = enabled
	if enabled {
		rec.Status = StatusOffline
	} else {
		rec.Status = StatusDisabled
	}
	return nil
}

// SetStatus records the runtime outcome of provider initialization.
func (r *Registry) SetStatus(id, status, initError string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return
	}
	rec.Status = status
	rec.InitError = initError
}

// SettingValue resolves the current value of a setting: environment
// variable first, declared default second.
func (r *Registry) SettingValue(id, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return "", fmt.Errorf("provider not found: %s", id)
	}
	for _, s := range rec.Settings {
		if s.Key != key {
			continue
		}
		if s.EnvVar != "" {
			if v := os.Getenv(s.EnvVar); v != "" {
				return v, nil
			}
		}
		return s.Default, nil
	}
	return "", fmt.Errorf("setting not found: %s.%s", id, key)
}

// UpdateSettings applies new setting values for a provider. Values
// bound to an environment variable are written into the process env
// and persisted to the .env file; unrelated .env keys are preserved.
// Settings not declared on the record are rejected.
func (r *Registry) UpdateSettings(id string, values map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("provider not found: %s", id)
	}

	declared := make(map[string]Setting, len(rec.Settings))
	for _, s := range rec.Settings {
		declared[s.Key] = s
	}

	envUpdates := make(map[string]string)
	for key, value := range values {
		setting, ok := declared[key]
		if !ok {
			return fmt.Errorf("setting not found: %s.%s", id, key)
		}
		if setting.EnvVar == "" {
			continue
		}
		if err := os.Setenv(setting.EnvVar, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", setting.EnvVar, err)
		}
		envUpdates[setting.EnvVar] = value
	}

	if len(envUpdates) == 0 {
		return nil
	}
	return r.writeEnvFile(envUpdates)
}

func (r *Registry) writeEnvFile(updates map[string]string) error {
	env, err := godotenv.Read(r.envPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read %s: %w", r.envPath, err)
		}
		env = make(map[string]string)
	}

	for k, v := range updates {
		if v == "" {
			delete(env, k)
			continue
		}
		env[k] = v
	}

	if err := godotenv.Write(env, r.envPath); err != nil {
		return fmt.Errorf("failed to write %s: %w", r.envPath, err)
	}

	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	r.logger.Info("Persisted provider settings", zap.Strings("env_vars", keys))
	return nil
}
