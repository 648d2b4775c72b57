package ingest

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// ── Source ──────────────────────────────────────────────────
// A Source extracts rows from an external system.
// Implementations live in ingest/sources, one file per source type.

// SourceConfig is an opaque configuration map parsed per source type.
type SourceConfig map[string]any

// String returns the string value stored under key, or "".
func (c SourceConfig) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// ConfigField describes a single configuration input for a source.
type ConfigField struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Type     string   `json:"type"` // "string" | "select" | "password" | "file" | "number"
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
	Default  string   `json:"default,omitempty"`
	Help     string   `json:"help,omitempty"`
}

// SourceSpec describes a source type and its configuration inputs.
type SourceSpec struct {
	Type         string        `json:"type"`
	Label        string        `json:"label"`
	ConfigFields []ConfigField `json:"configFields"`
}

// Validate reports the first required field missing from cfg.
func (s SourceSpec) Validate(cfg SourceConfig) error {
	for _, f := range s.ConfigFields {
		if !f.Required {
			continue
		}
		if v, ok := cfg[f.Key]; !ok || v == nil || v == "" {
			return fmt.Errorf("%s: %s is required", s.Type, f.Key)
		}
	}
	return nil
}

// Source is the interface every data source must implement.
type Source interface {
	// Spec returns metadata about this source type.
	Spec() SourceSpec

	// Discover introspects the source and returns the expected schema.
	Discover(ctx context.Context, cfg SourceConfig) (*Schema, error)

	// Read streams records into a channel that is closed when reading ends
	// or ctx is cancelled. At most one error is sent on the error channel.
	Read(ctx context.Context, cfg SourceConfig) (<-chan Record, <-chan error)
}

// ── Source Registry ────────────────────────────────────────
// Sources register themselves from init().

var (
	registryMu sync.RWMutex
	registry   = map[string]Source{}
)

// RegisterSource registers a source by its spec type.
func RegisterSource(s Source) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.Spec().Type] = s
}

// GetSource returns a registered source by type.
func GetSource(typ string) (Source, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[typ]
	if !ok {
		return nil, fmt.Errorf("unknown source type: %q", typ)
	}
	return s, nil
}

// ListSources returns the specs of all registered sources, sorted by type.
func ListSources() []SourceSpec {
	registryMu.RLock()
	defer registryMu.RUnlock()
	specs := make([]SourceSpec, 0, len(registry))
	for _, s := range registry {
		specs = append(specs, s.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Type < specs[j].Type })
	return specs
}
