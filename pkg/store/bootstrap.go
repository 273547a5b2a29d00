package store

import (
	"context"
	"sort"

	"github.com/vango-dev/rstore/pkg/persist"
	"github.com/vango-dev/rstore/pkg/value"
)

// Config is the bootstrap document.
type Config struct {
	// Data maps slot names to initial values. Required; may be empty.
	Data map[string]value.Value

	// Persist selects the persistence mode. Default: persist.None.
	Persist persist.Mode
}

// Initialize creates a slot for every entry of cfg.Data, in name order, then
// enables persistence for cfg.Persist. A restored snapshot overwrites the
// initial values it names.
//
// Once Initialize has succeeded, later calls return nil without doing
// anything until Clear or ResetRegistry. A failed call leaves the guard
// unarmed; slots created before the failure remain.
func (s *Store) Initialize(ctx context.Context, cfg *Config) error {
	s.mu.Lock()
	done := s.initialized
	s.mu.Unlock()
	if done {
		return nil
	}

	if cfg == nil {
		return &ConfigShapeError{Reason: "initialize requires a config"}
	}
	if cfg.Data == nil {
		return &ConfigShapeError{Reason: "config.data is required"}
	}

	names := make([]string, 0, len(cfg.Data))
	for name := range cfg.Data {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.write(name, Literal(cfg.Data[name]), true); err != nil {
			return err
		}
	}

	if err := s.enablePersistence(ctx, cfg.Persist); err != nil {
		return err
	}

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	s.logger.Info("store initialized", "slots", len(names), "persist", cfg.Persist.String())
	return nil
}

func (s *Store) enablePersistence(ctx context.Context, mode persist.Mode) error {
	switch mode {
	case persist.None:
		if s.persist != nil {
			return s.persist.Enable(ctx, persist.None, s)
		}
		return nil
	case persist.Local, persist.Session:
		if s.persist == nil {
			return &persist.InvalidConfigError{Mode: mode.String(), Reason: "no adapter configured"}
		}
		return s.persist.Enable(ctx, mode, s)
	}
	return &persist.InvalidConfigError{Mode: mode.String()}
}

// Initialized reports whether Initialize has succeeded since the last reset.
func (s *Store) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// DecodeConfig decodes a JSON bootstrap document of the form
// {"data": {...}, "persist": "none"|"local"|"session"}.
func DecodeConfig(raw []byte) (*Config, error) {
	doc, err := value.Parse(raw)
	if err != nil {
		return nil, err
	}
	return configFromValue(doc)
}

// ConfigFromMap builds a Config from already decoded data, such as a YAML
// document.
func ConfigFromMap(m map[string]any) (*Config, error) {
	if m == nil {
		return nil, &ConfigShapeError{Reason: "config must be an object"}
	}
	doc, err := value.FromAny(m)
	if err != nil {
		return nil, err
	}
	return configFromValue(doc)
}

func configFromValue(doc value.Value) (*Config, error) {
	if doc.Kind() != value.KindObject {
		return nil, &ConfigShapeError{Reason: "config must be an object"}
	}

	data, ok := doc.Field("data")
	if !ok || data.IsNull() {
		return nil, &ConfigShapeError{Reason: "config.data is required"}
	}
	if data.Kind() != value.KindObject {
		return nil, &ConfigShapeError{Reason: "config.data must be an object"}
	}

	cfg := &Config{Data: data.Fields()}

	p, ok := doc.Field("persist")
	if !ok || p.IsNull() {
		return cfg, nil
	}
	name, isString := p.AsString()
	if !isString {
		raw, _ := p.MarshalJSON()
		return nil, &persist.InvalidConfigError{Mode: string(raw)}
	}
	mode, err := persist.ParseMode(name)
	if err != nil {
		return nil, err
	}
	cfg.Persist = mode
	return cfg, nil
}
