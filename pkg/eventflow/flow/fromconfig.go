package flow

import (
	"fmt"
	"slices"

	"github.com/randalmurphal/eventflow/pkg/eventflow/config"
)

// Config keys read by FromConfig.
const (
	KeyName     = "name"
	KeySettings = "settings"
	KeyStages   = "stages"
)

var configurableKinds = []string{KindFilter, KindTap, KindProcess, KindSplit, KindTrap, KindRequest}

// FromConfig creates a Builder from a flow definition. Stages are a list of
// single-entry maps from stage kind to a component name in reg:
//
//	name: orders
//	settings:
//	  splitter:
//	    batch_size: 50
//	stages:
//	  - trap: dead-letters
//	  - filter: is-order
//	  - process: enrich
//	  - split: line-items
//
// The caller supplies the final endpoint through Build.
func FromConfig(cfg config.Config, reg *Registry, opts ...Option) (*Builder, error) {
	settings, err := LoadSettings(cfg.Sub(KeySettings))
	if err != nil {
		return nil, err
	}
	b := New(cfg.String(KeyName, "flow"), settings, opts...)

	raw := cfg.Any(KeyStages, nil)
	if raw == nil {
		return b, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected a list, got %T", KeyStages, raw)
	}

	for i, item := range items {
		kind, name, err := parseStage(item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", KeyStages, i, err)
		}
		component, err := reg.Get(name)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", KeyStages, i, err)
		}
		b.addKind(kind, component)
	}
	return b, nil
}

func parseStage(item any) (kind, name string, err error) {
	m, ok := item.(map[string]any)
	if !ok || len(m) != 1 {
		return "", "", fmt.Errorf("expected a single kind: component entry, got %v", item)
	}
	for k, v := range m {
		kind = k
		name, ok = v.(string)
		if !ok || name == "" {
			return "", "", fmt.Errorf("%s: component name must be a non-empty string", kind)
		}
	}
	if !slices.Contains(configurableKinds, kind) {
		return "", "", fmt.Errorf("unknown stage kind %q", kind)
	}
	return kind, name, nil
}

func (b *Builder) addKind(kind string, component any) {
	switch kind {
	case KindFilter:
		b.Filter(component)
	case KindTap:
		b.Tap(component)
	case KindProcess:
		b.Process(component)
	case KindSplit:
		b.Split(component)
	case KindTrap:
		b.Trap(component)
	case KindRequest:
		b.Request(component)
	}
}
