package flow

import (
	"fmt"
	"time"

	"github.com/randalmurphal/eventflow/pkg/eventflow/channel"
	"github.com/randalmurphal/eventflow/pkg/eventflow/config"
	"github.com/randalmurphal/eventflow/pkg/eventflow/strategy"
)

// Config keys read by LoadSettings.
const (
	KeyBatchSize          = "splitter.batch_size"
	KeyStrategy           = "router.strategy"
	KeyRequestTimeout     = "request_reply.timeout"
	KeyAggregationTimeout = "aggregation.timeout"
	KeyFilterRethrow      = "filter.rethrow"
	KeyTapRethrow         = "tap.rethrow"
	KeyTrapRethrow        = "error_trap.rethrow"
)

// Settings holds the defaults a Builder applies to the stages it creates.
type Settings struct {
	// BatchSize is the splitter batch size.
	BatchSize int

	// Strategy names the fan-out strategy for splitters and routers.
	Strategy string

	// RequestTimeout bounds request/reply waits. Zero waits until the
	// context is done.
	RequestTimeout time.Duration

	// AggregationTimeout expires idle aggregation groups. Zero disables it.
	AggregationTimeout time.Duration

	// Rethrow policies. Nil keeps the stage's own default: Filter and
	// ErrorTrap swallow failures, Tap rethrows them.
	FilterRethrow *bool
	TapRethrow    *bool
	TrapRethrow   *bool
}

// DefaultSettings returns the defaults each stage uses on its own. The zero
// Settings behaves the same way.
func DefaultSettings() Settings {
	return Settings{
		BatchSize: channel.DefaultBatchSize,
		Strategy:  strategy.NameParallel,
	}
}

// Bool returns a pointer to v, for the rethrow fields of Settings.
func Bool(v bool) *bool {
	return &v
}

func optionalBool(cfg config.Config, key string) *bool {
	if !cfg.Has(key) {
		return nil
	}
	return Bool(cfg.Bool(key, false))
}

// LoadSettings reads settings from cfg, falling back to DefaultSettings for
// missing keys.
func LoadSettings(cfg config.Config) (Settings, error) {
	def := DefaultSettings()
	s := Settings{
		BatchSize:          cfg.Int(KeyBatchSize, def.BatchSize),
		Strategy:           cfg.String(KeyStrategy, def.Strategy),
		RequestTimeout:     cfg.Duration(KeyRequestTimeout, def.RequestTimeout),
		AggregationTimeout: cfg.Duration(KeyAggregationTimeout, def.AggregationTimeout),
		FilterRethrow:      optionalBool(cfg, KeyFilterRethrow),
		TapRethrow:         optionalBool(cfg, KeyTapRethrow),
		TrapRethrow:        optionalBool(cfg, KeyTrapRethrow),
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks that the settings can configure a stage.
func (s Settings) Validate() error {
	if s.BatchSize < 0 {
		return fmt.Errorf("%s: must not be negative, got %d", KeyBatchSize, s.BatchSize)
	}
	if s.RequestTimeout < 0 {
		return fmt.Errorf("%s: must not be negative, got %s", KeyRequestTimeout, s.RequestTimeout)
	}
	if s.AggregationTimeout < 0 {
		return fmt.Errorf("%s: must not be negative, got %s", KeyAggregationTimeout, s.AggregationTimeout)
	}
	if _, err := strategy.ByName(s.Strategy); err != nil {
		return fmt.Errorf("%s: %w", KeyStrategy, err)
	}
	return nil
}
