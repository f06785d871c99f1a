package config

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// Config is a read-only view over decoded settings.
type Config struct {
	data map[string]any
}

// New creates a Config from data. A nil map yields an empty Config.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

// lookup resolves key, first as a literal key and then as a dotted path.
func (c Config) lookup(key string) (any, bool) {
	if v, ok := c.data[key]; ok {
		return v, true
	}
	if !strings.Contains(key, ".") {
		return nil, false
	}

	var cur any = c.data
	for _, part := range strings.Split(key, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Config:
		return m.data, true
	}
	return nil, false
}

// String returns the string at key, or def.
func (c Config) String(key, def string) string {
	if s, ok := get[string](c, key); ok {
		return s
	}
	return def
}

// Bool returns the bool at key, or def.
func (c Config) Bool(key string, def bool) bool {
	if b, ok := get[bool](c, key); ok {
		return b
	}
	return def
}

// Int returns the integer at key, or def. Floats qualify only when they
// have no fractional part.
func (c Config) Int(key string, def int) int {
	v, ok := c.lookup(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		if n == float64(int(n)) {
			return int(n)
		}
	}
	return def
}

// Float returns the number at key, or def.
func (c Config) Float(key string, def float64) float64 {
	v, ok := c.lookup(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return def
}

// Duration returns the duration at key, or def. Strings are parsed with
// time.ParseDuration and numbers are milliseconds.
func (c Config) Duration(key string, def time.Duration) time.Duration {
	v, ok := c.lookup(key)
	if !ok {
		return def
	}
	switch d := v.(type) {
	case time.Duration:
		return d
	case string:
		if parsed, err := time.ParseDuration(d); err == nil {
			return parsed
		}
	case int:
		return time.Duration(d) * time.Millisecond
	case int64:
		return time.Duration(d) * time.Millisecond
	case float64:
		return time.Duration(d * float64(time.Millisecond))
	}
	return def
}

// StringSlice returns the list of strings at key, or def if any element is
// not a string.
func (c Config) StringSlice(key string, def []string) []string {
	v, ok := c.lookup(key)
	if !ok {
		return def
	}
	switch list := v.(type) {
	case []string:
		return slices.Clone(list)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return def
			}
			out = append(out, s)
		}
		return out
	}
	return def
}

// Sub returns the nested section at key. A missing or non-map value yields
// an empty Config.
func (c Config) Sub(key string) Config {
	v, ok := c.lookup(key)
	if !ok {
		return New(nil)
	}
	m, ok := asMap(v)
	if !ok {
		return New(nil)
	}
	return New(m)
}

// Any returns the raw value at key, or def.
func (c Config) Any(key string, def any) any {
	if v, ok := c.lookup(key); ok {
		return v
	}
	return def
}

// Has reports whether key resolves to a value.
func (c Config) Has(key string) bool {
	_, ok := c.lookup(key)
	return ok
}

// Keys returns the top-level keys, sorted.
func (c Config) Keys() []string {
	return slices.Sorted(maps.Keys(c.data))
}

// Raw returns the underlying map. It must not be modified.
func (c Config) Raw() map[string]any {
	return c.data
}

func get[T any](c Config, key string) (T, bool) {
	v, ok := c.lookup(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
