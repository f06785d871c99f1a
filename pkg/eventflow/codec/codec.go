// Package codec is the JSON codec for events and arbitrary payloads.
package codec

import (
	"errors"
	"fmt"
	"io"

	"github.com/bytedance/sonic"

	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
)

var defaultConfig = sonic.ConfigStd

// ErrMissingID is returned when a decoded event has no id.
var ErrMissingID = errors.New("event has no id")

func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return defaultConfig.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}

func Encode(w io.Writer, v any) error {
	return defaultConfig.NewEncoder(w).Encode(v)
}

func Decode(r io.Reader, v any) error {
	return defaultConfig.NewDecoder(r).Decode(v)
}

// MarshalEvent encodes e in its wire shape.
func MarshalEvent(e *event.Event) ([]byte, error) {
	if e == nil {
		return nil, errors.New("marshal event: nil event")
	}
	return Marshal(e)
}

// UnmarshalEvent decodes a single event. A missing type becomes
// event.DefaultType and a missing data object an empty map.
func UnmarshalEvent(data []byte) (*event.Event, error) {
	var e event.Event
	if err := Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return normalize(&e)
}

// DecodeEvent reads a single event from r.
func DecodeEvent(r io.Reader) (*event.Event, error) {
	var e event.Event
	if err := Decode(r, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return normalize(&e)
}

// UnmarshalEvents decodes a JSON array of events.
func UnmarshalEvents(data []byte) ([]*event.Event, error) {
	var events []*event.Event
	if err := Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("unmarshal events: %w", err)
	}
	for i, e := range events {
		if e == nil {
			return nil, fmt.Errorf("event %d: null entry", i)
		}
		if _, err := normalize(e); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
	}
	return events, nil
}

func normalize(e *event.Event) (*event.Event, error) {
	if e.ID == "" {
		return nil, ErrMissingID
	}
	if e.Type == "" {
		e.Type = event.DefaultType
	}
	if e.Data == nil {
		e.Data = map[string]any{}
	}
	return e, nil
}
