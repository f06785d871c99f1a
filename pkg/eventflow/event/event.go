package event

import "reflect"

// DefaultType is the type assigned to events built without an explicit type.
const DefaultType = "Event"

// Header keys recognised by Builder.
const (
	HeaderID       = "id"
	HeaderParentID = "parentId"
	HeaderReplyTo  = "replyTo"
)

// Event is the unit of flow.
//
// ID is assigned at creation and never changes. ParentID names the event
// this one was derived from. ReplyTo is the correlation stack used by
// request/reply flows; the last element is the top.
type Event struct {
	ID       string         `json:"id"`
	ParentID string         `json:"parentId,omitempty"`
	ReplyTo  []string       `json:"replyTo,omitempty"`
	Type     string         `json:"type"`
	Data     map[string]any `json:"data"`
}

// New creates an event of DefaultType with a fresh id and the given data.
// The data map is deep-copied.
func New(data map[string]any) *Event {
	return NewBuilder().Create(data)
}

// NewTyped creates an event of the given type with a fresh id.
func NewTyped(eventType string, data map[string]any) *Event {
	return NewBuilder(WithType(eventType)).Create(data)
}

// Clone returns a copy of e with a new id. ParentID is set to e.ParentID when
// e has one, otherwise to e.ID. Data and ReplyTo are deep-copied.
func Clone(e *Event) *Event {
	return FromEvent(e).Create(nil)
}

// Copy returns an independent copy of e that keeps the same id.
func (e *Event) Copy() *Event {
	if e == nil {
		return nil
	}
	return &Event{
		ID:       e.ID,
		ParentID: e.ParentID,
		ReplyTo:  copyStrings(e.ReplyTo),
		Type:     e.Type,
		Data:     copyMap(e.Data),
	}
}

// PushReplyTo returns a copy of e with id pushed on top of its ReplyTo stack.
// The receiver is not modified.
func (e *Event) PushReplyTo(id string) *Event {
	c := e.Copy()
	c.ReplyTo = append(c.ReplyTo, id)
	return c
}

// PopReplyTo removes the top of the ReplyTo stack in place and returns it.
// The boolean is false when the stack is empty.
func (e *Event) PopReplyTo() (string, bool) {
	n := len(e.ReplyTo)
	if n == 0 {
		return "", false
	}
	id := e.ReplyTo[n-1]
	e.ReplyTo = e.ReplyTo[:n-1]
	return id, true
}

// ReplyToTop returns the top of the ReplyTo stack, or "" when it is empty.
func (e *Event) ReplyToTop() string {
	if len(e.ReplyTo) == 0 {
		return ""
	}
	return e.ReplyTo[len(e.ReplyTo)-1]
}

// Get returns a data field.
func (e *Event) Get(key string) (any, bool) {
	if e == nil || e.Data == nil {
		return nil, false
	}
	v, ok := e.Data[key]
	return v, ok
}

// String returns a data field as a string, or "" if absent or not a string.
func (e *Event) String(key string) string {
	v, _ := e.Get(key)
	s, _ := v.(string)
	return s
}

// Lineage returns ParentID when set, otherwise ID.
func (e *Event) Lineage() string {
	if e.ParentID != "" {
		return e.ParentID
	}
	return e.ID
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// copyMap deep-copies nested maps and slices. Other values are shared.
func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		return copyStrings(t)
	case []*Event:
		out := make([]*Event, len(t))
		for i, item := range t {
			out[i] = item.Copy()
		}
		return out
	case *Event:
		return t.Copy()
	default:
		return copyReflect(v)
	}
}

var eventPtrType = reflect.TypeOf((*Event)(nil))

// copyReflect copies maps, slices and arrays of any element type. Pointers
// other than *Event and structs are shared.
func copyReflect(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return copyReflectValue(rv).Interface()
	default:
		return v
	}
}

func copyReflectValue(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), copyReflectValue(iter.Value()))
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(copyReflectValue(rv.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(rv.Type()).Elem()
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(copyReflectValue(rv.Index(i)))
		}
		return out
	case reflect.Interface:
		if rv.IsNil() {
			return rv
		}
		out := reflect.New(rv.Type()).Elem()
		if c := copyValue(rv.Elem().Interface()); c != nil {
			out.Set(reflect.ValueOf(c))
		}
		return out
	case reflect.Ptr:
		if rv.Type() == eventPtrType && !rv.IsNil() {
			return reflect.ValueOf(rv.Interface().(*Event).Copy())
		}
		return rv
	default:
		return rv
	}
}

// mergeMaps merges src into dst recursively. Nested maps are merged; any
// other value in src replaces the one in dst.
func mergeMaps(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[k] = mergeMaps(copyMap(dstMap), srcMap)
			continue
		}
		dst[k] = copyValue(v)
	}
	return dst
}
