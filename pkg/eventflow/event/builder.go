package event

import "slices"

// Producer is a deferred header or data value. It is invoked each time a
// Builder renders an event.
type Producer func() any

// Builder is an immutable event template. Construct with NewBuilder or
// FromEvent.
type Builder struct {
	headers  map[string]any
	data     map[string]any
	typ      string
	copyable []string
	idGen    func() string
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithType sets the event type.
func WithType(t string) BuilderOption {
	return func(b *Builder) {
		b.typ = t
	}
}

// WithHeader sets a header default. The value may be a Producer,
// a func() string, or a plain value.
func WithHeader(key string, value any) BuilderOption {
	return func(b *Builder) {
		b.headers[key] = value
	}
}

// WithParentID sets the parentId header.
func WithParentID(id string) BuilderOption {
	return WithHeader(HeaderParentID, id)
}

// WithData merges fields into the data defaults. Values may be Producers.
func WithData(data map[string]any) BuilderOption {
	return func(b *Builder) {
		b.data = mergeMaps(b.data, data)
	}
}

// WithDataProducer sets a lazily evaluated data default.
func WithDataProducer(key string, p Producer) BuilderOption {
	return func(b *Builder) {
		b.data[key] = p
	}
}

// WithCopyableData declares the data fields copied by From.
func WithCopyableData(keys ...string) BuilderOption {
	return func(b *Builder) {
		for _, k := range keys {
			if !slices.Contains(b.copyable, k) {
				b.copyable = append(b.copyable, k)
			}
		}
	}
}

// WithIDGenerator replaces the id generator used when no id header is set.
func WithIDGenerator(fn func() string) BuilderOption {
	return func(b *Builder) {
		if fn != nil {
			b.idGen = fn
		}
	}
}

// NewBuilder creates a builder of DefaultType with UUID ids.
func NewBuilder(opts ...BuilderOption) Builder {
	b := Builder{
		headers: map[string]any{},
		data:    map[string]any{},
		typ:     DefaultType,
		idGen:   NewUUID,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// FromEvent creates a builder that reproduces every header and data field
// of e under a fresh id, with parentId set to e's lineage.
func FromEvent(e *Event) Builder {
	b := NewBuilder(WithType(e.Type))
	b.data = copyMap(e.Data)
	b.headers[HeaderParentID] = e.Lineage()
	if len(e.ReplyTo) > 0 {
		b.headers[HeaderReplyTo] = copyStrings(e.ReplyTo)
	}
	if b.typ == "" {
		b.typ = DefaultType
	}
	return b
}

func (b Builder) clone() Builder {
	return Builder{
		headers:  copyMap(b.headers),
		data:     copyMap(b.data),
		typ:      b.typ,
		copyable: slices.Clone(b.copyable),
		idGen:    b.idGen,
	}
}

// With returns a new builder with opts applied on top of b.
func (b Builder) With(opts ...BuilderOption) Builder {
	nb := b.clone()
	for _, opt := range opts {
		opt(&nb)
	}
	return nb
}

// From returns a new builder that copies b's declared copyable fields present
// in e.Data. Unless b already declares a parentId, the new builder's parentId
// is e's lineage.
func (b Builder) From(e *Event) Builder {
	nb := b.clone()
	for _, k := range nb.copyable {
		if v, ok := e.Data[k]; ok && v != nil {
			nb.data[k] = copyValue(v)
		}
	}
	if _, ok := nb.headers[HeaderParentID]; !ok {
		nb.headers[HeaderParentID] = e.Lineage()
	}
	return nb
}

// Type returns the event type the builder produces.
func (b Builder) Type() string {
	return b.typ
}

// Create renders the builder into a new event. Overrides are merged over the
// data defaults before producers are evaluated.
func (b Builder) Create(overrides map[string]any) *Event {
	e := &Event{
		Type: b.typ,
		Data: renderData(mergeMaps(copyMap(b.data), overrides)),
	}
	if e.Type == "" {
		e.Type = DefaultType
	}

	if v, ok := render(b.headers[HeaderID]).(string); ok && v != "" {
		e.ID = v
	} else if b.idGen != nil {
		e.ID = b.idGen()
	} else {
		e.ID = NewUUID()
	}
	if v, ok := render(b.headers[HeaderParentID]).(string); ok {
		e.ParentID = v
	}
	switch v := render(b.headers[HeaderReplyTo]).(type) {
	case []string:
		e.ReplyTo = copyStrings(v)
	case string:
		if v != "" {
			e.ReplyTo = []string{v}
		}
	}
	return e
}

func render(v any) any {
	switch fn := v.(type) {
	case Producer:
		return fn()
	case func() any:
		return fn()
	case func() string:
		return fn()
	default:
		return v
	}
}

func renderData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if rv := render(v); rv != nil {
			out[k] = rv
		}
	}
	return out
}
