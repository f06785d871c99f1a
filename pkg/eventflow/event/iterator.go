package event

import "context"

// Iterator provides pull-based access to a finite sequence of events.
type Iterator interface {
	// Next returns the next event. Returns (nil, false, nil) when exhausted.
	Next(ctx context.Context) (*Event, bool, error)
	// Close releases any resources held by the iterator.
	Close() error
}

// Slice returns an iterator over events.
func Slice(events ...*Event) Iterator {
	return &sliceIter{items: events}
}

type sliceIter struct {
	items []*Event
	pos   int
}

func (it *sliceIter) Next(ctx context.Context) (*Event, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if it.pos >= len(it.items) {
		return nil, false, nil
	}
	e := it.items[it.pos]
	it.pos++
	return e, true, nil
}

func (it *sliceIter) Close() error { return nil }

// IteratorFunc adapts a generator function to Iterator. The function follows
// the Next contract.
type IteratorFunc func(ctx context.Context) (*Event, bool, error)

// Next calls f.
func (f IteratorFunc) Next(ctx context.Context) (*Event, bool, error) {
	return f(ctx)
}

// Close is a no-op.
func (f IteratorFunc) Close() error { return nil }

// FromChannel returns an iterator that drains ch until it is closed.
func FromChannel(ch <-chan *Event) Iterator {
	return IteratorFunc(func(ctx context.Context) (*Event, bool, error) {
		select {
		case e, open := <-ch:
			if !open {
				return nil, false, nil
			}
			return e, true, nil
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	})
}

// Collect drains it into a slice and closes it.
func Collect(ctx context.Context, it Iterator) ([]*Event, error) {
	defer it.Close()
	var out []*Event
	for {
		e, ok, err := it.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, e)
	}
}
