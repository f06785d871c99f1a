// Package event defines the Event value that flows through every eventflow
// stage, and the Builder used to construct, derive, and clone events while
// keeping correlation lineage intact.
//
// Events are value objects by convention. A stage that needs to change an
// event's payload clones it first; the caller's event is never modified in
// place.
//
// # Lineage
//
// Every event has an ID. Events derived from another event carry the
// original's ID (or the original's own ParentID, when it has one) in
// ParentID:
//
//	src := event.New(map[string]any{"order": 42})
//	derived := event.Clone(src)
//	// derived.ID != src.ID
//	// derived.ParentID == src.ID
//
// # Correlation
//
// ReplyTo is a stack of correlation ids. A request pushes its own id before
// it is dispatched; the reply side pops the top id to locate the pending
// request:
//
//	out := req.PushReplyTo(req.ID)
//	id, _ := reply.PopReplyTo()
//
// # Builders
//
// A Builder is an immutable template. With and From return new builders,
// so one builder can be shared as a template across goroutines:
//
//	orders := event.NewBuilder(
//		event.WithType("OrderPlaced"),
//		event.WithCopyableData("customer"),
//		event.WithDataProducer("placedAt", func() any { return time.Now() }),
//	)
//	evt := orders.From(src).Create(map[string]any{"total": 99})
package event
