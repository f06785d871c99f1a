// Package channel provides the eventflow pipeline stages.
//
// Every stage accepts its collaborators as "a channel, a processor, a
// handler, or a bare function" (see package endpoint), emits lifecycle
// notifications (see package lifecycle), and exposes Send so it can itself
// be the collaborator of another stage:
//
//	sink := func(ctx context.Context, e *event.Event) error { return store(e) }
//	enrich, _ := channel.NewProcessing(enricher, sink)
//	orders, _ := channel.NewFilter(isOrder, enrich, channel.WithName("orders"))
//	_ = orders.Send(ctx, evt)
//
// # Failure policies
//
// Every failure emits lifecycle.Error before the stage decides what to do
// with it. The decision is fixed per stage:
//
//   - Filter swallows failures unless WithRethrow(true).
//   - Tap propagates tap handler failures unless WithRethrow(false); with
//     rethrow off the primary handler still runs. Primary handler failures
//     always propagate.
//   - ErrorTrap passes failures to its error handler and swallows them
//     unless WithRethrow(true).
//   - Processing, Splitter, and Aggregation always propagate.
//   - Promise propagates AlreadySettled on a second Send.
package channel
