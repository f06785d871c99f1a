// Package lifecycle defines the notifications every eventflow stage emits
// and the observer registry used to receive them.
//
// A stage emits Received when an event arrives, then Processed or Delivered
// when its work completes, or Error when it fails. Some stages emit
// additional kinds (Accepted, Rejected, BatchReceived, BatchDelivered,
// Expired, StateChanged).
//
// Listeners are side-channel observers. They run synchronously in
// registration order; a listener panic is recovered and logged, and never
// changes what the stage returns.
//
//	f, _ := channel.NewFilter(pred, next)
//	f.On(lifecycle.Rejected, lifecycle.ListenerFunc(func(ctx context.Context, n lifecycle.Notification) {
//		log.Println("dropped", n.Event.ID)
//	}))
package lifecycle
