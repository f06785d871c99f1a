// Package pubsub moves events over Watermill publishers and subscribers.
//
// Channel publishes every event it receives as a Watermill message whose
// UUID is the event id and whose payload is the event's JSON form. Consumer
// subscribes to a topic and delivers each decoded message to an endpoint,
// acking on success.
//
// Any Watermill backend works. The in-process gochannel Pub/Sub is enough
// to connect two flows in one process:
//
//	ps := gochannel.NewGoChannel(gochannel.Config{}, pubsub.Logger(logger))
//	out, _ := pubsub.NewChannel(pubsub.Config{Publisher: ps, Topic: "orders"})
//	in, _ := pubsub.NewConsumer(ps, "orders", ordersFlow)
//	_ = in.Start(ctx)
package pubsub
