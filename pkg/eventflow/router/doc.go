// Package router resolves destination endpoints for an event by name and
// fans the event out to them.
//
// A RouteStore asks a decider for route names, looks each name up, drops
// unknown names, and falls back to a default endpoint when nothing matched.
// A SingleUseRouteStore also removes every name it resolved, so each route
// is handed out once. An EventRouter sends each event to whatever its
// provider returns, through an execution strategy (parallel by default).
//
//	store, _ := router.NewRouteStore(router.StoreConfig{
//		Decider: func(e *event.Event) string { return e.Type },
//		Routes:  map[string]any{"Order": orders, "Refund": refunds},
//	})
//	r, _ := router.NewEventRouter(store)
//	_ = r.Send(ctx, evt)
package router
