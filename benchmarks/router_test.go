package benchmarks

import (
	"context"
	"fmt"
	"testing"

	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/flow"
	"github.com/randalmurphal/eventflow/pkg/eventflow/router"
	"github.com/randalmurphal/eventflow/pkg/eventflow/strategy"
)

func routes(n int) map[string]any {
	m := make(map[string]any, n)
	for i := 0; i < n; i++ {
		m[fmt.Sprintf("Type%d", i)] = sink
	}
	return m
}

// BenchmarkRoute_ByType routes across 50 registered types.
func BenchmarkRoute_ByType(b *testing.B) {
	fn, err := flow.New("bench", flow.DefaultSettings()).BuildRoute(router.StoreConfig{
		Decider: func(e *event.Event) string { return e.Type },
		Routes:  routes(50),
	})
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	events := make([]*event.Event, 50)
	for i := range events {
		events[i] = event.NewTyped(fmt.Sprintf("Type%d", i), nil)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = fn(ctx, events[i%len(events)])
	}
}

// BenchmarkDispatch_RoundRobin spreads events over 4 handlers.
func BenchmarkDispatch_RoundRobin(b *testing.B) {
	settings := flow.DefaultSettings()
	settings.Strategy = strategy.NameRoundRobin
	fn, err := flow.New("bench", settings).BuildDispatch(sink, sink, sink, sink)
	if err != nil {
		b.Fatal(err)
	}
	runFlow(b, fn)
}

// BenchmarkDispatch_Parallel delivers every event to 4 handlers.
func BenchmarkDispatch_Parallel(b *testing.B) {
	fn, err := flow.New("bench", flow.DefaultSettings()).BuildDispatch(sink, sink, sink, sink)
	if err != nil {
		b.Fatal(err)
	}
	runFlow(b, fn)
}
