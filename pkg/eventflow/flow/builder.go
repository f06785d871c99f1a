package flow

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/randalmurphal/eventflow/pkg/eventflow/channel"
	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	"github.com/randalmurphal/eventflow/pkg/eventflow/observability"
	"github.com/randalmurphal/eventflow/pkg/eventflow/reqreply"
	"github.com/randalmurphal/eventflow/pkg/eventflow/router"
)

// Stage kinds, as they appear in stage names and flow configuration.
const (
	KindFilter    = "filter"
	KindTap       = "tap"
	KindProcess   = "process"
	KindSplit     = "split"
	KindTrap      = "trap"
	KindAggregate = "aggregate"
	KindRequest   = "request"
)

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger passed to every stage.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithObserver instruments every stage with o.
func WithObserver(o observability.Observer) Option {
	return func(b *Builder) {
		b.observer = &o
	}
}

// stageFunc creates a stage that forwards to next. The result is any value
// endpoint.Resolve accepts.
type stageFunc func(name string, next endpoint.Func) (any, error)

type stage struct {
	kind  string
	build stageFunc
}

// Builder chains stages into one endpoint. Stages are listed in the order
// an event meets them.
type Builder struct {
	name     string
	settings Settings
	logger   *slog.Logger
	observer *observability.Observer

	stages   []stage
	requests []*reqreply.Processor
	closers  []io.Closer
	errs     []error
}

// New creates a Builder for the flow called name. Invalid settings are
// reported by Build.
func New(name string, settings Settings, opts ...Option) *Builder {
	if name == "" {
		name = "flow"
	}
	b := &Builder{name: name, settings: settings}
	for _, opt := range opts {
		opt(b)
	}
	if err := settings.Validate(); err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Name returns the flow name.
func (b *Builder) Name() string {
	return b.name
}

// Len returns the number of stages added so far.
func (b *Builder) Len() int {
	return len(b.stages)
}

func (b *Builder) stageName(index int, kind string) string {
	return fmt.Sprintf("%s.%d.%s", b.name, index, kind)
}

// channelOptions orders the generated name and flow defaults before the
// caller's options so the caller's win.
func (b *Builder) channelOptions(name string, defaults, extra []channel.Option) []channel.Option {
	opts := make([]channel.Option, 0, 2+len(defaults)+len(extra))
	opts = append(opts, channel.WithName(name))
	if b.logger != nil {
		opts = append(opts, channel.WithLogger(b.logger))
	}
	opts = append(opts, defaults...)
	return append(opts, extra...)
}

// rethrowOption applies a rethrow setting only when one is configured, so
// each stage otherwise keeps its own default.
func rethrowOption(rethrow *bool) []channel.Option {
	if rethrow == nil {
		return nil
	}
	return []channel.Option{channel.WithRethrow(*rethrow)}
}

func (b *Builder) add(kind string, build stageFunc) *Builder {
	b.stages = append(b.stages, stage{kind: kind, build: build})
	return b
}

// Filter adds a channel.Filter. Rejected events go to the Filter's
// rejection handler, a Null channel unless overridden.
func (b *Builder) Filter(predicate any, opts ...channel.Option) *Builder {
	return b.add(KindFilter, func(name string, next endpoint.Func) (any, error) {
		defaults := rethrowOption(b.settings.FilterRethrow)
		return channel.NewFilter(predicate, next, b.channelOptions(name, defaults, opts)...)
	})
}

// Tap adds a channel.Tap that hands every event to tap before the rest of
// the flow.
func (b *Builder) Tap(tap any, opts ...channel.Option) *Builder {
	return b.add(KindTap, func(name string, next endpoint.Func) (any, error) {
		defaults := rethrowOption(b.settings.TapRethrow)
		return channel.NewTap(tap, next, b.channelOptions(name, defaults, opts)...)
	})
}

// Process adds a channel.Processing stage. The rest of the flow receives
// the processor's result.
func (b *Builder) Process(processor any, opts ...channel.Option) *Builder {
	return b.add(KindProcess, func(name string, next endpoint.Func) (any, error) {
		return channel.NewProcessing(processor, next, b.channelOptions(name, nil, opts)...)
	})
}

// Split adds a channel.Splitter. The rest of the flow receives each item.
func (b *Builder) Split(splitter any, opts ...channel.Option) *Builder {
	return b.add(KindSplit, func(name string, next endpoint.Func) (any, error) {
		defaults := []channel.Option{
			channel.WithBatchSize(b.settings.BatchSize),
			channel.WithStrategy(b.settings.Strategy),
		}
		return channel.NewSplitter(splitter, next, b.channelOptions(name, defaults, opts)...)
	})
}

// Trap adds a channel.ErrorTrap that passes failures of the rest of the
// flow to errorHandler.
func (b *Builder) Trap(errorHandler any, opts ...channel.Option) *Builder {
	return b.add(KindTrap, func(name string, next endpoint.Func) (any, error) {
		defaults := append([]channel.Option{channel.WithErrorHandler(errorHandler)},
			rethrowOption(b.settings.TrapRethrow)...)
		return channel.NewErrorTrap(next, b.channelOptions(name, defaults, opts)...)
	})
}

// Aggregate adds a channel.Aggregation. cfg.Handler is replaced by the rest
// of the flow, which receives the aggregate events. Close stops the
// aggregation's timers.
func (b *Builder) Aggregate(cfg channel.AggregationConfig, opts ...channel.Option) *Builder {
	return b.add(KindAggregate, func(name string, next endpoint.Func) (any, error) {
		cfg.Handler = next
		defaults := []channel.Option{channel.WithTimeout(b.settings.AggregationTimeout)}
		agg, err := channel.NewAggregation(cfg, b.channelOptions(name, defaults, opts)...)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, agg)
		return agg, nil
	})
}

// Request adds a request/reply stage: each event is cloned, sent to
// outbound, and the reply is forwarded to the rest of the flow. Replies
// must be delivered to the endpoint returned by Replies.
func (b *Builder) Request(outbound any, opts ...reqreply.Option) *Builder {
	name := b.stageName(len(b.stages), KindRequest)
	base := []reqreply.Option{
		reqreply.WithName(name + ".outbound"),
		reqreply.WithTimeout(b.settings.RequestTimeout),
	}
	if b.logger != nil {
		base = append(base, reqreply.WithLogger(b.logger))
	}
	if b.observer != nil {
		base = append(base, reqreply.WithListener(b.observer.Listener()))
	}

	p, perr := reqreply.NewProcessor(outbound, append(base, opts...)...)
	if perr == nil {
		b.requests = append(b.requests, p)
		b.observePending(name, p)
	}
	return b.add(KindRequest, func(name string, next endpoint.Func) (any, error) {
		if perr != nil {
			return nil, perr
		}
		return channel.NewProcessing(p, next, b.channelOptions(name, nil, nil)...)
	})
}

// observePending reports p's outstanding requests through the observer's
// metrics until Close.
func (b *Builder) observePending(stage string, p *reqreply.Processor) {
	if b.observer == nil || b.observer.Metrics == nil {
		return
	}
	unregister, err := b.observer.Metrics.ObservePending(stage, p.Pending)
	if err != nil {
		logger := b.logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("pending requests gauge not registered",
			slog.String("stage", stage),
			slog.String("error", err.Error()),
		)
		return
	}
	b.closers = append(b.closers, closeFunc(unregister))
}

type closeFunc func()

func (f closeFunc) Close() error {
	f()
	return nil
}

// Replies returns the endpoint that settles pending requests of every
// Request stage. A reply whose correlation id is unknown fails with
// *errors.CorrelationNotFoundError.
func (b *Builder) Replies() endpoint.Channel {
	requests := slices.Clone(b.requests)
	return replyDispatcher(requests)
}

// Build composes the stages in front of final and returns the flow's entry
// endpoint. Every stage failure is reported, joined into one error.
func (b *Builder) Build(final any) (endpoint.Func, error) {
	next, err := endpoint.Resolve(final, nil)
	if err != nil {
		return nil, fmt.Errorf("flow %s: final endpoint: %w", b.name, err)
	}
	return b.compose(next)
}

// BuildRoute ends the flow in an EventRouter over a RouteStore built from
// cfg, using the configured strategy.
func (b *Builder) BuildRoute(cfg router.StoreConfig, opts ...router.Option) (endpoint.Func, error) {
	store, err := router.NewRouteStore(cfg, b.routerOptions("routes", nil)...)
	if err != nil {
		return nil, fmt.Errorf("flow %s: route store: %w", b.name, err)
	}
	return b.buildRouter(store, opts)
}

// BuildDispatch ends the flow in an EventRouter that sends every event to
// all handlers, using the configured strategy.
func (b *Builder) BuildDispatch(handlers ...any) (endpoint.Func, error) {
	provider, err := router.NewDispatchRouteProvider(handlers...)
	if err != nil {
		return nil, fmt.Errorf("flow %s: dispatch: %w", b.name, err)
	}
	return b.buildRouter(provider, nil)
}

func (b *Builder) routerOptions(suffix string, extra []router.Option) []router.Option {
	opts := []router.Option{router.WithName(b.name + "." + suffix)}
	if b.logger != nil {
		opts = append(opts, router.WithLogger(b.logger))
	}
	return append(opts, extra...)
}

func (b *Builder) buildRouter(provider any, extra []router.Option) (endpoint.Func, error) {
	defaults := []router.Option{router.WithStrategy(b.settings.Strategy)}
	r, err := router.NewEventRouter(provider, b.routerOptions("router", append(defaults, extra...))...)
	if err != nil {
		return nil, fmt.Errorf("flow %s: router: %w", b.name, err)
	}
	next, err := b.instrument(r)
	if err != nil {
		return nil, fmt.Errorf("flow %s: router: %w", b.name, err)
	}
	return b.compose(next)
}

func (b *Builder) compose(next endpoint.Func) (endpoint.Func, error) {
	errs := slices.Clone(b.errs)
	for i := len(b.stages) - 1; i >= 0; i-- {
		st := b.stages[i]
		name := b.stageName(i, st.kind)

		target, err := st.build(name, next)
		if err != nil {
			errs = append(errs, fmt.Errorf("stage %s: %w", name, err))
			continue
		}
		fn, err := b.instrument(target)
		if err != nil {
			errs = append(errs, fmt.Errorf("stage %s: %w", name, err))
			continue
		}
		next = fn
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("flow %s: %w", b.name, err)
	}
	return next, nil
}

func (b *Builder) instrument(target any) (endpoint.Func, error) {
	if b.observer == nil {
		return endpoint.Resolve(target, nil)
	}
	// Stages live as long as the flow, so the listener is never detached.
	fn, _, err := observability.Instrument(target, *b.observer)
	return fn, err
}

// Close releases stage resources such as aggregation timers and the
// pending requests gauge.
func (b *Builder) Close() error {
	var errs []error
	for _, c := range b.closers {
		errs = append(errs, c.Close())
	}
	b.closers = nil
	return errors.Join(errs...)
}
