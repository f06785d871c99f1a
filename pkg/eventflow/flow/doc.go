// Package flow chains eventflow stages into a single endpoint.
//
// A Builder records stages in the order an event passes through them and
// composes them back to front when Build is called, so each stage's handler
// is the stage after it and the last stage's handler is the final endpoint:
//
//	settings := flow.DefaultSettings()
//	fn, err := flow.New("orders", settings).
//	    Trap(deadLetters).
//	    Filter(isOrder).
//	    Tap(audit).
//	    Process(enrich).
//	    Split(lineItems).
//	    Build(fulfil)
//
// Every stage is named <flow>.<index>.<kind> ("orders.2.tap"). With
// WithObserver each stage reports to logging, metrics and tracing through
// observability.Instrument.
//
// Settings carries the stage defaults a flow applies before any per-stage
// option, and LoadSettings reads them from a config section. FromConfig
// builds a whole flow from configuration, looking stage components up by
// name in a Registry.
//
// A Builder is not safe for concurrent use while stages are being added.
// The endpoint returned by Build is.
package flow
