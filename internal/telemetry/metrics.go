package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics bundles the client's instrument set. A nil *Metrics is valid and
// records nothing, so wiring stays optional.
type Metrics struct {
	framesReceived metric.Int64Counter
	framesDropped  metric.Int64Counter
	routed         metric.Int64Counter
	registrations  metric.Int64Counter
	fulfillments   metric.Int64Counter
	timeouts       metric.Int64Counter
	callLatency    metric.Float64Histogram
}

// NewMetrics creates the instrument set on the given provider, or on the
// global provider when nil.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter("tradewire")

	m := &Metrics{}
	var err error
	if m.framesReceived, err = meter.Int64Counter("tradewire.frames.received"); err != nil {
		return nil, fmt.Errorf("frames received counter: %w", err)
	}
	if m.framesDropped, err = meter.Int64Counter("tradewire.frames.dropped"); err != nil {
		return nil, fmt.Errorf("frames dropped counter: %w", err)
	}
	if m.routed, err = meter.Int64Counter("tradewire.envelopes.routed"); err != nil {
		return nil, fmt.Errorf("routed counter: %w", err)
	}
	if m.registrations, err = meter.Int64Counter("tradewire.pending.registrations"); err != nil {
		return nil, fmt.Errorf("registrations counter: %w", err)
	}
	if m.fulfillments, err = meter.Int64Counter("tradewire.pending.fulfillments"); err != nil {
		return nil, fmt.Errorf("fulfillments counter: %w", err)
	}
	if m.timeouts, err = meter.Int64Counter("tradewire.pending.timeouts"); err != nil {
		return nil, fmt.Errorf("timeouts counter: %w", err)
	}
	if m.callLatency, err = meter.Float64Histogram("tradewire.call.latency",
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("call latency histogram: %w", err)
	}
	return m, nil
}

// FrameReceived counts one inbound frame.
func (m *Metrics) FrameReceived(ctx context.Context) {
	if m == nil {
		return
	}
	m.framesReceived.Add(ctx, 1)
}

// FrameDropped counts one undecodable inbound frame.
func (m *Metrics) FrameDropped(ctx context.Context) {
	if m == nil {
		return
	}
	m.framesDropped.Add(ctx, 1)
}

// EnvelopeRouted counts one routed envelope by message name.
func (m *Metrics) EnvelopeRouted(ctx context.Context, name string) {
	if m == nil {
		return
	}
	m.routed.Add(ctx, 1, metric.WithAttributes(attribute.String("message", name)))
}

// Registered counts one pending-table registration.
func (m *Metrics) Registered(ctx context.Context) {
	if m == nil {
		return
	}
	m.registrations.Add(ctx, 1)
}

// Fulfilled counts one pending-table fulfilment.
func (m *Metrics) Fulfilled(ctx context.Context) {
	if m == nil {
		return
	}
	m.fulfillments.Add(ctx, 1)
}

// TimedOut counts one abandoned call.
func (m *Metrics) TimedOut(ctx context.Context) {
	if m == nil {
		return
	}
	m.timeouts.Add(ctx, 1)
}

// CallObserved records the latency of a completed call.
func (m *Metrics) CallObserved(ctx context.Context, name string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.callLatency.Record(ctx, float64(elapsed)/float64(time.Millisecond),
		metric.WithAttributes(attribute.String("message", name)))
}
