package enginesim

import (
	"context"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/jd3nn1s/enginesim"

type instruments struct {
	tracer trace.Tracer

	framesWritten metric.Int64Counter
	framesFailed  metric.Int64Counter
	cycles        metric.Int64Counter
}

func newInstruments(mp metric.MeterProvider, tp trace.TracerProvider) *instruments {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	meter := mp.Meter(instrumentationName)
	return &instruments{
		tracer: tp.Tracer(instrumentationName),
		framesWritten: newCounter(meter, "enginesim_frames_written",
			metric.WithDescription("frames accepted by the adapter")),
		framesFailed: newCounter(meter, "enginesim_frames_failed",
			metric.WithDescription("frames rejected by the adapter")),
		cycles: newCounter(meter, "enginesim_cycles",
			metric.WithDescription("transmission cycles run")),
	}
}

func newCounter(meter metric.Meter, name string, opts ...metric.Int64CounterOption) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, opts...)
	if err != nil {
		log.WithField("name", name).WithError(err).Warn("unable to create counter")
		return noop.Int64Counter{}
	}
	return counter
}

func (in *instruments) startCycle() (context.Context, trace.Span) {
	ctx, span := in.tracer.Start(context.Background(), "transmit cycle")
	in.cycles.Add(ctx, 1)
	return ctx, span
}

func (in *instruments) frameWritten(ctx context.Context, s Signal) {
	in.framesWritten.Add(ctx, 1, metric.WithAttributes(attribute.String("signal", s.String())))
}

func (in *instruments) frameFailed(ctx context.Context, s Signal) {
	in.framesFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("signal", s.String())))
}
