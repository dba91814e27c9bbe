package cmd

import (
	"context"
	"github.com/jd3nn1s/enginesim"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"time"
)

const serviceName = "enginesim"

// setupTelemetry exports cycle traces over OTLP/gRPC and frame counters
// over OTLP/HTTP. An empty endpoint leaves that signal on the no-op
// global provider.
func setupTelemetry(ctx context.Context, traceEndpoint, metricEndpoint string) ([]enginesim.Option, func(), error) {
	var opts []enginesim.Option
	var shutdowns []func(context.Context) error
	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, fn := range shutdowns {
			if err := fn(ctx); err != nil {
				log.WithError(err).Warn("unable to shut down telemetry exporter")
			}
		}
	}
	if traceEndpoint == "" && metricEndpoint == "" {
		return opts, shutdown, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to create telemetry resource")
	}

	if traceEndpoint != "" {
		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(traceEndpoint),
		)
		if err != nil {
			return nil, nil, errors.Wrap(err, "unable to create trace exporter")
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		shutdowns = append(shutdowns, tp.Shutdown)
		opts = append(opts, enginesim.WithTracerProvider(tp))
	}

	if metricEndpoint != "" {
		exporter, err := otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithInsecure(),
			otlpmetrichttp.WithEndpoint(metricEndpoint),
		)
		if err != nil {
			shutdown()
			return nil, nil, errors.Wrap(err, "unable to create metric exporter")
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(
				sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(time.Second)),
			),
		)
		shutdowns = append(shutdowns, mp.Shutdown)
		opts = append(opts, enginesim.WithMeterProvider(mp))
	}
	return opts, shutdown, nil
}
