package tracing

import (
	"context"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	"google.golang.org/grpc/credentials"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var ServiceName = "FidoNext Connectivity Service"

const (
	Insecure = "true"
)

var (
	once     sync.Once
	initErr  error
	shutdown func(context.Context) error
)

func getAddress() string {
	if addr := os.Getenv("FIDONEXT_OTLP_ENDPOINT"); addr != "" {
		return addr
	}
	return "localhost:4317"
}

// InitTracer wires the OTLP gRPC exporter into the global tracer provider and
// returns a shutdown function. The exporter connects lazily, so this succeeds
// even when no collector is running.
func InitTracer() (func(context.Context) error, error) {
	secureOption := otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, ""))
	if len(Insecure) > 0 {
		secureOption = otlptracegrpc.WithInsecure()
	}

	exporter, err := otlptrace.New(
		context.Background(),
		otlptracegrpc.NewClient(
			secureOption,
			otlptracegrpc.WithEndpoint(getAddress()),
		),
	)
	if err != nil {
		return nil, err
	}

	resources, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", ServiceName),
			attribute.String("library.language", "go"),
		),
	)
	if err != nil {
		return nil, err
	}

	otel.SetTracerProvider(
		sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(resources),
		),
	)

	return exporter.Shutdown, nil
}

// Init is the idempotent entry point used by the external boundary; repeated
// calls return the first outcome.
func Init() error {
	once.Do(func() {
		shutdown, initErr = InitTracer()
	})
	return initErr
}

// Shutdown flushes the exporter set up by Init, if any.
func Shutdown(ctx context.Context) error {
	if shutdown == nil {
		return nil
	}
	return shutdown(ctx)
}
