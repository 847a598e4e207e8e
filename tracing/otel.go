package tracing

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// ConfigureTraceProvider installs a Jaeger-backed trace provider as the
// global one. With an empty endpoint tracing stays on but exports nowhere
// useful, which is fine for local runs.
func ConfigureTraceProvider(jaegerEndpoint string) *tracesdk.TracerProvider {
	var opts []jaeger.CollectorEndpointOption
	if jaegerEndpoint != "" {
		opts = append(opts, jaeger.WithEndpoint(jaegerEndpoint))
	}

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(opts...))
	if err != nil {
		panic(err)
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(
			resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceName("venuebook"),
			)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp
}

// PublisherDecorator injects the trace context into message metadata so the
// trace continues on the consumer side.
type PublisherDecorator struct {
	message.Publisher
}

func (d PublisherDecorator) Publish(topic string, messages ...*message.Message) error {
	for i := range messages {
		otel.GetTextMapPropagator().Inject(messages[i].Context(), propagation.MapCarrier(messages[i].Metadata))
	}
	return d.Publisher.Publish(topic, messages...)
}
