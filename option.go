package handrail

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/handrail/handrail/policy"
	"github.com/handrail/handrail/service/audit"
	"github.com/handrail/handrail/service/dispatch"
	"github.com/handrail/handrail/service/envelope"
	"github.com/handrail/handrail/service/event"
	"github.com/handrail/handrail/service/messaging"
	"github.com/handrail/handrail/service/pending"
	"github.com/handrail/handrail/service/subscriber"
	"github.com/handrail/handrail/tracing"
)

// Option customises the engine.
type Option func(s *Service)

// WithConfig sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithFrameQueue sets the queue the transport publishes raw frames into.
func WithFrameQueue(queue messaging.Queue[envelope.Frame]) Option {
	return func(s *Service) { s.frames = queue }
}

// WithPendingSet sets a pre-built pending set.
func WithPendingSet(set *pending.Service) Option {
	return func(s *Service) { s.pending = set }
}

// WithEndpoint sets the decision endpoint.
func WithEndpoint(endpoint dispatch.Endpoint) Option {
	return func(s *Service) { s.endpoint = endpoint }
}

// WithEventService sets the event service.
func WithEventService(service *event.Service) Option {
	return func(s *Service) { s.events = service }
}

// WithAuditStore sets the decision audit trail.
func WithAuditStore(store *audit.Store) Option {
	return func(s *Service) { s.audit = store }
}

// WithPolicy sets the auto-decision policy.
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithNotice installs the operator notice hook surfaced on transport
// degradation.
func WithNotice(notice subscriber.NoticeFunc) Option {
	return func(s *Service) { s.notice = notice }
}

// WithTracing configures OpenTelemetry tracing for the engine. If outputFile
// is empty the stdout exporter is used; otherwise traces are written to the
// supplied file path. Safe to call multiple times - the first successful
// initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter, enabling OTLP, Jaeger, Zipkin and similar integrations.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
