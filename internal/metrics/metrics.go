package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/hperssn/steady/internal/assessment"
	"github.com/hperssn/steady/internal/runner"
)

const (
	serviceName    = "steady"
	serviceVersion = "1.0.0"
)

type Config struct {
	Endpoint string
	Insecure bool
}

// Metrics records assessment and guided session activity.
type Metrics struct {
	provider    *sdkmetric.MeterProvider
	assessments metric.Int64Counter
	safetyFlags metric.Int64Counter
	runEvents   metric.Int64Counter
	runDuration metric.Int64Histogram
}

// New exports to an OTLP collector when cfg.Endpoint is set. Without an
// endpoint measurements are recorded but never exported.
func New(ctx context.Context, cfg Config) (*Metrics, error) {
	var opts []sdkmetric.Option

	if cfg.Endpoint != "" {
		expOpts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
		}
		if cfg.Insecure {
			expOpts = append(expOpts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
			expOpts = append(expOpts, otlpmetricgrpc.WithInsecure())
		}

		exp, err := otlpmetricgrpc.New(ctx, expOpts...)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}
	opts = append(opts, sdkmetric.WithResource(res))

	m, err := newMetrics(sdkmetric.NewMeterProvider(opts...))
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(m.provider)
	return m, nil
}

// NewWithReader builds Metrics on a caller-supplied reader.
func NewWithReader(reader sdkmetric.Reader) (*Metrics, error) {
	return newMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
}

func newMetrics(provider *sdkmetric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(serviceName)

	assessments, err := meter.Int64Counter(
		"steady_assessments_scored_total",
		metric.WithDescription("Assessments scored"),
		metric.WithUnit("{assessment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating assessments counter: %w", err)
	}

	safetyFlags, err := meter.Int64Counter(
		"steady_safety_flags_total",
		metric.WithDescription("Assessments that raised the safety flag"),
		metric.WithUnit("{assessment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating safety flag counter: %w", err)
	}

	runEvents, err := meter.Int64Counter(
		"steady_run_events_total",
		metric.WithDescription("Guided session lifecycle events"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating run events counter: %w", err)
	}

	runDuration, err := meter.Int64Histogram(
		"steady_run_duration_seconds",
		metric.WithDescription("Seconds a run was ticking before it ended"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating run duration histogram: %w", err)
	}

	return &Metrics{
		provider:    provider,
		assessments: assessments,
		safetyFlags: safetyFlags,
		runEvents:   runEvents,
		runDuration: runDuration,
	}, nil
}

func (m *Metrics) RecordAssessment(ctx context.Context, report assessment.Report, saved bool) {
	m.assessments.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("saved", saved),
		attribute.Bool("complete", report.Answered == report.Total),
		attribute.String("depression_level", report.Depression.Level),
		attribute.String("anxiety_level", report.Anxiety.Level),
		attribute.String("wellbeing_level", report.Wellbeing.Level),
	))
	if report.SafetyFlag {
		m.safetyFlags.Add(ctx, 1)
	}
}

// ObserveRun is a runner.Observer. Per-second ticks are not counted.
func (m *Metrics) ObserveRun(_ string, ev runner.Event) {
	ctx := context.Background()

	switch ev.Kind {
	case runner.EventTick, runner.EventNone:
		return
	case runner.EventCompleted, runner.EventAborted:
		m.runDuration.Record(ctx, int64(ev.Snapshot.ElapsedSeconds), metric.WithAttributes(
			attribute.String("outcome", string(ev.Kind)),
		))
	}

	m.runEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(ev.Kind)),
	))
}

func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}
