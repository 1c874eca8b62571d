package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	dispatchJobs     metric.Int64Counter
	dispatchAttempts metric.Int64Counter
	unassignedLines  metric.Int64Counter
	probes           metric.Int64Counter
	probeDuration    metric.Float64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "printfan"
	}
	meter := provider.Meter(name)

	dispatchJobs, err := meter.Int64Counter("printfan_dispatch_jobs_total")
	if err != nil {
		return nil, err
	}
	dispatchAttempts, err := meter.Int64Counter("printfan_dispatch_attempts_total")
	if err != nil {
		return nil, err
	}
	unassignedLines, err := meter.Int64Counter("printfan_unassigned_lines_total")
	if err != nil {
		return nil, err
	}
	probes, err := meter.Int64Counter("printfan_health_probes_total")
	if err != nil {
		return nil, err
	}
	probeDuration, err := meter.Float64Histogram("printfan_health_probe_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		dispatchJobs:     dispatchJobs,
		dispatchAttempts: dispatchAttempts,
		unassignedLines:  unassignedLines,
		probes:           probes,
		probeDuration:    probeDuration,
	}, nil
}

// RecordDispatchJob counts one per-printer dispatch outcome.
func (m *Metrics) RecordDispatchJob(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.dispatchJobs.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDispatchAttempt counts individual transmit attempts.
func (m *Metrics) RecordDispatchAttempt(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.dispatchAttempts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordUnassignedLines counts order lines that no printer claimed.
func (m *Metrics) RecordUnassignedLines(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.unassignedLines.Add(ctx, int64(n))
}

// RecordProbe counts one health probe with its classification.
func (m *Metrics) RecordProbe(ctx context.Context, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("result", strings.TrimSpace(result)))
	m.probes.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.probeDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"outcome": {},
	"result":  {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
