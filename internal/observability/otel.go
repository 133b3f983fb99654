package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"atscheck/internal/analyzer"
	"atscheck/internal/config"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// ObservabilityConfig holds configuration for observability
type ObservabilityConfig struct {
	ServiceName     string
	ServiceVersion  string
	ServiceInstance string
	Enabled         bool
	MetricsEnabled  bool
	ConsoleOutput   bool
	PrettyPrint     bool
	SampleRate      float64
	Prometheus      PrometheusConfig
}

// Metrics holds all custom metrics for atscheck
type Metrics struct {
	// Analysis metrics
	AnalysisDuration metric.Float64Histogram
	AnalysesTotal    metric.Int64Counter
	AnalysisErrors   metric.Int64Counter
	Scores           metric.Int64Histogram
	DocumentBytes    metric.Int64Histogram
	DocumentPages    metric.Int64Histogram

	// Certificate metrics
	CertReloadCount metric.Int64Counter
	CertExpiryTime  metric.Float64Gauge

	// Rate limiting metrics
	RateLimitHits metric.Int64Counter
}

// ObservabilityManager manages OpenTelemetry setup
type ObservabilityManager struct {
	config         ObservabilityConfig
	fullConfig     *config.Config // nested toggles such as customMetrics and otlp
	resource       *resource.Resource
	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	manualReader   *sdkmetric.ManualReader
	metrics        *Metrics
	shutdownFuncs  []func(context.Context) error
}

// NewObservabilityManager creates a new observability manager
func NewObservabilityManager(obsConfig ObservabilityConfig, fullConfig *config.Config) (*ObservabilityManager, error) {
	if !obsConfig.Enabled {
		return &ObservabilityManager{config: obsConfig, fullConfig: fullConfig}, nil
	}

	om := &ObservabilityManager{
		config:        obsConfig,
		fullConfig:    fullConfig,
		shutdownFuncs: make([]func(context.Context) error, 0),
	}

	if err := om.initResource(); err != nil {
		return nil, fmt.Errorf("failed to initialize resource: %w", err)
	}

	if err := om.initTracing(); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if obsConfig.MetricsEnabled {
		if err := om.initMetrics(); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	return om, nil
}

// initResource creates the OpenTelemetry resource shared by traces and metrics
func (om *ObservabilityManager) initResource() error {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(om.config.ServiceName),
			semconv.ServiceVersion(om.config.ServiceVersion),
			attribute.String("service.instance.id", om.getServiceInstanceID()),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}
	om.resource = res
	return nil
}

// initTracing sets up OpenTelemetry tracing
func (om *ObservabilityManager) initTracing() error {
	var exporter trace.SpanExporter
	var err error

	switch {
	case om.config.ConsoleOutput:
		opts := []stdouttrace.Option{}
		if om.config.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exporter, err = stdouttrace.New(opts...)
	case om.otlpEnabled():
		exporter, err = om.createOTLPExporter()
	default:
		exporter = &noOpSpanExporter{}
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(om.resource),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(om.config.SampleRate))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	om.tracerProvider = tp
	om.shutdownFuncs = append(om.shutdownFuncs, tp.Shutdown)

	return nil
}

// initMetrics sets up OpenTelemetry metrics
func (om *ObservabilityManager) initMetrics() error {
	readers, err := om.setupMetricReaders()
	if err != nil {
		return err
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(om.resource)}
	for _, reader := range readers {
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(opts...)

	otel.SetMeterProvider(mp)
	om.meterProvider = mp
	om.shutdownFuncs = append(om.shutdownFuncs, mp.Shutdown)

	return om.initCustomMetrics()
}

// setupMetricReaders sets up all metric readers based on configuration
func (om *ObservabilityManager) setupMetricReaders() ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader

	if err := om.setupConsoleReader(&readers); err != nil {
		return nil, err
	}

	if err := om.setupOTLPReader(&readers); err != nil {
		return nil, err
	}

	if err := om.setupPrometheusReader(&readers); err != nil {
		return nil, err
	}

	// Nothing exports: keep a manual reader so instruments still aggregate
	// and can be collected on demand.
	if len(readers) == 0 {
		om.manualReader = sdkmetric.NewManualReader()
		readers = append(readers, om.manualReader)
	}

	return readers, nil
}

// setupConsoleReader sets up console metric reader if enabled
func (om *ObservabilityManager) setupConsoleReader(readers *[]sdkmetric.Reader) error {
	if !om.config.ConsoleOutput {
		return nil
	}

	exporter, err := stdoutmetric.New()
	if err != nil {
		return fmt.Errorf("failed to create console metric exporter: %w", err)
	}

	interval := om.getMetricsCollectionInterval()
	*readers = append(*readers, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)))
	return nil
}

// setupOTLPReader sets up OTLP metric reader if enabled
func (om *ObservabilityManager) setupOTLPReader(readers *[]sdkmetric.Reader) error {
	if !om.otlpEnabled() {
		return nil
	}

	otlpReader, err := om.createOTLPMetricsReader()
	if err != nil {
		return fmt.Errorf("failed to create OTLP metrics reader: %w", err)
	}
	*readers = append(*readers, otlpReader)
	return nil
}

// setupPrometheusReader sets up Prometheus metric reader if enabled
func (om *ObservabilityManager) setupPrometheusReader(readers *[]sdkmetric.Reader) error {
	if !om.config.Prometheus.Enabled {
		return nil
	}

	prometheusReader, prometheusMux, err := SetupPrometheusExporter(om.config.Prometheus)
	if err != nil {
		return fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}
	if prometheusReader == nil {
		return nil
	}
	*readers = append(*readers, prometheusReader)

	srv, err := StartPrometheusServer(prometheusMux, om.config.Prometheus.Port)
	if err != nil {
		return fmt.Errorf("failed to start Prometheus server: %w", err)
	}
	om.shutdownFuncs = append(om.shutdownFuncs, srv.Shutdown)
	return nil
}

// initCustomMetrics creates all custom metrics for atscheck
func (om *ObservabilityManager) initCustomMetrics() error {
	meter := om.meterProvider.Meter(om.config.ServiceName)
	om.metrics = &Metrics{}

	if err := om.createAnalysisMetrics(meter); err != nil {
		return err
	}

	if err := om.createCertificateMetrics(meter); err != nil {
		return err
	}

	return om.createRateLimitMetrics(meter)
}

// createAnalysisMetrics creates metrics describing analyzed documents
func (om *ObservabilityManager) createAnalysisMetrics(meter metric.Meter) error {
	var err error

	om.metrics.AnalysisDuration, err = meter.Float64Histogram(
		"atscheck_analysis_duration_seconds",
		metric.WithDescription("Time spent extracting and analyzing a document"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis duration metric: %w", err)
	}

	om.metrics.AnalysesTotal, err = meter.Int64Counter(
		"atscheck_analyses_total",
		metric.WithDescription("Total number of analyzed documents"),
	)
	if err != nil {
		return fmt.Errorf("failed to create analyses count metric: %w", err)
	}

	om.metrics.AnalysisErrors, err = meter.Int64Counter(
		"atscheck_analysis_errors_total",
		metric.WithDescription("Total number of documents that could not be analyzed"),
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis error metric: %w", err)
	}

	om.metrics.Scores, err = meter.Int64Histogram(
		"atscheck_analysis_score",
		metric.WithDescription("Overall ATS score of analyzed documents"),
		metric.WithExplicitBucketBoundaries(10, 20, 30, 40, 50, 60, 70, 80, 90, 100),
	)
	if err != nil {
		return fmt.Errorf("failed to create score metric: %w", err)
	}

	om.metrics.DocumentBytes, err = meter.Int64Histogram(
		"atscheck_document_size_bytes",
		metric.WithDescription("Size of uploaded documents"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return fmt.Errorf("failed to create document size metric: %w", err)
	}

	om.metrics.DocumentPages, err = meter.Int64Histogram(
		"atscheck_document_pages",
		metric.WithDescription("Page count of analyzed documents"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 4, 6, 8),
	)
	if err != nil {
		return fmt.Errorf("failed to create document pages metric: %w", err)
	}

	return nil
}

// createCertificateMetrics creates certificate-related metrics
func (om *ObservabilityManager) createCertificateMetrics(meter metric.Meter) error {
	var err error

	om.metrics.CertReloadCount, err = meter.Int64Counter(
		"atscheck_cert_reloads_total",
		metric.WithDescription("Total number of certificate reloads"),
	)
	if err != nil {
		return fmt.Errorf("failed to create certificate reload count metric: %w", err)
	}

	om.metrics.CertExpiryTime, err = meter.Float64Gauge(
		"atscheck_cert_expiry_seconds",
		metric.WithDescription("Seconds until certificate expiry"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create certificate expiry time metric: %w", err)
	}

	return nil
}

// createRateLimitMetrics creates rate limiting metrics
func (om *ObservabilityManager) createRateLimitMetrics(meter metric.Meter) error {
	var err error

	om.metrics.RateLimitHits, err = meter.Int64Counter(
		"atscheck_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return nil
}

// HTTPMiddleware returns HTTP middleware with OpenTelemetry instrumentation
func (om *ObservabilityManager) HTTPMiddleware() func(http.Handler) http.Handler {
	if !om.config.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}

	opts := []otelhttp.Option{otelhttp.WithTracerProvider(om.tracerProvider)}
	if om.meterProvider != nil {
		opts = append(opts, otelhttp.WithMeterProvider(om.meterProvider))
	}
	return otelhttp.NewMiddleware(om.config.ServiceName, opts...)
}

// Shutdown gracefully shuts down all observability components
func (om *ObservabilityManager) Shutdown(ctx context.Context) error {
	for _, shutdown := range om.shutdownFuncs {
		if err := shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ObserveAnalysis records one analysis outcome.
func (om *ObservabilityManager) ObserveAnalysis(ctx context.Context, r analyzer.Report) {
	if om == nil || om.metrics == nil || !om.analysisMetricsEnabled() {
		return
	}
	m := om.metrics
	custom := om.analysisToggles()

	attrs := []attribute.KeyValue{
		attribute.String("extension", r.Extension),
		attribute.Bool("success", r.ErrorCode == ""),
	}
	if r.Extractor != "" {
		attrs = append(attrs, attribute.String("extractor", r.Extractor))
	}
	set := metric.WithAttributes(attrs...)

	m.AnalysesTotal.Add(ctx, 1, set)
	if custom.TrackDuration {
		m.AnalysisDuration.Record(ctx, r.Duration.Seconds(), set)
	}
	if custom.TrackSizes {
		m.DocumentBytes.Record(ctx, int64(r.Bytes), set)
	}

	if r.ErrorCode != "" {
		m.AnalysisErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("extension", r.Extension),
			attribute.String("code", r.ErrorCode),
		))
		return
	}

	if custom.TrackSizes {
		m.DocumentPages.Record(ctx, int64(r.Pages), set)
	}
	if custom.TrackScores {
		m.Scores.Record(ctx, int64(r.Score), metric.WithAttributes(
			attribute.String("grade", r.Grade),
			attribute.Bool("ats_friendly", r.ATSFriendly),
			attribute.Bool("scanned", r.Scanned),
			attribute.Bool("columns", r.Columns),
		))
	}
}

// RecordRateLimitHit counts a rejected request.
func (om *ObservabilityManager) RecordRateLimitHit(ctx context.Context, path string) {
	if om == nil || om.metrics == nil || om.metrics.RateLimitHits == nil {
		return
	}
	m := om.metrics
	// Rate limiting is an infrastructure metric
	if om.fullConfig != nil {
		infra := om.fullConfig.Observability.CustomMetrics.Infrastructure
		if !infra.Enabled || !infra.TrackRateLimits {
			return
		}
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
}

// RecordCertReload counts a certificate reload and publishes the new expiry.
func (om *ObservabilityManager) RecordCertReload(ctx context.Context, success bool, notAfter time.Time) {
	if om == nil || om.metrics == nil || om.metrics.CertReloadCount == nil {
		return
	}
	m := om.metrics
	if om.fullConfig != nil {
		infra := om.fullConfig.Observability.CustomMetrics.Infrastructure
		if !infra.Enabled || !infra.TrackCertReload {
			return
		}
	}
	m.CertReloadCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
	if success && !notAfter.IsZero() {
		m.CertExpiryTime.Record(ctx, time.Until(notAfter).Seconds())
	}
}

func (om *ObservabilityManager) analysisMetricsEnabled() bool {
	if om.fullConfig == nil {
		return true
	}
	return om.fullConfig.Observability.CustomMetrics.Analysis.Enabled
}

func (om *ObservabilityManager) analysisToggles() config.AnalysisMetricsConfig {
	if om.fullConfig == nil {
		return config.AnalysisMetricsConfig{Enabled: true, TrackDuration: true, TrackScores: true, TrackSizes: true}
	}
	return om.fullConfig.Observability.CustomMetrics.Analysis
}

func (om *ObservabilityManager) otlpEnabled() bool {
	return om.fullConfig != nil && om.fullConfig.Observability.OTLP.Enabled
}

// No-op exporter for when no trace destination is configured
type noOpSpanExporter struct{}

func (n *noOpSpanExporter) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	return nil
}

func (n *noOpSpanExporter) Shutdown(ctx context.Context) error {
	return nil
}

// createOTLPExporter creates an OTLP HTTP trace exporter
func (om *ObservabilityManager) createOTLPExporter() (trace.SpanExporter, error) {
	otlpConfig := om.fullConfig.Observability.OTLP

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(otlpConfig.Endpoint),
	}
	if otlpConfig.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	return exporter, nil
}

// createOTLPMetricsReader creates an OTLP HTTP metrics reader
func (om *ObservabilityManager) createOTLPMetricsReader() (sdkmetric.Reader, error) {
	otlpConfig := om.fullConfig.Observability.OTLP

	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpointURL(otlpConfig.Endpoint),
	}
	if otlpConfig.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	interval := om.getMetricsCollectionInterval()
	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)), nil
}

// getServiceInstanceID returns the service instance ID from config or a fixed fallback
func (om *ObservabilityManager) getServiceInstanceID() string {
	if om.config.ServiceInstance != "" {
		return om.config.ServiceInstance
	}
	return om.config.ServiceName + "-1"
}

// getMetricsCollectionInterval returns the configured metrics collection interval
func (om *ObservabilityManager) getMetricsCollectionInterval() time.Duration {
	if om.fullConfig != nil && om.fullConfig.Observability.Metrics.CollectionInterval > 0 {
		return om.fullConfig.Observability.Metrics.CollectionInterval
	}
	return 15 * time.Second
}
