package metrics

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cartpool/marketplace-api/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// AppMetrics holds all application metrics
type AppMetrics struct {
	// HTTP Metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestsErrors  metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Database Metrics
	DBQueriesTotal  metric.Int64Counter
	DBQueryDuration metric.Float64Histogram

	// Business Metrics
	CartsCreated     metric.Int64Counter
	CartJoins        metric.Int64Counter
	CartItemsAdded   metric.Int64Counter
	ThresholdReached metric.Int64Counter
	OrdersPlaced     metric.Int64Counter
	RevenueTotal     metric.Float64Counter
	ProductsViewed   metric.Int64Counter
	ProductsAdded    metric.Int64Counter
	OpenCartsCount   metric.Int64Gauge

	// Auth Metrics
	SignUps        metric.Int64Counter
	SignIns        metric.Int64Counter
	ActiveSessions metric.Int64Gauge

	// Cache Metrics
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	serviceName string
}

// InitMetrics sets up the OTLP/HTTP meter provider and the application instruments
func InitMetrics(ctx context.Context, cfg *config.Config) (*AppMetrics, *sdkmetric.MeterProvider, error) {
	res, err := NewResource(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	exporterOpts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.OTELExporterOTLPEndpoint),
		otlpmetrichttp.WithURLPath("/v1/metrics"),
	}
	if cfg.OTELExporterOTLPHeaders != "" {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithHeaders(parseHeaders(cfg.OTELExporterOTLPHeaders)))
	}
	if cfg.OTELExporterOTLPInsecure {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))),
	)
	otel.SetMeterProvider(meterProvider)

	log.Printf("[METRICS] Exporting every 10s to %s/v1/metrics (insecure=%t)",
		cfg.OTELExporterOTLPEndpoint, cfg.OTELExporterOTLPInsecure)

	m, err := NewAppMetrics(meterProvider.Meter(cfg.OTELServiceName), cfg.OTELServiceName)
	if err != nil {
		return nil, nil, err
	}
	return m, meterProvider, nil
}

// NewResource describes this service for both metrics and traces. Explicit
// attributes take precedence over OTEL_RESOURCE_ATTRIBUTES.
func NewResource(ctx context.Context, cfg *config.Config) (*resource.Resource, error) {
	envRes, err := resource.New(ctx, resource.WithFromEnv())
	if err != nil {
		envRes = resource.Empty()
	}

	explicitRes, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.OTELServiceName),
			semconv.ServiceVersion(cfg.OTELServiceVersion),
			attribute.String("deployment.environment", cfg.OTELDeploymentEnvironment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create explicit resource: %w", err)
	}

	res, err := resource.Merge(envRes, explicitRes)
	if err != nil {
		return nil, fmt.Errorf("failed to merge resources: %w", err)
	}
	return res, nil
}

// NewAppMetrics creates every instrument on meter
func NewAppMetrics(meter metric.Meter, serviceName string) (*AppMetrics, error) {
	// SigNoz default histogram buckets in milliseconds, expanded to 60s
	buckets := []float64{2, 4, 6, 8, 10, 50, 100, 200, 400, 800, 1000, 1400, 2000, 5000, 10000, 15000, 20000, 30000, 45000, 60000}

	m := &AppMetrics{serviceName: serviceName}
	b := builder{meter: meter}

	m.HTTPRequestsTotal = b.counter("http.server.request.count", "Total number of HTTP requests")
	m.HTTPRequestsErrors = b.counter("http.server.request.error.count", "Total number of HTTP error requests")
	m.HTTPRequestDuration = b.histogram("http.server.request.duration", "HTTP request duration in milliseconds", buckets)
	m.DBQueriesTotal = b.counter("db.client.queries.count", "Total number of database queries")
	m.DBQueryDuration = b.histogram("db.client.queries.duration", "Database query duration in milliseconds", buckets)

	m.CartsCreated = b.counter("carts_created_total", "Total number of pooled carts opened")
	m.CartJoins = b.counter("cart_joins_total", "Total number of buyers joining carts")
	m.CartItemsAdded = b.counter("cart_items_added_total", "Total number of line items contributed to carts")
	m.ThresholdReached = b.counter("cart_threshold_reached_total", "Carts that crossed their minimum value")
	m.OrdersPlaced = b.counter("cart_orders_placed_total", "Total number of carts placed with vendors")
	m.ProductsViewed = b.counter("products_viewed_total", "Total number of product views")
	m.ProductsAdded = b.counter("products_added_total", "Total number of products listed")
	m.SignUps = b.counter("auth_signups_total", "Total number of sign-ups")
	m.SignIns = b.counter("auth_signins_total", "Total number of sign-in attempts")
	m.CacheHits = b.counter("cache_hits_total", "Total number of cache hits")
	m.CacheMisses = b.counter("cache_misses_total", "Total number of cache misses")

	if b.err == nil {
		m.RevenueTotal, b.err = meter.Float64Counter("revenue_total",
			metric.WithDescription("Value of carts placed with vendors"),
			metric.WithUnit("INR"))
	}
	if b.err == nil {
		m.OpenCartsCount, b.err = meter.Int64Gauge("open_carts_count",
			metric.WithDescription("Number of carts still collecting contributions"),
			metric.WithUnit("1"))
	}
	if b.err == nil {
		m.ActiveSessions, b.err = meter.Int64Gauge("auth_active_sessions",
			metric.WithDescription("Unexpired sessions held in the session store"),
			metric.WithUnit("1"))
	}

	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

// builder stops creating instruments after the first error
type builder struct {
	meter metric.Meter
	err   error
}

func (b *builder) counter(name, description string) metric.Int64Counter {
	if b.err != nil {
		return nil
	}
	c, err := b.meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit("1"))
	if err != nil {
		b.err = fmt.Errorf("failed to create %s counter: %w", name, err)
	}
	return c
}

func (b *builder) histogram(name, description string, buckets []float64) metric.Float64Histogram {
	if b.err != nil {
		return nil
	}
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(description),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	if err != nil {
		b.err = fmt.Errorf("failed to create %s histogram: %w", name, err)
	}
	return h
}

// WithServiceName adds service.name to attributes
func (m *AppMetrics) WithServiceName(attrs []attribute.KeyValue) []attribute.KeyValue {
	return append(attrs, attribute.String("service.name", m.serviceName))
}

// Attrs is shorthand for metric.WithAttributes with service.name appended
func (m *AppMetrics) Attrs(attrs ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(m.WithServiceName(attrs)...)
}

// RecordDBQuery records database query metrics including the SQL statement
func (m *AppMetrics) RecordDBQuery(ctx context.Context, operation, table, statement string, start time.Time, success bool) {
	duration := time.Since(start).Milliseconds()

	status := "success"
	if !success {
		status = "error"
	}

	opt := m.Attrs(
		attribute.String("db.operation", operation),
		attribute.String("db.sql.table", table),
		attribute.String("db.statement", statement),
		attribute.String("db.system", "mysql"),
		attribute.String("status", status),
	)

	m.DBQueriesTotal.Add(ctx, 1, opt)
	m.DBQueryDuration.Record(ctx, float64(duration), opt)
}

// parseHeaders parses "key1=value1,key2=value2"
func parseHeaders(headerStr string) map[string]string {
	headers := make(map[string]string)
	if headerStr == "" {
		return headers
	}

	for _, pair := range strings.Split(headerStr, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return headers
}
