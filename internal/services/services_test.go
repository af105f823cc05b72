package services

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cartpool/marketplace-api/internal/db"
	"github.com/cartpool/marketplace-api/internal/metrics"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*db.DB, sqlmock.Sqlmock, *metrics.AppMetrics) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	m, err := metrics.NewAppMetrics(noop.NewMeterProvider().Meter("test"), "cartpool-test")
	require.NoError(t, err)

	return db.Wrap(sqlDB), mock, m
}

func q(fragment string) string {
	return regexp.QuoteMeta(fragment)
}

var cartColumns = []string{
	"id", "title", "description", "status", "min_value", "current_value", "location",
	"latitude", "longitude", "vendor_id", "created_by", "created_at", "updated_at",
	"participants", "vendor_name", "vendor_location",
}

func cartRow(id, status string, minValue, current float64) *sqlmock.Rows {
	return sqlmock.NewRows(cartColumns).AddRow(
		id, "Office snacks", nil, status, minValue, current, "Andheri", nil, nil,
		"v1", "u1", fixedNow, fixedNow, int64(2), "FreshMart", "Mumbai",
	)
}

var productColumns = []string{
	"id", "vendor_id", "name", "description", "price", "unit", "min_order", "category",
	"in_stock", "image_url", "created_at", "updated_at", "vendor_name", "vendor_location",
	"vendor_lat", "vendor_lng",
}

var vendorColumnNames = []string{
	"id", "name", "category", "location", "latitude", "longitude", "rating",
	"products_count", "created_at", "updated_at",
}
