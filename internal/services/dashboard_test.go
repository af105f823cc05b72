package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cartpool/marketplace-api/internal/sampledata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDashboard(t *testing.T) (*DashboardService, sqlmock.Sqlmock) {
	database, mock, m := newMockDB(t)
	mock.MatchExpectationsInOrder(false)
	return NewDashboardService(
		NewCartService(database, m),
		NewVendorService(database, m),
		NewProductService(database, m),
	), mock
}

const (
	cartsListQuery   = "FROM carts c LEFT JOIN vendors v ON c.vendor_id = v.id ORDER BY c.created_at DESC"
	vendorsListQuery = "FROM vendors ORDER BY rating DESC"
)

func TestBuyerDashboardSamplesOnlyForDemo(t *testing.T) {
	t.Run("demo session gets samples for empty collections", func(t *testing.T) {
		svc, mock := newDashboard(t)
		mock.ExpectQuery(q(cartsListQuery)).WillReturnRows(sqlmock.NewRows(cartColumns))
		mock.ExpectQuery(q(vendorsListQuery)).WillReturnRows(sqlmock.NewRows(vendorColumnNames))

		dash, err := svc.Buyer(context.Background(), true)
		require.NoError(t, err)
		assert.True(t, dash.Demo)
		assert.Equal(t, sampledata.Carts(), dash.Carts)
		assert.Equal(t, sampledata.Vendors(), dash.Vendors)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("real data is never replaced", func(t *testing.T) {
		svc, mock := newDashboard(t)
		mock.ExpectQuery(q(cartsListQuery)).WillReturnRows(cartRow("c1", "open", 500, 100))
		mock.ExpectQuery(q(vendorsListQuery)).WillReturnRows(sqlmock.NewRows(vendorColumnNames).
			AddRow("v1", "FreshMart", "grocery", "Mumbai", 19.07, 72.87, 4.6, int64(3), fixedNow, fixedNow))

		dash, err := svc.Buyer(context.Background(), true)
		require.NoError(t, err)
		assert.False(t, dash.Demo)
		require.Len(t, dash.Carts, 1)
		assert.Equal(t, "c1", dash.Carts[0].ID)
		require.Len(t, dash.Vendors, 1)
		assert.Equal(t, "FreshMart", dash.Vendors[0].Name)
	})

	t.Run("signed in users see empty collections", func(t *testing.T) {
		svc, mock := newDashboard(t)
		mock.ExpectQuery(q(cartsListQuery)).WillReturnRows(sqlmock.NewRows(cartColumns))
		mock.ExpectQuery(q(vendorsListQuery)).WillReturnRows(sqlmock.NewRows(vendorColumnNames))

		dash, err := svc.Buyer(context.Background(), false)
		require.NoError(t, err)
		assert.False(t, dash.Demo)
		assert.Empty(t, dash.Carts)
		assert.Empty(t, dash.Vendors)
	})

	t.Run("errors are not masked by samples", func(t *testing.T) {
		svc, mock := newDashboard(t)
		mock.ExpectQuery(q(cartsListQuery)).WillReturnError(errors.New("connection refused"))
		mock.ExpectQuery(q(vendorsListQuery)).WillReturnRows(sqlmock.NewRows(vendorColumnNames))

		_, err := svc.Buyer(context.Background(), true)
		assert.ErrorContains(t, err, "connection refused")
	})
}

func TestVendorDashboard(t *testing.T) {
	svc, mock := newDashboard(t)
	mock.ExpectQuery(q("FROM vendors WHERE id = ?")).WithArgs("v1").
		WillReturnRows(sqlmock.NewRows(vendorColumnNames).
			AddRow("v1", "FreshMart", "grocery", "Mumbai", nil, nil, nil, nil, fixedNow, fixedNow))
	mock.ExpectQuery(q("WHERE p.vendor_id = ?")).WithArgs("v1").WillReturnRows(productRow("p1"))
	mock.ExpectQuery(q("WHERE c.vendor_id = ?")).WithArgs("v1").WillReturnRows(cartRow("c1", "open", 500, 100))

	dash, err := svc.Vendor(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, "FreshMart", dash.Vendor.Name)
	assert.Len(t, dash.Products, 1)
	assert.Len(t, dash.Carts, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVendorDashboardUnknownVendor(t *testing.T) {
	svc, mock := newDashboard(t)
	mock.ExpectQuery(q("FROM vendors WHERE id = ?")).WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(vendorColumnNames))
	mock.ExpectQuery(q("WHERE p.vendor_id = ?")).WithArgs("nope").WillReturnRows(sqlmock.NewRows(productColumns))
	mock.ExpectQuery(q("WHERE c.vendor_id = ?")).WithArgs("nope").WillReturnRows(sqlmock.NewRows(cartColumns))

	_, err := svc.Vendor(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
