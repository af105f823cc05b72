package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cartpool/marketplace-api/internal/db"
	"github.com/cartpool/marketplace-api/internal/metrics"
	"github.com/cartpool/marketplace-api/internal/models"
)

// VendorService handles vendor listings
type VendorService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewVendorService creates a new vendor service
func NewVendorService(db *db.DB, metrics *metrics.AppMetrics) *VendorService {
	return &VendorService{
		db:      db,
		metrics: metrics,
	}
}

const vendorColumns = "id, name, category, location, latitude, longitude, rating, products_count, created_at, updated_at"

// GetVendors returns every vendor, best rated first
func (s *VendorService) GetVendors(ctx context.Context) ([]models.Vendor, error) {
	start := time.Now()
	query := "SELECT " + vendorColumns + " FROM vendors ORDER BY rating DESC"
	rows, err := s.db.QueryContext(ctx, query)
	s.metrics.RecordDBQuery(ctx, "SELECT", "vendors", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query vendors: %w", err)
	}
	defer rows.Close()

	vendors := []models.Vendor{}
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		vendors = append(vendors, *v)
	}

	return vendors, rows.Err()
}

// GetVendor returns a vendor by ID
func (s *VendorService) GetVendor(ctx context.Context, id string) (*models.Vendor, error) {
	start := time.Now()
	query := "SELECT " + vendorColumns + " FROM vendors WHERE id = ?"
	v, err := scanVendor(s.db.QueryRowContext(ctx, query, id))
	s.metrics.RecordDBQuery(ctx, "SELECT", "vendors", query, start, err == nil || errors.Is(err, ErrNotFound))
	if err != nil {
		return nil, err
	}
	return v, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVendor(row rowScanner) (*models.Vendor, error) {
	var v models.Vendor
	err := row.Scan(&v.ID, &v.Name, &v.Category, &v.Location, &v.Latitude, &v.Longitude,
		&v.Rating, &v.ProductsCount, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, scanErr("vendor", err)
	}
	return &v, nil
}
