package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cartpool/marketplace-api/internal/db"
	"github.com/cartpool/marketplace-api/internal/metrics"
	"github.com/cartpool/marketplace-api/internal/models"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const productCacheTTL = 5 * time.Minute

// ProductCache holds cached products
type ProductCache struct {
	mu    sync.RWMutex
	items map[string]cachedProduct
}

type cachedProduct struct {
	product models.Product
	expires time.Time
}

func NewProductCache() *ProductCache {
	return &ProductCache{
		items: make(map[string]cachedProduct),
	}
}

func (c *ProductCache) get(id string, now time.Time) (models.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached, ok := c.items[id]
	if !ok || !now.Before(cached.expires) {
		return models.Product{}, false
	}
	return cached.product, true
}

func (c *ProductCache) put(p models.Product, now time.Time) {
	c.mu.Lock()
	c.items[p.ID] = cachedProduct{product: p, expires: now.Add(productCacheTTL)}
	c.mu.Unlock()
}

// ProductService handles product-related operations
type ProductService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
	cache   *ProductCache
	now     func() time.Time
}

// NewProductService creates a new product service
func NewProductService(db *db.DB, metrics *metrics.AppMetrics) *ProductService {
	return &ProductService{
		db:      db,
		metrics: metrics,
		cache:   NewProductCache(),
		now:     time.Now,
	}
}

const productSelect = `SELECT p.id, p.vendor_id, p.name, p.description, p.price, p.unit, p.min_order, p.category,
	p.in_stock, p.image_url, p.created_at, p.updated_at, v.name, v.location, v.latitude, v.longitude
	FROM products p LEFT JOIN vendors v ON p.vendor_id = v.id`

// GetProducts returns every product, newest first
func (s *ProductService) GetProducts(ctx context.Context) ([]models.Product, error) {
	return s.listProducts(ctx, productSelect+" ORDER BY p.created_at DESC")
}

// ListVendorProducts returns the catalog of one vendor, newest first
func (s *ProductService) ListVendorProducts(ctx context.Context, vendorID string) ([]models.Product, error) {
	return s.listProducts(ctx, productSelect+" WHERE p.vendor_id = ? ORDER BY p.created_at DESC", vendorID)
}

func (s *ProductService) listProducts(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}

	return products, rows.Err()
}

// GetProduct returns a product by ID, served from cache for five minutes
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if cached, ok := s.cache.get(id, s.now()); ok {
		s.metrics.CacheHits.Add(ctx, 1, s.metrics.Attrs(attribute.String("cache", "product")))
		s.recordView(ctx, &cached)
		return &cached, nil
	}
	s.metrics.CacheMisses.Add(ctx, 1, s.metrics.Attrs(attribute.String("cache", "product")))

	start := time.Now()
	query := productSelect + " WHERE p.id = ?"
	p, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", query, start, err == nil || errors.Is(err, ErrNotFound))
	if err != nil {
		return nil, err
	}

	s.cache.put(*p, s.now())
	s.recordView(ctx, p)

	return p, nil
}

func (s *ProductService) recordView(ctx context.Context, p *models.Product) {
	s.metrics.ProductsViewed.Add(ctx, 1, s.metrics.Attrs(
		attribute.String("product_id", p.ID),
		attribute.String("product_category", p.Category),
	))
}

// AddProduct lists a new product and bumps the owning vendor's product count
func (s *ProductService) AddProduct(ctx context.Context, req models.AddProductRequest) (*models.Product, error) {
	unit := req.Unit
	if unit == "" {
		unit = "unit"
	}
	minOrder := req.MinOrder
	if minOrder == 0 {
		minOrder = 1
	}
	inStock := true
	if req.InStock != nil {
		inStock = *req.InStock
	}

	now := s.now()
	p := &models.Product{
		ID:          uuid.NewString(),
		VendorID:    nullString(req.VendorID),
		Name:        strings.TrimSpace(req.Name),
		Description: nullString(req.Description),
		Price:       req.Price,
		Unit:        unit,
		MinOrder:    &minOrder,
		Category:    strings.TrimSpace(req.Category),
		InStock:     &inStock,
		ImageURL:    nullString(req.ImageURL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	start := time.Now()
	query := `INSERT INTO products (id, vendor_id, name, description, price, unit, min_order, category, in_stock, image_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query, p.ID, p.VendorID, p.Name, p.Description, p.Price,
		p.Unit, minOrder, p.Category, inStock, p.ImageURL)
	s.metrics.RecordDBQuery(ctx, "INSERT", "products", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to add product: %w", err)
	}

	if p.VendorID != nil {
		start = time.Now()
		countQuery := "UPDATE vendors SET products_count = COALESCE(products_count, 0) + 1 WHERE id = ?"
		_, err = tx.ExecContext(ctx, countQuery, *p.VendorID)
		s.metrics.RecordDBQuery(ctx, "UPDATE", "vendors", countQuery, start, err == nil)
		if err != nil {
			return nil, fmt.Errorf("failed to update vendor product count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.metrics.ProductsAdded.Add(ctx, 1, s.metrics.Attrs(attribute.String("product_category", p.Category)))
	log.Printf("[PRODUCT] Product added: product_id=%s, category=%s, price=%.2f", p.ID, p.Category, p.Price)

	return p, nil
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	var vendorName, vendorLocation *string
	var vendorLat, vendorLng *float64
	err := row.Scan(&p.ID, &p.VendorID, &p.Name, &p.Description, &p.Price, &p.Unit, &p.MinOrder,
		&p.Category, &p.InStock, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt,
		&vendorName, &vendorLocation, &vendorLat, &vendorLng)
	if err != nil {
		return nil, scanErr("product", err)
	}
	if vendorName != nil {
		p.Vendor = &models.VendorSummary{
			Name:      *vendorName,
			Location:  deref(vendorLocation),
			Latitude:  vendorLat,
			Longitude: vendorLng,
		}
	}
	return &p, nil
}
