package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cartpool/marketplace-api/internal/db"
	"github.com/cartpool/marketplace-api/internal/metrics"
	"github.com/cartpool/marketplace-api/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// CartService handles pooled carts, their participants and line items
type CartService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewCartService creates a new cart service
func NewCartService(db *db.DB, metrics *metrics.AppMetrics) *CartService {
	return &CartService{
		db:      db,
		metrics: metrics,
	}
}

// MonitorOpenCarts records the open carts gauge every interval until ctx is done
func (s *CartService) MonitorOpenCarts(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.recordOpenCarts(ctx)
		}
	}
}

func (s *CartService) recordOpenCarts(ctx context.Context) {
	query := "SELECT COUNT(*) FROM carts WHERE COALESCE(status, 'open') = 'open'"
	start := time.Now()
	var count int64
	err := s.db.QueryRowContext(ctx, query).Scan(&count)
	s.metrics.RecordDBQuery(ctx, "SELECT", "carts", query, start, err == nil)
	if err != nil {
		log.Printf("[WARNING] Could not count open carts: %v", err)
		return
	}
	s.metrics.OpenCartsCount.Record(ctx, count, s.metrics.Attrs())
}

const cartSelect = `SELECT c.id, c.title, c.description, COALESCE(c.status, 'open'), COALESCE(c.min_value, 0),
	COALESCE(c.current_value, 0), c.location, c.latitude, c.longitude, c.vendor_id, c.created_by,
	c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM cart_participants cp WHERE cp.cart_id = c.id),
	v.name, v.location
	FROM carts c LEFT JOIN vendors v ON c.vendor_id = v.id`

// GetCarts returns every cart, newest first, with participant counts and vendor summary
func (s *CartService) GetCarts(ctx context.Context) ([]models.Cart, error) {
	return s.listCarts(ctx, cartSelect+" ORDER BY c.created_at DESC")
}

// ListVendorCarts returns the carts addressed to one vendor, newest first
func (s *CartService) ListVendorCarts(ctx context.Context, vendorID string) ([]models.Cart, error) {
	return s.listCarts(ctx, cartSelect+" WHERE c.vendor_id = ? ORDER BY c.created_at DESC", vendorID)
}

func (s *CartService) listCarts(ctx context.Context, query string, args ...any) ([]models.Cart, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	s.metrics.RecordDBQuery(ctx, "SELECT", "carts", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query carts: %w", err)
	}
	defer rows.Close()

	carts := []models.Cart{}
	for rows.Next() {
		c, err := scanCart(rows)
		if err != nil {
			return nil, err
		}
		carts = append(carts, *c)
	}

	return carts, rows.Err()
}

// GetCart returns a cart with its items and participants
func (s *CartService) GetCart(ctx context.Context, id string) (*models.CartDetail, error) {
	cart, err := s.getCart(ctx, id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	itemsQuery := `SELECT id, cart_id, product_id, user_id, quantity, unit_price, COALESCE(total_price, 0), created_at
		FROM cart_items WHERE cart_id = ? ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, itemsQuery, id)
	s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", itemsQuery, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart items: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.UserID,
			&item.Quantity, &item.UnitPrice, &item.TotalPrice, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	participantsQuery := "SELECT id, cart_id, user_id, joined_at FROM cart_participants WHERE cart_id = ? ORDER BY joined_at"
	prows, err := s.db.QueryContext(ctx, participantsQuery, id)
	s.metrics.RecordDBQuery(ctx, "SELECT", "cart_participants", participantsQuery, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart participants: %w", err)
	}
	defer prows.Close()

	participants := []models.CartParticipant{}
	for prows.Next() {
		var p models.CartParticipant
		if err := prows.Scan(&p.ID, &p.CartID, &p.UserID, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart participant: %w", err)
		}
		participants = append(participants, p)
	}

	return &models.CartDetail{
		Cart:         cart,
		Items:        items,
		Participants: participants,
	}, prows.Err()
}

func (s *CartService) getCart(ctx context.Context, id string) (*models.Cart, error) {
	start := time.Now()
	query := cartSelect + " WHERE c.id = ?"
	cart, err := scanCart(s.db.QueryRowContext(ctx, query, id))
	s.metrics.RecordDBQuery(ctx, "SELECT", "carts", query, start, err == nil || errors.Is(err, ErrNotFound))
	return cart, err
}

// CreateCart opens a new cart owned by createdBy with status open and no value yet
func (s *CartService) CreateCart(ctx context.Context, createdBy string, req models.CreateCartRequest) (*models.Cart, error) {
	now := time.Now()
	cart := &models.Cart{
		ID:           uuid.NewString(),
		Title:        strings.TrimSpace(req.Title),
		Description:  nullString(req.Description),
		Status:       models.CartStatusOpen,
		MinValue:     req.MinValue,
		CurrentValue: 0,
		Location:     nullString(req.Location),
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		VendorID:     nullString(req.VendorID),
		CreatedBy:    nullString(createdBy),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	start := time.Now()
	query := `INSERT INTO carts (id, title, description, status, min_value, current_value, location, latitude, longitude, vendor_id, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, cart.ID, cart.Title, cart.Description, cart.Status,
		cart.MinValue, cart.CurrentValue, cart.Location, cart.Latitude, cart.Longitude, cart.VendorID, cart.CreatedBy)
	s.metrics.RecordDBQuery(ctx, "INSERT", "carts", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	s.metrics.CartsCreated.Add(ctx, 1, s.metrics.Attrs(attribute.Bool("has_vendor", cart.VendorID != nil)))
	log.Printf("[CART] Cart created: cart_id=%s, min_value=%.2f, created_by=%s", cart.ID, cart.MinValue, createdBy)

	return cart.WithProgress(), nil
}

// JoinCart adds userID as a participant of cartID
func (s *CartService) JoinCart(ctx context.Context, cartID, userID string) (*models.CartParticipant, error) {
	status, err := s.cartStatus(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if isClosed(status) {
		return nil, ErrCartClosed
	}

	p := &models.CartParticipant{
		ID:       uuid.NewString(),
		CartID:   &cartID,
		UserID:   &userID,
		JoinedAt: time.Now(),
	}

	start := time.Now()
	query := "INSERT INTO cart_participants (id, cart_id, user_id) VALUES (?, ?, ?)"
	_, err = s.db.ExecContext(ctx, query, p.ID, cartID, userID)
	s.metrics.RecordDBQuery(ctx, "INSERT", "cart_participants", query, start, err == nil)
	if err != nil {
		if db.IsDuplicateEntry(err) {
			return nil, ErrAlreadyJoined
		}
		return nil, fmt.Errorf("failed to join cart: %w", err)
	}

	s.metrics.CartJoins.Add(ctx, 1, s.metrics.Attrs())
	log.Printf("[CART] Participant joined: cart_id=%s, user_id=%s", cartID, userID)

	return p, nil
}

func (s *CartService) cartStatus(ctx context.Context, cartID string) (string, error) {
	start := time.Now()
	query := "SELECT COALESCE(status, 'open') FROM carts WHERE id = ?"
	var status string
	err := s.db.QueryRowContext(ctx, query, cartID).Scan(&status)
	s.metrics.RecordDBQuery(ctx, "SELECT", "carts", query, start, err == nil)
	if err != nil {
		return "", scanErr("cart", err)
	}
	return status, nil
}

// AddCartItem records a contribution and recomputes the cart's value. The
// cart moves from open to threshold_met once its value reaches min_value.
func (s *CartService) AddCartItem(ctx context.Context, cartID, userID string, req models.AddCartItemRequest) (*models.CartItem, *models.Cart, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	start := time.Now()
	cartQuery := "SELECT COALESCE(status, 'open'), COALESCE(min_value, 0) FROM carts WHERE id = ? FOR UPDATE"
	var status string
	var minValue decimal.Decimal
	err = tx.QueryRowContext(ctx, cartQuery, cartID).Scan(&status, &minValue)
	s.metrics.RecordDBQuery(ctx, "SELECT", "carts", cartQuery, start, err == nil)
	if err != nil {
		return nil, nil, scanErr("cart", err)
	}
	if isClosed(status) {
		return nil, nil, ErrCartClosed
	}

	start = time.Now()
	productQuery := "SELECT price, COALESCE(in_stock, TRUE) FROM products WHERE id = ?"
	var unitPrice decimal.Decimal
	var inStock bool
	err = tx.QueryRowContext(ctx, productQuery, req.ProductID).Scan(&unitPrice, &inStock)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", productQuery, start, err == nil)
	if err != nil {
		return nil, nil, scanErr("product", err)
	}
	if !inStock {
		return nil, nil, ErrOutOfStock
	}

	total := LineTotal(unitPrice, req.Quantity)
	item := &models.CartItem{
		ID:         uuid.NewString(),
		CartID:     &cartID,
		ProductID:  &req.ProductID,
		UserID:     nullString(userID),
		Quantity:   req.Quantity,
		UnitPrice:  unitPrice.InexactFloat64(),
		TotalPrice: total.InexactFloat64(),
		CreatedAt:  time.Now(),
	}

	start = time.Now()
	insertQuery := `INSERT INTO cart_items (id, cart_id, product_id, user_id, quantity, unit_price, total_price)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, insertQuery, item.ID, cartID, req.ProductID, item.UserID,
		req.Quantity, unitPrice.StringFixed(2), total.StringFixed(2))
	s.metrics.RecordDBQuery(ctx, "INSERT", "cart_items", insertQuery, start, err == nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	if item.UserID != nil {
		start = time.Now()
		joinQuery := "INSERT IGNORE INTO cart_participants (id, cart_id, user_id) VALUES (?, ?, ?)"
		_, err = tx.ExecContext(ctx, joinQuery, uuid.NewString(), cartID, userID)
		s.metrics.RecordDBQuery(ctx, "INSERT", "cart_participants", joinQuery, start, err == nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to register contributor: %w", err)
		}
	}

	start = time.Now()
	sumQuery := "SELECT COALESCE(SUM(total_price), 0) FROM cart_items WHERE cart_id = ?"
	var current decimal.Decimal
	err = tx.QueryRowContext(ctx, sumQuery, cartID).Scan(&current)
	s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", sumQuery, start, err == nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to total cart: %w", err)
	}

	newStatus := NextStatus(status, current, minValue)

	start = time.Now()
	updateQuery := "UPDATE carts SET current_value = ?, status = ?, updated_at = NOW() WHERE id = ?"
	_, err = tx.ExecContext(ctx, updateQuery, current.StringFixed(2), newStatus, cartID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "carts", updateQuery, start, err == nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update cart value: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.metrics.CartItemsAdded.Add(ctx, int64(req.Quantity), s.metrics.Attrs())
	if newStatus != status {
		s.metrics.ThresholdReached.Add(ctx, 1, s.metrics.Attrs())
		log.Printf("[CART] Threshold reached: cart_id=%s, current_value=%s, min_value=%s",
			cartID, current.StringFixed(2), minValue.StringFixed(2))
	}

	cart, err := s.getCart(ctx, cartID)
	if err != nil {
		return nil, nil, err
	}
	return item, cart, nil
}

// LineTotal is unit price times quantity rounded to cents
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// NextStatus applies the threshold rule: an open cart whose value has
// reached a positive minimum becomes threshold_met. Other statuses are
// left alone.
func NextStatus(status string, current, minValue decimal.Decimal) string {
	if status == models.CartStatusOpen && minValue.IsPositive() && current.GreaterThanOrEqual(minValue) {
		return models.CartStatusThresholdMet
	}
	return status
}

func isClosed(status string) bool {
	return status == models.CartStatusOrdered || status == models.CartStatusCancelled
}

func scanCart(row rowScanner) (*models.Cart, error) {
	var c models.Cart
	var vendorName, vendorLocation *string
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Status, &c.MinValue, &c.CurrentValue,
		&c.Location, &c.Latitude, &c.Longitude, &c.VendorID, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
		&c.ParticipantCount, &vendorName, &vendorLocation)
	if err != nil {
		return nil, scanErr("cart", err)
	}
	if vendorName != nil {
		c.Vendor = &models.VendorSummary{Name: *vendorName, Location: deref(vendorLocation)}
	}
	return c.WithProgress(), nil
}
