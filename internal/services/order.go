package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cartpool/marketplace-api/internal/models"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// CancelCart withdraws an open or threshold_met cart. Only the cart's
// creator may cancel it.
func (s *CartService) CancelCart(ctx context.Context, cartID, actorID string) (*models.Cart, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	start := time.Now()
	query := "SELECT COALESCE(status, 'open'), COALESCE(created_by, '') FROM carts WHERE id = ? FOR UPDATE"
	var status, createdBy string
	err = tx.QueryRowContext(ctx, query, cartID).Scan(&status, &createdBy)
	s.metrics.RecordDBQuery(ctx, "SELECT", "carts", query, start, err == nil)
	if err != nil {
		return nil, scanErr("cart", err)
	}
	if createdBy == "" || createdBy != actorID {
		return nil, ErrNotCartOwner
	}
	if isClosed(status) {
		return nil, ErrCartClosed
	}

	start = time.Now()
	updateQuery := "UPDATE carts SET status = ?, updated_at = NOW() WHERE id = ?"
	_, err = tx.ExecContext(ctx, updateQuery, models.CartStatusCancelled, cartID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "carts", updateQuery, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel cart: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("[CART] Cart cancelled: cart_id=%s, previous_status=%s", cartID, status)

	return s.getCart(ctx, cartID)
}

// UpdateCartStatus applies a manual status change requested by actorID.
// Only cancellation is accepted: threshold_met is set by AddCartItem and
// ordered by PlaceCartOrder.
func (s *CartService) UpdateCartStatus(ctx context.Context, cartID, actorID, status string) (*models.Cart, error) {
	if status != models.CartStatusCancelled {
		return nil, fmt.Errorf("%w: %s cannot be set manually", ErrInvalidStatus, status)
	}
	return s.CancelCart(ctx, cartID, actorID)
}

// PlaceCartOrder hands a funded cart to its vendor. Only the cart's creator
// can place it, and only at threshold_met with current_value at or above
// min_value; the cart becomes ordered.
func (s *CartService) PlaceCartOrder(ctx context.Context, cartID, actorID string) (*models.Cart, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	start := time.Now()
	query := `SELECT COALESCE(c.status, 'open'), COALESCE(c.current_value, 0), COALESCE(c.min_value, 0),
		COALESCE(c.created_by, ''), COALESCE(v.category, 'unknown')
		FROM carts c LEFT JOIN vendors v ON c.vendor_id = v.id WHERE c.id = ? FOR UPDATE`
	var status, createdBy, category string
	var value, minValue decimal.Decimal
	err = tx.QueryRowContext(ctx, query, cartID).Scan(&status, &value, &minValue, &createdBy, &category)
	s.metrics.RecordDBQuery(ctx, "SELECT", "carts", query, start, err == nil)
	if err != nil {
		return nil, scanErr("cart", err)
	}
	if createdBy == "" || createdBy != actorID {
		return nil, ErrNotCartOwner
	}
	if status != models.CartStatusThresholdMet || !minValue.IsPositive() || value.LessThan(minValue) {
		return nil, fmt.Errorf("%w (status %s, value %s of %s)", ErrThresholdNotMet,
			status, value.StringFixed(2), minValue.StringFixed(2))
	}

	start = time.Now()
	updateQuery := "UPDATE carts SET status = ?, updated_at = NOW() WHERE id = ?"
	_, err = tx.ExecContext(ctx, updateQuery, models.CartStatusOrdered, cartID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "carts", updateQuery, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to place cart order: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	orderAttrs := s.metrics.Attrs(attribute.String("vendor_category", category))
	s.metrics.OrdersPlaced.Add(ctx, 1, orderAttrs)
	s.metrics.RevenueTotal.Add(ctx, value.InexactFloat64(), orderAttrs)
	log.Printf("[ORDER] Cart placed: cart_id=%s, value=%s, vendor_category=%s", cartID, value.StringFixed(2), category)

	return s.getCart(ctx, cartID)
}
