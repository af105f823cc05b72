package services

import (
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUserExists      = errors.New("user already exists")
	ErrAlreadyJoined   = errors.New("already joined this cart")
	ErrInvalidStatus   = errors.New("invalid cart status")
	ErrThresholdNotMet = errors.New("cart has not reached its minimum value")
	ErrCartClosed      = errors.New("cart is no longer accepting contributions")
	ErrOutOfStock      = errors.New("product is out of stock")
	ErrNotCartOwner    = errors.New("only the cart's creator can do this")
)

// scanErr maps sql.ErrNoRows to ErrNotFound for entity
func scanErr(entity string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", entity, ErrNotFound)
	}
	return fmt.Errorf("failed to scan %s: %w", entity, err)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
