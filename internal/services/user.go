package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cartpool/marketplace-api/internal/db"
	"github.com/cartpool/marketplace-api/internal/metrics"
	"github.com/cartpool/marketplace-api/internal/models"
	"github.com/google/uuid"
)

// UserService handles users and their business profiles
type UserService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewUserService creates a new user service
func NewUserService(db *db.DB, metrics *metrics.AppMetrics) *UserService {
	return &UserService{
		db:      db,
		metrics: metrics,
	}
}

// CreateUser inserts a user and its profile in one transaction
func (s *UserService) CreateUser(ctx context.Context, email, passwordHash string, req models.SignUpRequest) (*models.User, error) {
	role := req.Role
	if role == "" {
		role = models.RoleBuyer
	}
	email = strings.ToLower(strings.TrimSpace(email))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now(),
	}

	start := time.Now()
	query := "INSERT INTO users (id, email, password_hash) VALUES (?, ?, ?)"
	_, err = tx.ExecContext(ctx, query, user.ID, user.Email, user.PasswordHash)
	s.metrics.RecordDBQuery(ctx, "INSERT", "users", query, start, err == nil)
	if err != nil {
		if db.IsDuplicateEntry(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	start = time.Now()
	profileQuery := `INSERT INTO profiles (id, user_id, role, business_name, business_type, location, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, profileQuery, uuid.NewString(), user.ID, role,
		nullString(req.BusinessName), nullString(req.BusinessType), nullString(req.Location),
		req.Latitude, req.Longitude)
	s.metrics.RecordDBQuery(ctx, "INSERT", "profiles", profileQuery, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, nil
}

const userSelect = `SELECT u.id, u.email, u.password_hash, COALESCE(p.role, ''), u.created_at
	FROM users u LEFT JOIN profiles p ON p.user_id = u.id`

// GetUser returns a user by ID
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.getUserBy(ctx, "u.id", id)
}

// GetUserByEmail returns a user by email
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUserBy(ctx, "u.email", strings.ToLower(strings.TrimSpace(email)))
}

func (s *UserService) getUserBy(ctx context.Context, column, value string) (*models.User, error) {
	start := time.Now()

	query := userSelect + " WHERE " + column + " = ?"
	var user models.User
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt,
	)
	s.metrics.RecordDBQuery(ctx, "SELECT", "users", query, start, err == nil || errors.Is(err, sql.ErrNoRows))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.Role == "" {
		user.Role = models.RoleBuyer
	}

	return &user, nil
}

// GetProfile returns the profile owned by userID
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	start := time.Now()

	query := `SELECT id, user_id, role, business_name, business_type, location, latitude, longitude, created_at, updated_at
		FROM profiles WHERE user_id = ?`
	var p models.Profile
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&p.ID, &p.UserID, &p.Role, &p.BusinessName, &p.BusinessType,
		&p.Location, &p.Latitude, &p.Longitude, &p.CreatedAt, &p.UpdatedAt,
	)
	s.metrics.RecordDBQuery(ctx, "SELECT", "profiles", query, start, err == nil || errors.Is(err, sql.ErrNoRows))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &p, nil
}

// nullString maps "" to NULL for optional text columns
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
