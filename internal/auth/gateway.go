// Package auth signs users up and in, and resolves session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cartpool/marketplace-api/internal/metrics"
	"github.com/cartpool/marketplace-api/internal/models"
	"github.com/cartpool/marketplace-api/internal/services"
	"github.com/cartpool/marketplace-api/internal/session"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrSessionNotFound    = errors.New("session not found or expired")
)

// Users is the persistence the gateway needs
type Users interface {
	CreateUser(ctx context.Context, email, passwordHash string, req models.SignUpRequest) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// SignInResult is returned by a successful sign-in
type SignInResult struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Gateway wraps sign-up, sign-in, sign-out and session lookup
type Gateway struct {
	users      Users
	sessions   *SessionStore
	metrics    *metrics.AppMetrics
	bcryptCost int
}

// Option configures a Gateway
type Option func(*Gateway)

// WithBcryptCost overrides bcrypt.DefaultCost
func WithBcryptCost(cost int) Option {
	return func(g *Gateway) { g.bcryptCost = cost }
}

// NewGateway creates an auth gateway
func NewGateway(users Users, sessions *SessionStore, m *metrics.AppMetrics, opts ...Option) *Gateway {
	g := &Gateway{
		users:      users,
		sessions:   sessions,
		metrics:    m,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SignUp registers a user and its profile
func (g *Gateway) SignUp(ctx context.Context, req models.SignUpRequest) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), g.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to process password: %w", err)
	}

	user, err := g.users.CreateUser(ctx, req.Email, string(hash), req)
	if err != nil {
		return nil, err
	}

	g.metrics.SignUps.Add(ctx, 1, g.metrics.Attrs(attribute.String("role", user.Role)))
	log.Printf("[AUTH] User signed up: user_id=%s, role=%s", user.ID, user.Role)

	return user, nil
}

// SignIn checks the password and issues a session token
func (g *Gateway) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	user, err := g.users.GetUserByEmail(ctx, email)
	if errors.Is(err, services.ErrNotFound) {
		g.recordSignIn(ctx, "invalid")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		g.recordSignIn(ctx, "error")
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		g.recordSignIn(ctx, "invalid")
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	token, err := g.sessions.Create(ctx, Record{UserID: user.ID, CreatedAt: now})
	if err != nil {
		g.recordSignIn(ctx, "error")
		return nil, err
	}

	g.recordSignIn(ctx, "success")

	return &SignInResult{User: user, Token: token, ExpiresAt: now.Add(g.sessions.TTL())}, nil
}

func (g *Gateway) recordSignIn(ctx context.Context, outcome string) {
	g.metrics.SignIns.Add(ctx, 1, g.metrics.Attrs(attribute.String("outcome", outcome)))
}

// StartDemo issues a token for a demo session
func (g *Gateway) StartDemo(ctx context.Context) (string, error) {
	return g.sessions.Create(ctx, Record{Demo: true, CreatedAt: time.Now()})
}

// SignOut revokes token. Unknown tokens are not an error.
func (g *Gateway) SignOut(ctx context.Context, token string) error {
	_, err := g.sessions.Delete(ctx, token)
	return err
}

// MonitorSessions records the active sessions gauge every interval until ctx
// is done. The count comes from the store, so expired sessions drop out.
func (g *Gateway) MonitorSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.recordActiveSessions(ctx)
		}
	}
}

func (g *Gateway) recordActiveSessions(ctx context.Context) {
	n, err := g.sessions.Count(ctx)
	if err != nil {
		log.Printf("[WARNING] Could not count active sessions: %v", err)
		return
	}
	g.metrics.ActiveSessions.Record(ctx, n, g.metrics.Attrs())
}

// CurrentUser returns the user behind token
func (g *Gateway) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	s, err := g.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	a, ok := s.(session.Authenticated)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return a.User, nil
}

// Resolve turns a bearer token into a Session. An empty token is
// Unauthenticated; an unknown one is ErrSessionNotFound.
func (g *Gateway) Resolve(ctx context.Context, token string) (session.Session, error) {
	if token == "" {
		return session.Unauthenticated{}, nil
	}

	rec, err := g.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if rec.Demo {
		return session.Demo{Token: token}, nil
	}

	user, err := g.users.GetUser(ctx, rec.UserID)
	if errors.Is(err, services.ErrNotFound) {
		// user deleted after the session was issued
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return session.Authenticated{Token: token, User: user}, nil
}
