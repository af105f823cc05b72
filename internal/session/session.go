// Package session models who is making a request. A Session is exactly one
// of Unauthenticated, Demo or Authenticated; handlers switch on the concrete
// type instead of probing for a nil user.
package session

import (
	"context"

	"github.com/cartpool/marketplace-api/internal/models"
)

// Session is the closed set of request identities.
type Session interface {
	// Kind names the variant for logs and metrics attributes.
	Kind() string
	isSession()
}

// Unauthenticated carries no identity.
type Unauthenticated struct{}

// Demo is an explicit sample-data session with no backing user.
type Demo struct {
	Token string
}

// Authenticated is a signed-in user.
type Authenticated struct {
	Token string
	User  *models.User
}

func (Unauthenticated) Kind() string { return "unauthenticated" }
func (Demo) Kind() string            { return "demo" }
func (Authenticated) Kind() string   { return "authenticated" }

func (Unauthenticated) isSession() {}
func (Demo) isSession()            {}
func (Authenticated) isSession()   {}

// Role returns the effective marketplace role. Anyone without a user is
// treated as a buyer.
func Role(s Session) string {
	if a, ok := s.(Authenticated); ok && a.User != nil && a.User.Role != "" {
		return a.User.Role
	}
	return models.RoleBuyer
}

type contextKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, or Unauthenticated.
func FromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(contextKey{}).(Session); ok && s != nil {
		return s
	}
	return Unauthenticated{}
}
