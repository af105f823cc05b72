package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cartpool/marketplace-api/internal/metrics"
	"github.com/cartpool/marketplace-api/internal/models"
	"github.com/cartpool/marketplace-api/internal/services"
	"github.com/cartpool/marketplace-api/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/crypto/bcrypt"
)

// MockUsers for testing
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) CreateUser(ctx context.Context, email, passwordHash string, req models.SignUpRequest) (*models.User, error) {
	args := m.Called(ctx, email, passwordHash, req)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetUser(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func newTestGateway(t *testing.T) (*Gateway, *MockUsers, *miniredis.Miniredis) {
	t.Helper()
	mr, client := setupTestRedis(t)
	m, err := metrics.NewAppMetrics(noop.NewMeterProvider().Meter("test"), "cartpool-test")
	require.NoError(t, err)

	users := new(MockUsers)
	g := NewGateway(users, NewSessionStore(client, time.Hour), m, WithBcryptCost(bcrypt.MinCost))
	return g, users, mr
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestSessionStore(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewSessionStore(client, 30*time.Minute)
	ctx := context.Background()

	token, err := store.Create(ctx, Record{UserID: "u1", CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, mr.TTL(sessionKeyPrefix+token))

	rec, err := store.Get(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.UserID)
	assert.False(t, rec.Demo)

	deleted, err := store.Delete(ctx, token)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.Delete(ctx, token)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = store.Get(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreExpiry(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewSessionStore(client, time.Minute)
	ctx := context.Background()

	token, err := store.Create(ctx, Record{Demo: true, CreatedAt: time.Now()})
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = store.Get(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionCountDropsExpiredSessions(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	short := NewSessionStore(client, time.Minute)
	long := NewSessionStore(client, time.Hour)

	_, err := short.Create(ctx, Record{Demo: true, CreatedAt: time.Now()})
	require.NoError(t, err)
	_, err = long.Create(ctx, Record{UserID: "u1", CreatedAt: time.Now()})
	require.NoError(t, err)
	revoked, err := long.Create(ctx, Record{UserID: "u2", CreatedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, mr.Set("unrelated", "x"))

	n, err := long.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = long.Delete(ctx, revoked)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	n, err = long.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "expired and revoked sessions are not counted")
}

func TestSignUp(t *testing.T) {
	g, users, _ := newTestGateway(t)
	req := models.SignUpRequest{Email: "ada@example.com", Password: "secret1", Role: models.RoleVendor}

	users.On("CreateUser", mock.Anything, "ada@example.com", mock.MatchedBy(func(hash string) bool {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret1")) == nil
	}), req).Return(&models.User{ID: "u1", Email: "ada@example.com", Role: models.RoleVendor}, nil)

	user, err := g.SignUp(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	users.AssertExpectations(t)
}

func TestSignUpExistingUser(t *testing.T) {
	g, users, _ := newTestGateway(t)
	users.On("CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, services.ErrUserExists)

	_, err := g.SignUp(context.Background(), models.SignUpRequest{Email: "ada@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, services.ErrUserExists)
}

func TestSignInAndResolve(t *testing.T) {
	g, users, _ := newTestGateway(t)
	ctx := context.Background()
	user := &models.User{ID: "u1", Email: "ada@example.com", Role: models.RoleBuyer, PasswordHash: hashed(t, "secret1")}

	users.On("GetUserByEmail", mock.Anything, "ada@example.com").Return(user, nil)
	users.On("GetUser", mock.Anything, "u1").Return(user, nil)

	res, err := g.SignIn(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), res.ExpiresAt, time.Minute)

	s, err := g.Resolve(ctx, res.Token)
	require.NoError(t, err)
	auth, ok := s.(session.Authenticated)
	require.True(t, ok, "expected an authenticated session, got %s", s.Kind())
	assert.Equal(t, "u1", auth.User.ID)

	current, err := g.CurrentUser(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, user, current)

	require.NoError(t, g.SignOut(ctx, res.Token))
	_, err = g.CurrentUser(ctx, res.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// signing out twice is fine
	assert.NoError(t, g.SignOut(ctx, res.Token))
}

func TestSignInInvalidCredentials(t *testing.T) {
	tests := []struct {
		name   string
		user   *models.User
		err    error
		passwd string
	}{
		{"unknown email", nil, fmt.Errorf("user: %w", services.ErrNotFound), "secret1"},
		{"wrong password", &models.User{ID: "u1"}, nil, "wrong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, users, mr := newTestGateway(t)
			if tt.user != nil {
				tt.user.PasswordHash = hashed(t, "secret1")
			}
			users.On("GetUserByEmail", mock.Anything, "ada@example.com").Return(tt.user, tt.err)

			_, err := g.SignIn(context.Background(), "ada@example.com", tt.passwd)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Empty(t, mr.Keys(), "no session is issued")
		})
	}
}

func TestDemoSession(t *testing.T) {
	g, users, _ := newTestGateway(t)
	ctx := context.Background()

	token, err := g.StartDemo(ctx)
	require.NoError(t, err)

	s, err := g.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, session.Demo{Token: token}, s)

	_, err = g.CurrentUser(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	users.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
}

func TestResolve(t *testing.T) {
	g, users, _ := newTestGateway(t)
	ctx := context.Background()

	s, err := g.Resolve(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, session.Unauthenticated{}, s)

	_, err = g.Resolve(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	token, err := g.sessions.Create(ctx, Record{UserID: "gone", CreatedAt: time.Now()})
	require.NoError(t, err)
	users.On("GetUser", mock.Anything, "gone").Return(nil, fmt.Errorf("user: %w", services.ErrNotFound))

	_, err = g.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
