package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cartpool/marketplace-api/internal/auth"
	"github.com/cartpool/marketplace-api/internal/metrics"
	"github.com/cartpool/marketplace-api/internal/models"
	"github.com/cartpool/marketplace-api/internal/session"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

type stubResolver map[string]session.Session

func (s stubResolver) Resolve(_ context.Context, token string) (session.Session, error) {
	if token == "" {
		return session.Unauthenticated{}, nil
	}
	if token == "broken" {
		return nil, errors.New("redis: connection refused")
	}
	if sess, ok := s[token]; ok {
		return sess, nil
	}
	return nil, auth.ErrSessionNotFound
}

var resolver = stubResolver{
	"buyer":  session.Authenticated{Token: "buyer", User: &models.User{ID: "u1", Role: models.RoleBuyer}},
	"vendor": session.Authenticated{Token: "vendor", User: &models.User{ID: "u2", Role: models.RoleVendor}},
	"demo":   session.Demo{Token: "demo"},
}

func kindHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(session.FromContext(r.Context()).Kind()))
}

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, BearerToken(req))

	req.Header.Set("Authorization", "bearer abc ")
	assert.Equal(t, "abc", BearerToken(req))

	req.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, BearerToken(req))
}

func TestSessionMiddleware(t *testing.T) {
	h := SessionMiddleware(resolver)(http.HandlerFunc(kindHandler))

	tests := []struct {
		token  string
		status int
		body   string
	}{
		{"", http.StatusOK, "unauthenticated"},
		{"buyer", http.StatusOK, "authenticated"},
		{"demo", http.StatusOK, "demo"},
		{"expired", http.StatusOK, "unauthenticated"},
	}
	for _, tt := range tests {
		rec := serve(h, tt.token)
		assert.Equal(t, tt.status, rec.Code, tt.token)
		assert.Equal(t, tt.body, rec.Body.String(), tt.token)
	}

	rec := serve(h, "broken")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"data":null,"error":"session store unavailable"}`, rec.Body.String())
}

func TestRequireAuth(t *testing.T) {
	h := SessionMiddleware(resolver)(RequireAuth(http.HandlerFunc(kindHandler)))

	assert.Equal(t, http.StatusUnauthorized, serve(h, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, "demo").Code, "demo sessions are read-only")
	assert.Equal(t, http.StatusOK, serve(h, "buyer").Code)
}

func TestRequireVendor(t *testing.T) {
	h := SessionMiddleware(resolver)(RequireVendor(http.HandlerFunc(kindHandler)))

	assert.Equal(t, http.StatusUnauthorized, serve(h, "").Code)
	assert.Equal(t, http.StatusForbidden, serve(h, "buyer").Code)
	assert.Equal(t, http.StatusOK, serve(h, "vendor").Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	rec := serve(h, "")
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", seen)
}

func TestCORSMiddleware(t *testing.T) {
	h := CORSMiddleware("https://cartpool.example")(http.HandlerFunc(kindHandler))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "https://cartpool.example", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = serve(CORSMiddleware("")(http.HandlerFunc(kindHandler)), "")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestErrorHandlerMiddleware(t *testing.T) {
	h := ErrorHandlerMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := serve(h, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"data":null,"error":"Internal Server Error"}`, rec.Body.String())
}

func TestMetricsMiddleware(t *testing.T) {
	m, err := metrics.NewAppMetrics(noop.NewMeterProvider().Meter("test"), "cartpool-test")
	require.NoError(t, err)

	r := mux.NewRouter()
	r.Use(MetricsMiddleware(m))
	r.HandleFunc("/carts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/carts/c1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
