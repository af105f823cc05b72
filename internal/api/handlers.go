package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cartpool/marketplace-api/internal/auth"
	"github.com/cartpool/marketplace-api/internal/catalog"
	"github.com/cartpool/marketplace-api/internal/geo"
	"github.com/cartpool/marketplace-api/internal/metrics"
	"github.com/cartpool/marketplace-api/internal/middleware"
	"github.com/cartpool/marketplace-api/internal/models"
	"github.com/cartpool/marketplace-api/internal/sampledata"
	"github.com/cartpool/marketplace-api/internal/services"
	"github.com/cartpool/marketplace-api/internal/session"
	"github.com/cartpool/marketplace-api/pkg/config"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// Services groups what the handlers call into
type Services struct {
	Auth       *auth.Gateway
	Users      *services.UserService
	Products   *services.ProductService
	Vendors    *services.VendorService
	Carts      *services.CartService
	Dashboards *services.DashboardService
}

// App holds application dependencies
type App struct {
	config   *config.Config
	metrics  *metrics.AppMetrics
	svc      Services
	validate *validator.Validate
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config, m *metrics.AppMetrics, svc Services) *App {
	return &App{
		config:   cfg,
		metrics:  m,
		svc:      svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Handler returns the routed API with CORS applied ahead of routing so
// preflight requests reach it for every path.
func (a *App) Handler() http.Handler {
	r := mux.NewRouter()
	a.SetupRoutes(r)
	return middleware.CORSMiddleware(a.config.CORSAllowedOrigin)(r)
}

// SetupRoutes configures the HTTP routes
func (a *App) SetupRoutes(r *mux.Router) {
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.ErrorHandlerMiddleware)
	r.Use(middleware.SessionMiddleware(a.svc.Auth))
	r.Use(middleware.MetricsMiddleware(a.metrics))

	authed := func(h http.HandlerFunc) http.Handler { return middleware.RequireAuth(h) }
	vendor := func(h http.HandlerFunc) http.Handler { return middleware.RequireVendor(h) }

	api := r.PathPrefix("/api/v1").Subrouter()

	// Auth
	api.HandleFunc("/auth/signup", a.SignUpHandler).Methods("POST")
	api.HandleFunc("/auth/signin", a.SignInHandler).Methods("POST")
	api.HandleFunc("/auth/signout", a.SignOutHandler).Methods("POST")
	api.HandleFunc("/auth/user", a.CurrentUserHandler).Methods("GET")
	api.HandleFunc("/auth/demo", a.DemoSessionHandler).Methods("POST")

	// Products
	api.HandleFunc("/products", a.ListProductsHandler).Methods("GET")
	api.Handle("/products", vendor(a.AddProductHandler)).Methods("POST")
	api.HandleFunc("/products/{id}", a.GetProductHandler).Methods("GET")

	// Vendors
	api.HandleFunc("/vendors", a.ListVendorsHandler).Methods("GET")
	api.HandleFunc("/vendors/{id}", a.GetVendorHandler).Methods("GET")
	api.HandleFunc("/vendors/{id}/dashboard", a.VendorDashboardHandler).Methods("GET")

	// Carts
	api.HandleFunc("/carts", a.ListCartsHandler).Methods("GET")
	api.Handle("/carts", authed(a.CreateCartHandler)).Methods("POST")
	api.HandleFunc("/carts/{id}", a.GetCartHandler).Methods("GET")
	api.Handle("/carts/{id}/join", authed(a.JoinCartHandler)).Methods("POST")
	api.Handle("/carts/{id}/items", authed(a.AddCartItemHandler)).Methods("POST")
	api.Handle("/carts/{id}/status", authed(a.UpdateCartStatusHandler)).Methods("PUT")
	api.Handle("/carts/{id}/order", authed(a.PlaceCartOrderHandler)).Methods("POST")

	// Dashboards and profile
	api.HandleFunc("/dashboard", a.BuyerDashboardHandler).Methods("GET")
	api.Handle("/profile", authed(a.ProfileHandler)).Methods("GET")

	// RPC
	r.HandleFunc("/rpc/calculate_distance", a.CalculateDistanceHandler).Methods("POST")

	// Health
	r.HandleFunc("/health", a.HealthHandler).Methods("GET")
}

// HealthHandler handles health check requests
func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// SignUpHandler handles POST /api/v1/auth/signup
func (a *App) SignUpHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpRequest
	if !a.bind(w, r, &req) {
		return
	}

	user, err := a.svc.Auth.SignUp(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// SignInHandler handles POST /api/v1/auth/signin
func (a *App) SignInHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SignInRequest
	if !a.bind(w, r, &req) {
		return
	}

	res, err := a.svc.Auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// SignOutHandler handles POST /api/v1/auth/signout
func (a *App) SignOutHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Auth.SignOut(r.Context(), middleware.BearerToken(r)); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"signed_out": true})
}

// CurrentUserHandler handles GET /api/v1/auth/user
func (a *App) CurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := a.svc.Auth.CurrentUser(r.Context(), middleware.BearerToken(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// DemoSessionHandler handles POST /api/v1/auth/demo
func (a *App) DemoSessionHandler(w http.ResponseWriter, r *http.Request) {
	token, err := a.svc.Auth.StartDemo(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"token": token, "session": session.Demo{}.Kind()})
}

// ListProductsHandler handles GET /api/v1/products?q=&lat=&lng=
func (a *App) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := a.svc.Products.GetProducts(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if len(products) == 0 && isDemo(r) {
		products = sampledata.Products()
	}

	writeJSON(w, http.StatusOK, catalog.FilterProducts(products, r.URL.Query().Get("q"), origin(r)))
}

// AddProductHandler handles POST /api/v1/products
func (a *App) AddProductHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AddProductRequest
	if !a.bind(w, r, &req) {
		return
	}

	product, err := a.svc.Products.AddProduct(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

// GetProductHandler handles GET /api/v1/products/{id}
func (a *App) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	product, err := a.svc.Products.GetProduct(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// ListVendorsHandler handles GET /api/v1/vendors?q=&lat=&lng=
func (a *App) ListVendorsHandler(w http.ResponseWriter, r *http.Request) {
	vendors, err := a.svc.Vendors.GetVendors(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if len(vendors) == 0 && isDemo(r) {
		vendors = sampledata.Vendors()
	}

	writeJSON(w, http.StatusOK, catalog.FilterVendors(vendors, r.URL.Query().Get("q"), origin(r)))
}

// GetVendorHandler handles GET /api/v1/vendors/{id}
func (a *App) GetVendorHandler(w http.ResponseWriter, r *http.Request) {
	vendor, err := a.svc.Vendors.GetVendor(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vendor)
}

// VendorDashboardHandler handles GET /api/v1/vendors/{id}/dashboard
func (a *App) VendorDashboardHandler(w http.ResponseWriter, r *http.Request) {
	dash, err := a.svc.Dashboards.Vendor(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

// BuyerDashboardHandler handles GET /api/v1/dashboard
func (a *App) BuyerDashboardHandler(w http.ResponseWriter, r *http.Request) {
	dash, err := a.svc.Dashboards.Buyer(r.Context(), isDemo(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

// ProfileHandler handles GET /api/v1/profile
func (a *App) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	profile, err := a.svc.Users.GetProfile(r.Context(), user.ID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// CalculateDistanceHandler handles POST /rpc/calculate_distance and returns
// the great-circle distance in kilometres.
func (a *App) CalculateDistanceHandler(w http.ResponseWriter, r *http.Request) {
	var req models.DistanceRequest
	if !a.bind(w, r, &req) {
		return
	}

	km := geo.DistanceKm(geo.Point{Lat: req.Lat1, Lng: req.Lon1}, geo.Point{Lat: req.Lat2, Lng: req.Lon2})
	writeJSON(w, http.StatusOK, km)
}

func isDemo(r *http.Request) bool {
	_, ok := session.FromContext(r.Context()).(session.Demo)
	return ok
}

// currentUser is only valid behind RequireAuth
func currentUser(r *http.Request) *models.User {
	return session.FromContext(r.Context()).(session.Authenticated).User
}

// origin reads the caller's lat/lng query parameters, falling back to the
// default origin when either is missing or malformed.
func origin(r *http.Request) geo.Point {
	q := r.URL.Query()
	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(q.Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		return geo.Origin(nil)
	}
	return geo.Origin(&geo.Point{Lat: lat, Lng: lng})
}
