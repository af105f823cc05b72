package api

import (
	"net/http"

	"github.com/cartpool/marketplace-api/internal/models"
	"github.com/cartpool/marketplace-api/internal/sampledata"
	"github.com/gorilla/mux"
)

// ListCartsHandler handles GET /api/v1/carts
func (a *App) ListCartsHandler(w http.ResponseWriter, r *http.Request) {
	carts, err := a.svc.Carts.GetCarts(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if len(carts) == 0 && isDemo(r) {
		carts = sampledata.Carts()
	}
	writeJSON(w, http.StatusOK, carts)
}

// CreateCartHandler handles POST /api/v1/carts
func (a *App) CreateCartHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCartRequest
	if !a.bind(w, r, &req) {
		return
	}

	cart, err := a.svc.Carts.CreateCart(r.Context(), currentUser(r).ID, req)
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, cart)
}

// GetCartHandler handles GET /api/v1/carts/{id}
func (a *App) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	cart, err := a.svc.Carts.GetCart(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// JoinCartHandler handles POST /api/v1/carts/{id}/join
func (a *App) JoinCartHandler(w http.ResponseWriter, r *http.Request) {
	participant, err := a.svc.Carts.JoinCart(r.Context(), mux.Vars(r)["id"], currentUser(r).ID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, participant)
}

// AddCartItemHandler handles POST /api/v1/carts/{id}/items
func (a *App) AddCartItemHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AddCartItemRequest
	if !a.bind(w, r, &req) {
		return
	}

	item, cart, err := a.svc.Carts.AddCartItem(r.Context(), mux.Vars(r)["id"], currentUser(r).ID, req)
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"item": item, "cart": cart})
}

// UpdateCartStatusHandler handles PUT /api/v1/carts/{id}/status
func (a *App) UpdateCartStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateCartStatusRequest
	if !a.bind(w, r, &req) {
		return
	}

	cart, err := a.svc.Carts.UpdateCartStatus(r.Context(), mux.Vars(r)["id"], currentUser(r).ID, req.Status)
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// PlaceCartOrderHandler handles POST /api/v1/carts/{id}/order
func (a *App) PlaceCartOrderHandler(w http.ResponseWriter, r *http.Request) {
	cart, err := a.svc.Carts.PlaceCartOrder(r.Context(), mux.Vars(r)["id"], currentUser(r).ID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}
