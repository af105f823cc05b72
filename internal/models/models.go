package models

import (
	"time"

	"github.com/cartpool/marketplace-api/internal/cartview"
)

// Cart statuses
const (
	CartStatusOpen         = "open"
	CartStatusThresholdMet = "threshold_met"
	CartStatusOrdered      = "ordered"
	CartStatusCancelled    = "cancelled"
)

// Profile roles
const (
	RoleBuyer  = "buyer"
	RoleVendor = "vendor"
)

// User is an authenticated identity
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile holds the business details of a user
type Profile struct {
	ID           string    `json:"id"`
	UserID       *string   `json:"user_id"`
	Role         *string   `json:"role"`
	BusinessName *string   `json:"business_name"`
	BusinessType *string   `json:"business_type"`
	Location     *string   `json:"location"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Vendor is a supplier listed in the marketplace
type Vendor struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Location      string    `json:"location"`
	Latitude      *float64  `json:"latitude"`
	Longitude     *float64  `json:"longitude"`
	Rating        *float64  `json:"rating"`
	ProductsCount *int      `json:"products_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// VendorSummary is the vendor subset joined onto carts and products
type VendorSummary struct {
	Name      string   `json:"name"`
	Location  string   `json:"location"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Product is an item a vendor sells in bulk
type Product struct {
	ID          string         `json:"id"`
	VendorID    *string        `json:"vendor_id"`
	Name        string         `json:"name"`
	Description *string        `json:"description"`
	Price       float64        `json:"price"`
	Unit        string         `json:"unit"`
	MinOrder    *int           `json:"min_order"`
	Category    string         `json:"category"`
	InStock     *bool          `json:"in_stock"`
	ImageURL    *string        `json:"image_url"`
	Vendor      *VendorSummary `json:"vendor,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Cart is a shared, vendor-scoped bulk order
type Cart struct {
	ID               string             `json:"id"`
	Title            string             `json:"title"`
	Description      *string            `json:"description"`
	Status           string             `json:"status"`
	MinValue         float64            `json:"min_value"`
	CurrentValue     float64            `json:"current_value"`
	Location         *string            `json:"location"`
	Latitude         *float64           `json:"latitude"`
	Longitude        *float64           `json:"longitude"`
	VendorID         *string            `json:"vendor_id"`
	CreatedBy        *string            `json:"created_by"`
	ParticipantCount int                `json:"participant_count"`
	Vendor           *VendorSummary     `json:"vendor,omitempty"`
	Progress         *cartview.Progress `json:"progress,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// WithProgress fills in the derived progress bar
func (c *Cart) WithProgress() *Cart {
	p := cartview.For(c.Status, c.CurrentValue, c.MinValue)
	c.Progress = &p
	return c
}

// CartParticipant links a buyer to a cart
type CartParticipant struct {
	ID       string    `json:"id"`
	CartID   *string   `json:"cart_id"`
	UserID   *string   `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// CartItem is a line item contributing to a cart's current value
type CartItem struct {
	ID         string    `json:"id"`
	CartID     *string   `json:"cart_id"`
	ProductID  *string   `json:"product_id"`
	UserID     *string   `json:"user_id"`
	Quantity   int       `json:"quantity"`
	UnitPrice  float64   `json:"unit_price"`
	TotalPrice float64   `json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`
}

// CartDetail is a cart with its items and participants
type CartDetail struct {
	*Cart
	Items        []CartItem        `json:"items"`
	Participants []CartParticipant `json:"participants"`
}

// BuyerDashboard is what a buyer sees on landing
type BuyerDashboard struct {
	Carts   []Cart   `json:"carts"`
	Vendors []Vendor `json:"vendors"`
	Demo    bool     `json:"demo"`
}

// VendorDashboard lists a vendor's catalog and the carts addressed to it
type VendorDashboard struct {
	Vendor   *Vendor   `json:"vendor"`
	Products []Product `json:"products"`
	Carts    []Cart    `json:"carts"`
}

// SignUpRequest represents a request to register a user and profile
type SignUpRequest struct {
	Email        string   `json:"email" validate:"required,email"`
	Password     string   `json:"password" validate:"required,min=6"`
	Role         string   `json:"role" validate:"omitempty,oneof=buyer vendor"`
	BusinessName string   `json:"business_name" validate:"max=255"`
	BusinessType string   `json:"business_type" validate:"max=255"`
	Location     string   `json:"location" validate:"max=255"`
	Latitude     *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

// SignInRequest represents a password sign-in
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateCartRequest represents a request to open a pooled cart
type CreateCartRequest struct {
	Title       string   `json:"title" validate:"required,max=255"`
	Description string   `json:"description"`
	MinValue    float64  `json:"min_value" validate:"required,gt=0"`
	Location    string   `json:"location" validate:"max=255"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	VendorID    string   `json:"vendor_id" validate:"omitempty,uuid"`
}

// AddProductRequest represents a request to list a product
type AddProductRequest struct {
	VendorID    string  `json:"vendor_id" validate:"omitempty,uuid"`
	Name        string  `json:"name" validate:"required,max=255"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Unit        string  `json:"unit" validate:"max=64"`
	MinOrder    int     `json:"min_order" validate:"gte=0"`
	Category    string  `json:"category" validate:"required,max=128"`
	InStock     *bool   `json:"in_stock"`
	ImageURL    string  `json:"image_url" validate:"omitempty,url"`
}

// AddCartItemRequest represents a contribution to a cart
type AddCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// UpdateCartStatusRequest represents a manual status change
type UpdateCartStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// DistanceRequest is the argument of the calculate_distance RPC
type DistanceRequest struct {
	Lat1 float64 `json:"lat1" validate:"gte=-90,lte=90"`
	Lon1 float64 `json:"lon1" validate:"gte=-180,lte=180"`
	Lat2 float64 `json:"lat2" validate:"gte=-90,lte=90"`
	Lon2 float64 `json:"lon2" validate:"gte=-180,lte=180"`
}
