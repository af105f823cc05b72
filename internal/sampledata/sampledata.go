// Package sampledata holds the fixed records shown to demo sessions.
package sampledata

import (
	"time"

	"github.com/cartpool/marketplace-api/internal/models"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func str(s string) *string { return &s }
func num(f float64) *float64 { return &f }
func count(i int) *int { return &i }

// Carts returns the demo carts with progress filled in.
func Carts() []models.Cart {
	carts := []models.Cart{
		{
			ID:               "demo-cart-1",
			Title:            "Office Stationery Bulk Order",
			Status:           models.CartStatusOpen,
			MinValue:         5000,
			CurrentValue:     3200,
			Location:         str("Mumbai, MH"),
			ParticipantCount: 3,
			Vendor:           &models.VendorSummary{Name: "PaperPlus Supplies", Location: "Mumbai, MH"},
			CreatedAt:        epoch,
			UpdatedAt:        epoch,
		},
		{
			ID:               "demo-cart-2",
			Title:            "Packaging Materials",
			Status:           models.CartStatusThresholdMet,
			MinValue:         10000,
			CurrentValue:     12500,
			Location:         str("Delhi, DL"),
			ParticipantCount: 5,
			Vendor:           &models.VendorSummary{Name: "BoxCraft Industries", Location: "Delhi, DL"},
			CreatedAt:        epoch,
			UpdatedAt:        epoch,
		},
	}
	for i := range carts {
		carts[i].WithProgress()
	}
	return carts
}

// Vendors returns the demo vendors, best rated first.
func Vendors() []models.Vendor {
	return []models.Vendor{
		{
			ID:            "demo-vendor-1",
			Name:          "TechSupply Hub",
			Category:      "Electronics",
			Location:      "Bangalore, KA",
			Latitude:      num(12.9716),
			Longitude:     num(77.5946),
			Rating:        num(4.8),
			ProductsCount: count(45),
			CreatedAt:     epoch,
			UpdatedAt:     epoch,
		},
		{
			ID:            "demo-vendor-2",
			Name:          "FreshMart Wholesale",
			Category:      "Groceries",
			Location:      "Mumbai, MH",
			Latitude:      num(19.0760),
			Longitude:     num(72.8777),
			Rating:        num(4.6),
			ProductsCount: count(120),
			CreatedAt:     epoch,
			UpdatedAt:     epoch,
		},
	}
}

// Products returns the demo catalog.
func Products() []models.Product {
	inStock := true
	return []models.Product{
		{
			ID:          "demo-product-1",
			Name:        "Premium Copy Paper A4",
			Description: str("High-quality white copy paper for office use. 80gsm weight."),
			Price:       280,
			Unit:        "per ream",
			MinOrder:    count(10),
			Category:    "Stationery",
			InStock:     &inStock,
			Vendor:      &models.VendorSummary{Name: "PaperPlus Supplies", Location: "Mumbai, MH"},
			CreatedAt:   epoch,
			UpdatedAt:   epoch,
		},
		{
			ID:        "demo-product-2",
			Name:      "Bulk Printing Cartridges",
			Price:     1200,
			Unit:      "per piece",
			MinOrder:  count(5),
			Category:  "Electronics",
			InStock:   &inStock,
			Vendor:    &models.VendorSummary{Name: "TechSupply Hub", Location: "Bangalore, KA"},
			CreatedAt: epoch,
			UpdatedAt: epoch,
		},
	}
}
