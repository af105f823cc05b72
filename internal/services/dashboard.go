package services

import (
	"context"

	"github.com/cartpool/marketplace-api/internal/models"
	"github.com/cartpool/marketplace-api/internal/sampledata"
	"golang.org/x/sync/errgroup"
)

// DashboardService composes the landing views from the other services
type DashboardService struct {
	carts    *CartService
	vendors  *VendorService
	products *ProductService
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(carts *CartService, vendors *VendorService, products *ProductService) *DashboardService {
	return &DashboardService{
		carts:    carts,
		vendors:  vendors,
		products: products,
	}
}

// Buyer fetches carts and vendors concurrently. Empty collections are
// replaced by sample records only when withSamples is set; fetch errors are
// never masked.
func (s *DashboardService) Buyer(ctx context.Context, withSamples bool) (*models.BuyerDashboard, error) {
	var carts []models.Cart
	var vendors []models.Vendor

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		carts, err = s.carts.GetCarts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		vendors, err = s.vendors.GetVendors(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dash := &models.BuyerDashboard{Carts: carts, Vendors: vendors}
	if withSamples {
		if len(dash.Carts) == 0 {
			dash.Carts = sampledata.Carts()
			dash.Demo = true
		}
		if len(dash.Vendors) == 0 {
			dash.Vendors = sampledata.Vendors()
			dash.Demo = true
		}
	}
	return dash, nil
}

// Vendor fetches a vendor with its catalog and the carts addressed to it
func (s *DashboardService) Vendor(ctx context.Context, vendorID string) (*models.VendorDashboard, error) {
	dash := &models.VendorDashboard{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dash.Vendor, err = s.vendors.GetVendor(gctx, vendorID)
		return err
	})
	g.Go(func() error {
		var err error
		dash.Products, err = s.products.ListVendorProducts(gctx, vendorID)
		return err
	})
	g.Go(func() error {
		var err error
		dash.Carts, err = s.carts.ListVendorCarts(gctx, vendorID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dash, nil
}
