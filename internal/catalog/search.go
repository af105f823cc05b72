// Package catalog filters and orders marketplace listings for browsing.
package catalog

import (
	"sort"
	"strings"

	"github.com/cartpool/marketplace-api/internal/geo"
	"github.com/cartpool/marketplace-api/internal/models"
)

// Matches reports whether term is a case-insensitive substring of name or
// category. An empty term matches everything.
func Matches(term, name, category string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), term) ||
		strings.Contains(strings.ToLower(category), term)
}

// Listing is a catalog entry annotated with its distance from the caller.
// DistanceKm is nil when the entry has no stored coordinates.
type Listing[T any] struct {
	Item       T        `json:"item"`
	DistanceKm *float64 `json:"distance_km"`
	Distance   string   `json:"distance,omitempty"`
}

// FilterProducts keeps products matching term and annotates each with the
// distance from origin to its vendor.
func FilterProducts(products []models.Product, term string, origin geo.Point) []Listing[models.Product] {
	out := make([]Listing[models.Product], 0, len(products))
	for _, p := range products {
		if !Matches(term, p.Name, p.Category) {
			continue
		}
		var lat, lng *float64
		if p.Vendor != nil {
			lat, lng = p.Vendor.Latitude, p.Vendor.Longitude
		}
		out = append(out, annotate(p, origin, lat, lng))
	}
	sortByDistance(out)
	return out
}

// FilterVendors keeps vendors matching term and annotates each with its
// distance from origin.
func FilterVendors(vendors []models.Vendor, term string, origin geo.Point) []Listing[models.Vendor] {
	out := make([]Listing[models.Vendor], 0, len(vendors))
	for _, v := range vendors {
		if !Matches(term, v.Name, v.Category) {
			continue
		}
		out = append(out, annotate(v, origin, v.Latitude, v.Longitude))
	}
	sortByDistance(out)
	return out
}

func annotate[T any](item T, origin geo.Point, lat, lng *float64) Listing[T] {
	l := Listing[T]{Item: item}
	if lat == nil || lng == nil {
		return l
	}
	km := geo.DistanceKm(origin, geo.Point{Lat: *lat, Lng: *lng})
	l.DistanceKm = &km
	l.Distance = geo.Format(km)
	return l
}

// sortByDistance orders nearest first; entries without coordinates keep
// their relative order at the end.
func sortByDistance[T any](listings []Listing[T]) {
	sort.SliceStable(listings, func(i, j int) bool {
		a, b := listings[i].DistanceKm, listings[j].DistanceKm
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return *a < *b
	})
}
