package sampledata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartsCarryProgress(t *testing.T) {
	carts := Carts()
	require.Len(t, carts, 2)

	require.NotNil(t, carts[0].Progress)
	assert.Equal(t, 64.0, carts[0].Progress.Percent)
	assert.Equal(t, "Open", carts[0].Progress.Label)

	require.NotNil(t, carts[1].Progress)
	assert.Equal(t, 100.0, carts[1].Progress.Percent)
	assert.Equal(t, "Ready to Order", carts[1].Progress.Label)
}

func TestVendorsOrderedByRating(t *testing.T) {
	vendors := Vendors()
	require.Len(t, vendors, 2)
	assert.Greater(t, *vendors[0].Rating, *vendors[1].Rating)
}

func TestCallsReturnFreshSlices(t *testing.T) {
	a := Products()
	a[0].Name = "changed"
	assert.Equal(t, "Premium Copy Paper A4", Products()[0].Name)
}
