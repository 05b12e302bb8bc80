package market

import (
	"errors"
	"time"
)

const (
	DefaultPageSize      = 8
	DefaultOrdersPerPage = 4
	DefaultListingTTL    = 7 * 24 * time.Hour
)

var (
	ErrInvalidListing     = errors.New("listing price and quantity must be > 0")
	ErrEditionListed      = errors.New("edition already carried by an active listing")
	ErrOverFill           = errors.New("fill exceeds listing quantity")
	ErrOverClaim          = errors.New("claim exceeds filled quantity")
	ErrListingUnavailable = errors.New("no active listing available")
	ErrItemNotFound       = errors.New("item not found")
	ErrOrderLimit         = errors.New("open order limit reached")
	ErrPriceLimit         = errors.New("price exceeds maximum allowed")
	ErrInsufficientBucks  = errors.New("insufficient bucks")
	ErrNothingToClaim     = errors.New("nothing to claim on this order")
)
