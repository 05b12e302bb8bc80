package market

import "time"

// Side selects one ordering of an item's listings, named from the acting
// user's point of view: SideInstaSell holds standing buy offers the user can
// sell into immediately, SideInstaBuy holds standing sell offers the user
// can buy from immediately.
type Side int

const (
	SideInstaSell Side = iota
	SideInstaBuy
)

func (s Side) String() string {
	if s == SideInstaSell {
		return "insta_sell"
	}
	return "insta_buy"
}

// Listing is one standing offer on one side of an item's book.
// Price, Filled and Claimed are mutated only inside a serialized task
// owned by the listing's user.
type Listing struct {
	OwnerID      string  `json:"owner_id"`
	Price        int64   `json:"price"`
	Quantity     int64   `json:"quantity"`
	Filled       int64   `json:"filled"`
	Claimed      int64   `json:"claimed"`
	Editions     []int64 `json:"editions,omitempty"`
	EditionDates []int64 `json:"edition_dates,omitempty"`
	ListedAt     int64   `json:"listed_at"` // epoch millis
}

// Remaining reports the unfilled quantity.
func (l *Listing) Remaining() int64 {
	return l.Quantity - l.Filled
}

// Unclaimed reports filled quantity the owner has not claimed yet.
func (l *Listing) Unclaimed() int64 {
	return l.Filled - l.Claimed
}

// ActiveAt reports whether the listing can still match: not fully filled
// and not past its TTL.
func (l *Listing) ActiveAt(now time.Time, ttl time.Duration) bool {
	if l.Filled >= l.Quantity {
		return false
	}
	return l.ListedAt+ttl.Milliseconds() >= now.UnixMilli()
}

// HasEdition reports whether the listing carries the given edition serial.
func (l *Listing) HasEdition(edition int64) bool {
	for _, e := range l.Editions {
		if e == edition {
			return true
		}
	}
	return false
}

// ItemKey identifies an item across the market.
type ItemKey struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// ItemPricing owns both orderings of an item's listings. InstaSells stays
// sorted by price descending, InstaBuys ascending, ties broken by earlier
// ListedAt.
type ItemPricing struct {
	Key        ItemKey
	InstaSells []*Listing
	InstaBuys  []*Listing
}

// ItemOrders is the persisted shape of one item's listings. Buyers are
// standing buy offers (served as insta-sells), Sellers standing sell
// offers (served as insta-buys).
type ItemOrders struct {
	Buyers  []Listing `json:"buyers"`
	Sellers []Listing `json:"sellers"`
}

// Snapshot is the full persisted market state: item type -> item id -> orders.
type Snapshot map[string]map[string]ItemOrders

// UserOrder pairs a listing with the item it belongs to, for the
// per-user orders view.
type UserOrder struct {
	Key     ItemKey
	Side    Side
	Listing *Listing
}
