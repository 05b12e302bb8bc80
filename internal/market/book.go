package market

import (
	"sort"
	"time"
)

// Book holds match-ready views of every item's listings, rebuilt from a
// snapshot on each market session open. It performs no locking: callers
// mutating the book must hold the serialized slot for the acting user.
type Book struct {
	items []*ItemPricing
	index map[ItemKey]*ItemPricing
	ttl   time.Duration
	now   func() time.Time
}

// NewBook builds a book from a snapshot. Items are flattened in a stable
// order (type, then id) so page numbers are reproducible across rebuilds.
func NewBook(snap Snapshot, ttl time.Duration) *Book {
	if ttl <= 0 {
		ttl = DefaultListingTTL
	}
	b := &Book{
		index: make(map[ItemKey]*ItemPricing),
		ttl:   ttl,
		now:   time.Now,
	}

	types := make([]string, 0, len(snap))
	for t := range snap {
		types = append(types, t)
	}
	sort.Strings(types)

	for _, t := range types {
		ids := make([]string, 0, len(snap[t]))
		for id := range snap[t] {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			orders := snap[t][id]
			p := &ItemPricing{Key: ItemKey{Type: t, ID: id}}
			for i := range orders.Buyers {
				l := orders.Buyers[i]
				p.InstaSells = append(p.InstaSells, &l)
			}
			for i := range orders.Sellers {
				l := orders.Sellers[i]
				p.InstaBuys = append(p.InstaBuys, &l)
			}
			sortSide(p.InstaSells, SideInstaSell)
			sortSide(p.InstaBuys, SideInstaBuy)
			b.items = append(b.items, p)
			b.index[p.Key] = p
		}
	}
	return b
}

func sortSide(listings []*Listing, side Side) {
	sort.SliceStable(listings, func(i, j int) bool {
		return sideLess(listings[i], listings[j], side)
	})
}

// sideLess orders listings by price-time priority: best price first,
// earlier ListedAt wins ties.
func sideLess(a, b *Listing, side Side) bool {
	if a.Price != b.Price {
		if side == SideInstaSell {
			return a.Price > b.Price
		}
		return a.Price < b.Price
	}
	return a.ListedAt < b.ListedAt
}

// Items returns the flattened item sequence in page order.
func (b *Book) Items() []*ItemPricing {
	return b.items
}

// Item looks up one item's pricing.
func (b *Book) Item(key ItemKey) (*ItemPricing, bool) {
	p, ok := b.index[key]
	return p, ok
}

// TTL returns the listing time-to-live the book was built with.
func (b *Book) TTL() time.Duration {
	return b.ttl
}

// AddListing inserts a listing on one side of an item's book, preserving
// the side's sort order. The item is created if it has no listings yet.
// An edition serial may sit in at most one active listing at a time,
// counting both sides.
func (b *Book) AddListing(key ItemKey, side Side, l *Listing) error {
	if l == nil || l.Price <= 0 || l.Quantity <= 0 {
		return ErrInvalidListing
	}
	if len(l.Editions) > 0 {
		if p, ok := b.index[key]; ok {
			now := b.now()
			for _, ed := range l.Editions {
				if editionListed(p.InstaSells, ed, now, b.ttl) || editionListed(p.InstaBuys, ed, now, b.ttl) {
					return ErrEditionListed
				}
			}
		}
	}

	p, ok := b.index[key]
	if !ok {
		p = &ItemPricing{Key: key}
		b.items = append(b.items, p)
		b.index[key] = p
	}

	listings := b.side(p, side)
	at := sort.Search(len(*listings), func(i int) bool {
		return sideLess(l, (*listings)[i], side)
	})
	*listings = append(*listings, nil)
	copy((*listings)[at+1:], (*listings)[at:])
	(*listings)[at] = l
	return nil
}

func editionListed(listings []*Listing, edition int64, now time.Time, ttl time.Duration) bool {
	for _, l := range listings {
		if l.ActiveAt(now, ttl) && l.HasEdition(edition) {
			return true
		}
	}
	return false
}

func (b *Book) side(p *ItemPricing, side Side) *[]*Listing {
	if side == SideInstaSell {
		return &p.InstaSells
	}
	return &p.InstaBuys
}

// BestActive returns the first active listing on a side, honoring the
// existing sort order. Edition 0 means any edition; a nonzero edition
// restricts the scan to listings carrying that serial.
func (b *Book) BestActive(key ItemKey, side Side, edition int64) (*Listing, error) {
	p, ok := b.index[key]
	if !ok {
		return nil, ErrItemNotFound
	}
	now := b.now()
	for _, l := range *b.side(p, side) {
		if !l.ActiveAt(now, b.ttl) {
			continue
		}
		if edition != 0 && !l.HasEdition(edition) {
			continue
		}
		return l, nil
	}
	return nil, ErrListingUnavailable
}

// Fill records quantity matched against a listing. The listing becomes
// inactive once fully filled.
func (b *Book) Fill(l *Listing, quantity int64) error {
	if quantity <= 0 || l.Filled+quantity > l.Quantity {
		return ErrOverFill
	}
	l.Filled += quantity
	return nil
}

// Claim records quantity the owner has collected out of the filled amount.
func (b *Book) Claim(l *Listing, quantity int64) error {
	if quantity <= 0 || l.Claimed+quantity > l.Filled {
		return ErrOverClaim
	}
	l.Claimed += quantity
	return nil
}

// Volumes aggregates the remaining quantity across active listings on each
// side, for display. Expired listings are excluded.
func (b *Book) Volumes(key ItemKey, edition int64) (sellVol, buyVol int64, err error) {
	p, ok := b.index[key]
	if !ok {
		return 0, 0, ErrItemNotFound
	}
	now := b.now()
	for _, l := range p.InstaSells {
		if !l.ActiveAt(now, b.ttl) {
			continue
		}
		if edition != 0 && !l.HasEdition(edition) {
			continue
		}
		sellVol += l.Remaining()
	}
	for _, l := range p.InstaBuys {
		if !l.ActiveAt(now, b.ttl) {
			continue
		}
		if edition != 0 && !l.HasEdition(edition) {
			continue
		}
		buyVol += l.Remaining()
	}
	return sellVol, buyVol, nil
}

// UserOrders collects the given user's listings on both sides, in page
// order. Inactive listings are included so fills remain claimable.
func (b *Book) UserOrders(userID string) (buys, sells []UserOrder) {
	for _, p := range b.items {
		for _, l := range p.InstaSells {
			if l.OwnerID != userID {
				continue
			}
			buys = append(buys, UserOrder{Key: p.Key, Side: SideInstaSell, Listing: l})
		}
		for _, l := range p.InstaBuys {
			if l.OwnerID != userID {
				continue
			}
			sells = append(sells, UserOrder{Key: p.Key, Side: SideInstaBuy, Listing: l})
		}
	}
	return buys, sells
}

// Sweep drops listings that are expired or fully filled and have no
// unclaimed fills left. Returns the number of listings removed. Items keep
// their page position even when emptied.
func (b *Book) Sweep() int {
	now := b.now()
	removed := 0
	for _, p := range b.items {
		p.InstaSells, removed = sweepSide(p.InstaSells, now, b.ttl, removed)
		p.InstaBuys, removed = sweepSide(p.InstaBuys, now, b.ttl, removed)
	}
	return removed
}

func sweepSide(listings []*Listing, now time.Time, ttl time.Duration, removed int) ([]*Listing, int) {
	kept := listings[:0]
	for _, l := range listings {
		if !l.ActiveAt(now, ttl) && l.Unclaimed() == 0 {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	return kept, removed
}

// Snapshot rebuilds the persisted form of the book for saving.
func (b *Book) Snapshot() Snapshot {
	snap := make(Snapshot)
	for _, p := range b.items {
		byID, ok := snap[p.Key.Type]
		if !ok {
			byID = make(map[string]ItemOrders)
			snap[p.Key.Type] = byID
		}
		var orders ItemOrders
		for _, l := range p.InstaSells {
			orders.Buyers = append(orders.Buyers, *l)
		}
		for _, l := range p.InstaBuys {
			orders.Sellers = append(orders.Sellers, *l)
		}
		byID[p.Key.ID] = orders
	}
	return snap
}
