package market

import "time"

// OverviewRow summarizes one item on the overview page. A zero price means
// no active listings on that side.
type OverviewRow struct {
	Key            ItemKey
	Name           string
	InstaBuyPrice  int64 // cheapest active sell offer
	InstaSellPrice int64 // best active buy offer
	SellVolume     int64 // units offered for sale
	BuyVolume      int64 // units wanted by buyers
}

type OverviewPayload struct {
	Page    int
	MaxPage int
	Rows    []OverviewRow
}

type ItemDetailPayload struct {
	Key            ItemKey
	Name           string
	Page           int
	MaxPage        int
	Edition        int64
	InstaBuyPrice  int64
	InstaSellPrice int64
	SellVolume     int64
	BuyVolume      int64
	Editions       []int64 // distinct serials present across active listings
}

type UserOrderRow struct {
	Key       ItemKey
	Name      string
	Side      Side
	Price     int64
	Quantity  int64
	Filled    int64
	Unclaimed int64
	Expired   bool
	ListedAt  int64
}

type UserOrdersPayload struct {
	Page    int
	MaxPage int
	Rows    []UserOrderRow
}

func (s *Session) displayName(key ItemKey) string {
	if name, ok := s.namer.DisplayName(key.Type, key.ID); ok {
		return name
	}
	return key.ID
}

func (s *Session) bestPrices(p *ItemPricing, edition int64) (instaBuy, instaSell int64) {
	if l, err := s.book.BestActive(p.Key, SideInstaBuy, edition); err == nil {
		instaBuy = l.Price
	}
	if l, err := s.book.BestActive(p.Key, SideInstaSell, edition); err == nil {
		instaSell = l.Price
	}
	return instaBuy, instaSell
}

// OverviewPayload builds the current overview page.
func (s *Session) OverviewPayload() OverviewPayload {
	items := s.book.Items()
	out := OverviewPayload{
		Page:    s.state.Page,
		MaxPage: maxPage(len(items), s.cfg.PageSize),
	}
	start := s.state.Page * s.cfg.PageSize
	end := min(start+s.cfg.PageSize, len(items))
	if start > end {
		start = end
	}
	for _, p := range items[start:end] {
		buy, sell := s.bestPrices(p, 0)
		sellVol, buyVol, _ := s.book.Volumes(p.Key, 0)
		out.Rows = append(out.Rows, OverviewRow{
			Key:            p.Key,
			Name:           s.displayName(p.Key),
			InstaBuyPrice:  buy,
			InstaSellPrice: sell,
			SellVolume:     sellVol,
			BuyVolume:      buyVol,
		})
	}
	return out
}

// ItemDetailPayload builds the detail page for the item at the current
// page index, honoring the selected edition.
func (s *Session) ItemDetailPayload() (ItemDetailPayload, error) {
	items := s.book.Items()
	if len(items) == 0 {
		return ItemDetailPayload{}, ErrItemNotFound
	}
	p := items[s.state.Page]
	buy, sell := s.bestPrices(p, s.state.Edition)
	sellVol, buyVol, err := s.book.Volumes(p.Key, s.state.Edition)
	if err != nil {
		return ItemDetailPayload{}, err
	}
	return ItemDetailPayload{
		Key:            p.Key,
		Name:           s.displayName(p.Key),
		Page:           s.state.Page,
		MaxPage:        len(items) - 1,
		Edition:        s.state.Edition,
		InstaBuyPrice:  buy,
		InstaSellPrice: sell,
		SellVolume:     sellVol,
		BuyVolume:      buyVol,
		Editions:       s.activeEditions(p),
	}, nil
}

func (s *Session) activeEditions(p *ItemPricing) []int64 {
	now := time.Now()
	seen := make(map[int64]bool)
	var out []int64
	for _, side := range [][]*Listing{p.InstaSells, p.InstaBuys} {
		for _, l := range side {
			if !l.ActiveAt(now, s.cfg.ListingTTL) {
				continue
			}
			for _, ed := range l.Editions {
				if !seen[ed] {
					seen[ed] = true
					out = append(out, ed)
				}
			}
		}
	}
	return out
}

// UserOrdersPayload builds the current page of the acting user's orders,
// buy offers first, in listing page order.
func (s *Session) UserOrdersPayload() UserOrdersPayload {
	all := make([]UserOrder, 0, len(s.buyOrders)+len(s.sellOrders))
	all = append(all, s.buyOrders...)
	all = append(all, s.sellOrders...)

	out := UserOrdersPayload{
		Page:    s.state.Page,
		MaxPage: maxPage(len(all), s.cfg.OrdersPerPage),
	}
	start := s.state.Page * s.cfg.OrdersPerPage
	end := min(start+s.cfg.OrdersPerPage, len(all))
	if start > end {
		start = end
	}
	now := time.Now()
	for _, o := range all[start:end] {
		out.Rows = append(out.Rows, UserOrderRow{
			Key:       o.Key,
			Name:      s.displayName(o.Key),
			Side:      o.Side,
			Price:     o.Listing.Price,
			Quantity:  o.Listing.Quantity,
			Filled:    o.Listing.Filled,
			Unclaimed: o.Listing.Unclaimed(),
			Expired:   !o.Listing.ActiveAt(now, s.cfg.ListingTTL),
			ListedAt:  o.Listing.ListedAt,
		})
	}
	return out
}
