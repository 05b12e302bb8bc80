package market

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"critterbot/internal/market/nameindex"
	"critterbot/internal/syncq"
)

// View selects which market screen a session is showing.
type View int

const (
	ViewOverview View = iota
	ViewItemDetail
	ViewUserOrders
)

func (v View) String() string {
	switch v {
	case ViewItemDetail:
		return "item_detail"
	case ViewUserOrders:
		return "user_orders"
	default:
		return "overview"
	}
}

// State is the session's cursor: current view, page within that view, and
// selected edition (0 = none). Each transition produces a new State.
type State struct {
	View    View
	Page    int
	Edition int64
}

func (st State) withView(v View) State {
	return State{View: v}
}

// Gateway loads and stores the persisted market snapshot. A save is atomic
// from the caller's point of view: it either fully succeeds or the prior
// snapshot remains authoritative.
type Gateway interface {
	LoadSnapshot(ctx context.Context) (Snapshot, error)
	SaveSnapshot(ctx context.Context, snap Snapshot) error
}

// Ledger adjusts user bucks balances. Implementations are only called from
// inside a serialized task.
type Ledger interface {
	Bucks(ctx context.Context, userID string) (int64, error)
	AdjustBucks(ctx context.Context, userID string, delta int64) error
}

// Namer resolves item display names for the name index and rendering.
type Namer interface {
	DisplayName(itemType, itemID string) (string, bool)
}

// Attachment is an opaque rendered artifact handed back to the dispatcher.
type Attachment struct {
	Name string
	Body []byte
}

// Renderer turns view payloads into attachments. The session never
// inspects the rendered output.
type Renderer interface {
	RenderOverview(ctx context.Context, p OverviewPayload) (Attachment, error)
	RenderItemDetail(ctx context.Context, p ItemDetailPayload) (Attachment, error)
	RenderUserOrders(ctx context.Context, p UserOrdersPayload) (Attachment, error)
}

// SessionConfig carries the tunables a session needs. Explicit injection,
// no ambient globals.
type SessionConfig struct {
	PageSize      int
	OrdersPerPage int
	ListingTTL    time.Duration
	MaxOrders     int   // open orders per user, 0 = unlimited
	MaxPrice      int64 // per-unit price cap, 0 = unlimited
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.OrdersPerPage <= 0 {
		c.OrdersPerPage = DefaultOrdersPerPage
	}
	if c.ListingTTL <= 0 {
		c.ListingTTL = DefaultListingTTL
	}
	return c
}

// Session drives one user's market interaction: it rebuilds the book and
// name index from a snapshot, pages through views, and funnels every
// mutation through the serial queue under the (interaction, user) key.
type Session struct {
	cfg      SessionConfig
	gateway  Gateway
	ledger   Ledger
	namer    Namer
	renderer Renderer
	queue    *syncq.Queue
	log      *slog.Logger

	userID        string
	interactionID string

	book       *Book
	names      *nameindex.Index
	buyOrders  []UserOrder
	sellOrders []UserOrder

	state State
}

// NewSession wires a session for one interaction. Open must be called
// before any view or mutation method.
func NewSession(
	cfg SessionConfig,
	gateway Gateway,
	ledger Ledger,
	namer Namer,
	renderer Renderer,
	queue *syncq.Queue,
	logger *slog.Logger,
	userID, interactionID string,
) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg:           cfg.withDefaults(),
		gateway:       gateway,
		ledger:        ledger,
		namer:         namer,
		renderer:      renderer,
		queue:         queue,
		log:           logger,
		userID:        userID,
		interactionID: interactionID,
	}
}

// queueKey identifies the serialization domain for this session's
// mutations: the acting user plus the originating interaction, so two
// near-simultaneous interactions from the same user cannot interleave.
func (s *Session) queueKey() string {
	return s.interactionID + s.userID
}

// Open pulls a snapshot and builds the session's working state.
func (s *Session) Open(ctx context.Context) error {
	snap, err := s.gateway.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	s.rebuild(snap)
	return nil
}

// Refresh re-pulls the snapshot and rebuilds book and index in place. The
// cursor keeps its view but resets the edition selection.
func (s *Session) Refresh(ctx context.Context) error {
	if err := s.Open(ctx); err != nil {
		return err
	}
	s.state.Edition = 0
	s.clampPage()
	return nil
}

func (s *Session) rebuild(snap Snapshot) {
	s.book = NewBook(snap, s.cfg.ListingTTL)
	s.names = nameindex.New()
	for i, p := range s.book.Items() {
		name, ok := s.namer.DisplayName(p.Key.Type, p.Key.ID)
		if !ok {
			continue
		}
		// Pages in the index are 1-based, matching user-facing input.
		s.names.Insert(name, i+1)
	}
	s.buyOrders, s.sellOrders = s.book.UserOrders(s.userID)
}

// State returns the current cursor.
func (s *Session) State() State {
	return s.state
}

// Book exposes the current book for read-only display use.
func (s *Session) Book() *Book {
	return s.book
}

// SetView switches screens and resets page and edition.
func (s *Session) SetView(v View) {
	s.state = s.state.withView(v)
}

// Next advances one page, clamped to the view's bounds.
func (s *Session) Next() {
	s.state.Page++
	s.state.Edition = 0
	s.clampPage()
}

// Prev goes back one page, clamped at zero.
func (s *Session) Prev() {
	s.state.Page--
	s.state.Edition = 0
	s.clampPage()
}

// SelectEdition pins the item-detail view to one edition serial.
func (s *Session) SelectEdition(edition int64) {
	s.state.Edition = edition
}

// Jump resolves free-form page input: a number jumps to that 1-based page;
// anything else is treated as an item name on the item-detail view and
// resolved through the name index. Out-of-range values clamp.
func (s *Session) Jump(input string) {
	input = nameindex.Normalize(input)
	page := 1
	if v, err := strconv.Atoi(input); err == nil {
		page = v
	} else if s.state.View == ViewItemDetail {
		if v, ok := s.names.Find(input); ok {
			page = v
		}
	}
	s.state.Page = page - 1
	s.state.Edition = 0
	s.clampPage()
}

// maxPage returns the last reachable 0-based page for n entries, keeping
// the final partial page reachable.
func maxPage(n, perPage int) int {
	if n <= 0 {
		return 0
	}
	return (n + perPage - 1) / perPage - 1
}

func (s *Session) clampPage() {
	var limit int
	switch s.state.View {
	case ViewItemDetail:
		limit = len(s.book.Items()) - 1
		if limit < 0 {
			limit = 0
		}
	case ViewUserOrders:
		limit = maxPage(len(s.buyOrders)+len(s.sellOrders), s.cfg.OrdersPerPage)
	default:
		limit = maxPage(len(s.book.Items()), s.cfg.PageSize)
	}
	if s.state.Page > limit {
		s.state.Page = limit
	}
	if s.state.Page < 0 {
		s.state.Page = 0
	}
}

// Render produces the attachment for the current view.
func (s *Session) Render(ctx context.Context) (Attachment, error) {
	switch s.state.View {
	case ViewItemDetail:
		p, err := s.ItemDetailPayload()
		if err != nil {
			return Attachment{}, err
		}
		return s.renderer.RenderItemDetail(ctx, p)
	case ViewUserOrders:
		return s.renderer.RenderUserOrders(ctx, s.UserOrdersPayload())
	default:
		return s.renderer.RenderOverview(ctx, s.OverviewPayload())
	}
}

// mutate runs fn inside the session's serialized slot against a freshly
// loaded book, then persists and adopts the result. A failed task leaves
// the stored snapshot untouched and reaches only this caller.
func (s *Session) mutate(ctx context.Context, fn func(ctx context.Context, book *Book) error) error {
	return s.queue.Do(ctx, s.queueKey(), func(ctx context.Context) error {
		snap, err := s.gateway.LoadSnapshot(ctx)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		book := NewBook(snap, s.cfg.ListingTTL)
		if err := fn(ctx, book); err != nil {
			return err
		}
		if err := s.gateway.SaveSnapshot(ctx, book.Snapshot()); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		s.rebuild(book.Snapshot())
		s.clampPage()
		return nil
	})
}

// PlaceListing places a standing offer. Buy offers escrow the full notional
// up front; sell offers pay out as fills are claimed.
func (s *Session) PlaceListing(ctx context.Context, key ItemKey, side Side, price, quantity int64, editions []int64) error {
	if price <= 0 || quantity <= 0 {
		return ErrInvalidListing
	}
	if s.cfg.MaxPrice > 0 && price > s.cfg.MaxPrice {
		return ErrPriceLimit
	}
	return s.mutate(ctx, func(ctx context.Context, book *Book) error {
		if s.cfg.MaxOrders > 0 {
			buys, sells := book.UserOrders(s.userID)
			if len(buys)+len(sells) >= s.cfg.MaxOrders {
				return ErrOrderLimit
			}
		}
		if side == SideInstaSell {
			notional := price * quantity
			bucks, err := s.ledger.Bucks(ctx, s.userID)
			if err != nil {
				return err
			}
			if bucks < notional {
				return ErrInsufficientBucks
			}
			if err := s.ledger.AdjustBucks(ctx, s.userID, -notional); err != nil {
				return err
			}
		}
		now := time.Now().UnixMilli()
		dates := make([]int64, len(editions))
		for i := range dates {
			dates[i] = now
		}
		return book.AddListing(key, side, &Listing{
			OwnerID:      s.userID,
			Price:        price,
			Quantity:     quantity,
			Editions:     editions,
			EditionDates: dates,
			ListedAt:     now,
		})
	})
}

// InstaBuy buys quantity of an item from the best standing sell offers,
// filling across listings in price-time order. The buyer pays each fill's
// listing price; sellers collect via claims.
func (s *Session) InstaBuy(ctx context.Context, key ItemKey, quantity, edition int64) error {
	if quantity <= 0 {
		return ErrInvalidListing
	}
	return s.mutate(ctx, func(ctx context.Context, book *Book) error {
		return s.fillAgainst(ctx, book, key, SideInstaBuy, quantity, edition, true)
	})
}

// InstaSell sells quantity into the best standing buy offers. The seller
// is credited each fill immediately; buy offers escrowed their bucks at
// placement.
func (s *Session) InstaSell(ctx context.Context, key ItemKey, quantity, edition int64) error {
	if quantity <= 0 {
		return ErrInvalidListing
	}
	return s.mutate(ctx, func(ctx context.Context, book *Book) error {
		return s.fillAgainst(ctx, book, key, SideInstaSell, quantity, edition, false)
	})
}

func (s *Session) fillAgainst(ctx context.Context, book *Book, key ItemKey, side Side, quantity, edition int64, debit bool) error {
	remaining := quantity
	var notional, filled int64

	for remaining > 0 {
		best, err := book.BestActive(key, side, edition)
		if err != nil {
			if filled > 0 && err == ErrListingUnavailable {
				break // partial execution, fill what was there
			}
			return err
		}
		qty := min(remaining, best.Remaining())
		if err := book.Fill(best, qty); err != nil {
			return err
		}
		notional += best.Price * qty
		filled += qty
		remaining -= qty
	}

	if debit {
		bucks, err := s.ledger.Bucks(ctx, s.userID)
		if err != nil {
			return err
		}
		if bucks < notional {
			return ErrInsufficientBucks
		}
		return s.ledger.AdjustBucks(ctx, s.userID, -notional)
	}
	return s.ledger.AdjustBucks(ctx, s.userID, notional)
}

// ClaimOrder collects everything filled but unclaimed on one of the acting
// user's orders. Sell-order owners are paid their listing price per unit;
// buy-order owners only mark the goods collected.
func (s *Session) ClaimOrder(ctx context.Context, key ItemKey, side Side, listedAt int64) error {
	return s.mutate(ctx, func(ctx context.Context, book *Book) error {
		p, ok := book.Item(key)
		if !ok {
			return ErrItemNotFound
		}
		for _, l := range *book.side(p, side) {
			if l.OwnerID != s.userID || l.ListedAt != listedAt {
				continue
			}
			qty := l.Unclaimed()
			if qty == 0 {
				return ErrNothingToClaim
			}
			if err := book.Claim(l, qty); err != nil {
				return err
			}
			if side == SideInstaBuy {
				return s.ledger.AdjustBucks(ctx, s.userID, l.Price*qty)
			}
			return nil
		}
		return ErrListingUnavailable
	})
}
