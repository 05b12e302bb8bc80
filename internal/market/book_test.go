package market

import (
	"testing"
	"time"
)

var testKey = ItemKey{Type: "critters", ID: "capuchin"}

func newTestBook(t *testing.T) *Book {
	t.Helper()
	return NewBook(Snapshot{}, time.Hour)
}

func listing(owner string, price, qty, listedAt int64) *Listing {
	return &Listing{OwnerID: owner, Price: price, Quantity: qty, ListedAt: listedAt}
}

func TestAddListingKeepsPriceTimeOrder(t *testing.T) {
	b := newTestBook(t)

	// Buy offers: highest price first, earliest listing wins ties.
	for _, l := range []*Listing{
		listing("a", 50, 1, 300),
		listing("b", 90, 1, 200),
		listing("c", 90, 1, 100),
		listing("d", 70, 1, 50),
	} {
		if err := b.AddListing(testKey, SideInstaSell, l); err != nil {
			t.Fatalf("add buy offer: %v", err)
		}
	}
	p, ok := b.Item(testKey)
	if !ok {
		t.Fatalf("item missing after adds")
	}
	wantOwners := []string{"c", "b", "d", "a"}
	for i, want := range wantOwners {
		if got := p.InstaSells[i].OwnerID; got != want {
			t.Fatalf("buy offer %d: got %s want %s", i, got, want)
		}
	}

	// Sell offers: lowest price first.
	for _, l := range []*Listing{
		listing("x", 40, 1, 300),
		listing("y", 20, 1, 200),
		listing("z", 20, 1, 500),
	} {
		if err := b.AddListing(testKey, SideInstaBuy, l); err != nil {
			t.Fatalf("add sell offer: %v", err)
		}
	}
	wantOwners = []string{"y", "z", "x"}
	for i, want := range wantOwners {
		if got := p.InstaBuys[i].OwnerID; got != want {
			t.Fatalf("sell offer %d: got %s want %s", i, got, want)
		}
	}
}

func TestAddListingRejectsBadInput(t *testing.T) {
	b := newTestBook(t)
	cases := []*Listing{
		nil,
		listing("a", 0, 5, 1),
		listing("a", -10, 5, 1),
		listing("a", 10, 0, 1),
	}
	for i, l := range cases {
		if err := b.AddListing(testKey, SideInstaSell, l); err != ErrInvalidListing {
			t.Fatalf("case %d: got %v want ErrInvalidListing", i, err)
		}
	}
}

func TestAddListingRejectsDuplicateEdition(t *testing.T) {
	base := time.Now()
	b := NewBook(Snapshot{}, time.Hour)
	b.now = func() time.Time { return base }

	first := listing("a", 100, 1, base.UnixMilli())
	first.Editions = []int64{7}
	first.EditionDates = []int64{first.ListedAt}
	if err := b.AddListing(testKey, SideInstaBuy, first); err != nil {
		t.Fatalf("add first: %v", err)
	}

	// The serial is held by an active listing: rejected on both sides.
	dup := listing("b", 120, 1, base.UnixMilli())
	dup.Editions = []int64{7}
	dup.EditionDates = []int64{dup.ListedAt}
	if err := b.AddListing(testKey, SideInstaBuy, dup); err != ErrEditionListed {
		t.Fatalf("same side: got %v want ErrEditionListed", err)
	}
	if err := b.AddListing(testKey, SideInstaSell, dup); err != ErrEditionListed {
		t.Fatalf("other side: got %v want ErrEditionListed", err)
	}

	// A different serial on the same item is fine.
	other := listing("b", 120, 1, base.UnixMilli())
	other.Editions = []int64{8}
	other.EditionDates = []int64{other.ListedAt}
	if err := b.AddListing(testKey, SideInstaBuy, other); err != nil {
		t.Fatalf("different serial: %v", err)
	}

	// Once the holding listing expires the serial can be relisted.
	b.now = func() time.Time { return base.Add(2 * time.Hour) }
	relist := listing("c", 90, 1, base.Add(2*time.Hour).UnixMilli())
	relist.Editions = []int64{7}
	relist.EditionDates = []int64{relist.ListedAt}
	if err := b.AddListing(testKey, SideInstaBuy, relist); err != nil {
		t.Fatalf("relist after expiry: %v", err)
	}
}

func TestBestActiveSkipsExpiredAndFilled(t *testing.T) {
	base := time.Now()
	b := NewBook(Snapshot{}, time.Hour)
	b.now = func() time.Time { return base }

	stale := listing("old", 99, 1, base.Add(-2*time.Hour).UnixMilli())
	full := listing("full", 95, 2, base.UnixMilli())
	full.Filled = 2
	live := listing("live", 90, 1, base.UnixMilli())
	for _, l := range []*Listing{stale, full, live} {
		if err := b.AddListing(testKey, SideInstaSell, l); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	got, err := b.BestActive(testKey, SideInstaSell, 0)
	if err != nil {
		t.Fatalf("best active: %v", err)
	}
	if got.OwnerID != "live" {
		t.Fatalf("got owner %s want live", got.OwnerID)
	}
}

func TestBestActiveEditionFilter(t *testing.T) {
	b := newTestBook(t)
	b.now = func() time.Time { return time.UnixMilli(2) }
	plain := listing("plain", 10, 1, 1)
	serial := listing("serial", 50, 1, 2)
	serial.Editions = []int64{7}
	for _, l := range []*Listing{plain, serial} {
		if err := b.AddListing(testKey, SideInstaBuy, l); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	got, err := b.BestActive(testKey, SideInstaBuy, 7)
	if err != nil {
		t.Fatalf("best active edition: %v", err)
	}
	if got.OwnerID != "serial" {
		t.Fatalf("got owner %s want serial", got.OwnerID)
	}
	if _, err := b.BestActive(testKey, SideInstaBuy, 8); err != ErrListingUnavailable {
		t.Fatalf("unknown edition: got %v want ErrListingUnavailable", err)
	}
}

func TestBestActiveMissingItem(t *testing.T) {
	b := newTestBook(t)
	if _, err := b.BestActive(ItemKey{Type: "critters", ID: "ghost"}, SideInstaBuy, 0); err != ErrItemNotFound {
		t.Fatalf("got %v want ErrItemNotFound", err)
	}
}

func TestFillAndClaimBounds(t *testing.T) {
	b := newTestBook(t)
	l := listing("a", 10, 5, 1)
	if err := b.AddListing(testKey, SideInstaBuy, l); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := b.Fill(l, 3); err != nil {
		t.Fatalf("fill 3: %v", err)
	}
	if err := b.Fill(l, 3); err != ErrOverFill {
		t.Fatalf("overfill: got %v want ErrOverFill", err)
	}
	if err := b.Fill(l, 0); err != ErrOverFill {
		t.Fatalf("zero fill: got %v want ErrOverFill", err)
	}
	if err := b.Claim(l, 4); err != ErrOverClaim {
		t.Fatalf("overclaim: got %v want ErrOverClaim", err)
	}
	if err := b.Claim(l, 3); err != nil {
		t.Fatalf("claim 3: %v", err)
	}
	if l.Unclaimed() != 0 {
		t.Fatalf("unclaimed=%d want 0", l.Unclaimed())
	}

	// Fully filled listings stop matching.
	if err := b.Fill(l, 2); err != nil {
		t.Fatalf("fill rest: %v", err)
	}
	if l.ActiveAt(time.Now(), time.Hour) {
		t.Fatalf("fully filled listing still active")
	}
}

func TestVolumesExcludesExpired(t *testing.T) {
	base := time.Now()
	b := NewBook(Snapshot{}, time.Hour)
	b.now = func() time.Time { return base }

	live := listing("a", 10, 5, base.UnixMilli())
	live.Filled = 2
	stale := listing("b", 10, 9, base.Add(-2*time.Hour).UnixMilli())
	if err := b.AddListing(testKey, SideInstaBuy, live); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := b.AddListing(testKey, SideInstaBuy, stale); err != nil {
		t.Fatalf("add: %v", err)
	}

	sellVol, buyVol, err := b.Volumes(testKey, 0)
	if err != nil {
		t.Fatalf("volumes: %v", err)
	}
	if sellVol != 0 || buyVol != 3 {
		t.Fatalf("got sell=%d buy=%d want 0/3", sellVol, buyVol)
	}
}

func TestSweepKeepsClaimables(t *testing.T) {
	base := time.Now()
	b := NewBook(Snapshot{}, time.Hour)
	b.now = func() time.Time { return base }

	expiredClean := listing("a", 10, 5, base.Add(-2*time.Hour).UnixMilli())
	expiredOwed := listing("b", 10, 5, base.Add(-2*time.Hour).UnixMilli())
	expiredOwed.Filled = 3
	filledClaimed := listing("c", 10, 2, base.UnixMilli())
	filledClaimed.Filled = 2
	filledClaimed.Claimed = 2
	live := listing("d", 10, 5, base.UnixMilli())
	for _, l := range []*Listing{expiredClean, expiredOwed, filledClaimed, live} {
		if err := b.AddListing(testKey, SideInstaBuy, l); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	if removed := b.Sweep(); removed != 2 {
		t.Fatalf("removed=%d want 2", removed)
	}
	p, _ := b.Item(testKey)
	if len(p.InstaBuys) != 2 {
		t.Fatalf("kept %d listings, want 2", len(p.InstaBuys))
	}
	for _, l := range p.InstaBuys {
		if l.OwnerID == "a" || l.OwnerID == "c" {
			t.Fatalf("listing %s survived the sweep", l.OwnerID)
		}
	}
}

func TestSnapshotRoundTripPreservesOrderState(t *testing.T) {
	b := newTestBook(t)
	l := listing("a", 10, 5, 42)
	l.Filled = 3
	l.Claimed = 1
	l.Editions = []int64{2, 9}
	l.EditionDates = []int64{42, 42}
	if err := b.AddListing(testKey, SideInstaBuy, l); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := b.AddListing(testKey, SideInstaSell, listing("b", 7, 1, 50)); err != nil {
		t.Fatalf("add: %v", err)
	}

	again := NewBook(b.Snapshot(), time.Hour)
	p, ok := again.Item(testKey)
	if !ok {
		t.Fatalf("item lost in snapshot round trip")
	}
	if len(p.InstaBuys) != 1 || len(p.InstaSells) != 1 {
		t.Fatalf("listing counts changed: %d/%d", len(p.InstaBuys), len(p.InstaSells))
	}
	got := p.InstaBuys[0]
	if got.Filled != 3 || got.Claimed != 1 || !got.HasEdition(9) {
		t.Fatalf("listing state lost: %+v", got)
	}
}

func TestItemsStablePageOrder(t *testing.T) {
	snap := Snapshot{
		"critters": {
			"zebra":    {Sellers: []Listing{{OwnerID: "a", Price: 1, Quantity: 1, ListedAt: 1}}},
			"aardvark": {Sellers: []Listing{{OwnerID: "a", Price: 1, Quantity: 1, ListedAt: 1}}},
		},
		"badges": {
			"gold": {Sellers: []Listing{{OwnerID: "a", Price: 1, Quantity: 1, ListedAt: 1}}},
		},
	}
	b := NewBook(snap, time.Hour)
	items := b.Items()
	want := []ItemKey{
		{Type: "badges", ID: "gold"},
		{Type: "critters", ID: "aardvark"},
		{Type: "critters", ID: "zebra"},
	}
	if len(items) != len(want) {
		t.Fatalf("got %d items want %d", len(items), len(want))
	}
	for i, k := range want {
		if items[i].Key != k {
			t.Fatalf("item %d: got %v want %v", i, items[i].Key, k)
		}
	}
}

func TestUserOrdersBothSides(t *testing.T) {
	b := newTestBook(t)
	other := ItemKey{Type: "critters", ID: "lemur"}
	if err := b.AddListing(testKey, SideInstaSell, listing("me", 10, 1, 1)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := b.AddListing(other, SideInstaBuy, listing("me", 20, 1, 2)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := b.AddListing(other, SideInstaBuy, listing("someone", 5, 1, 3)); err != nil {
		t.Fatalf("add: %v", err)
	}

	buys, sells := b.UserOrders("me")
	if len(buys) != 1 || len(sells) != 1 {
		t.Fatalf("got %d buys %d sells, want 1/1", len(buys), len(sells))
	}
	if buys[0].Key != testKey || sells[0].Key != other {
		t.Fatalf("orders attached to wrong items")
	}
}
