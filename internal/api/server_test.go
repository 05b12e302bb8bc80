package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"critterbot/internal/catalog"
	"critterbot/internal/config"
	"critterbot/internal/market"
	"critterbot/internal/player"
)

type fakeGateway struct{ snap market.Snapshot }

func (g fakeGateway) LoadSnapshot(ctx context.Context) (market.Snapshot, error) {
	return g.snap, nil
}

type fakeProfiles map[string]player.Profile

func (f fakeProfiles) Profile(ctx context.Context, userID string) (player.Profile, error) {
	p, ok := f[userID]
	if !ok {
		return player.Profile{}, player.ErrProfileNotFound
	}
	return p, nil
}

func newTestServer(t *testing.T, snap market.Snapshot, profiles ProfileReader) *httptest.Server {
	t.Helper()
	cat, err := catalog.Load("")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	cfg := config.BotConfig{PageSize: 2, OrdersPerPage: 4, ListingTTL: time.Hour}
	s := New(cfg, slog.New(slog.DiscardHandler), fakeGateway{snap: snap}, cat, profiles)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return resp.StatusCode
}

func marketSnap() market.Snapshot {
	now := time.Now().UnixMilli()
	return market.Snapshot{
		"critters": {
			"mudpig": {
				Sellers: []market.Listing{{OwnerID: "a", Price: 50, Quantity: 10, ListedAt: now}},
				Buyers:  []market.Listing{{OwnerID: "b", Price: 30, Quantity: 4, ListedAt: now}},
			},
			"fernfox": {
				Sellers: []market.Listing{{OwnerID: "a", Price: 400, Quantity: 1, ListedAt: now}},
			},
			"glowlynx": {
				Sellers: []market.Listing{{OwnerID: "c", Price: 700, Quantity: 2, ListedAt: now}},
			},
		},
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, market.Snapshot{}, nil)
	var out map[string]any
	if code := getJSON(t, ts.URL+"/healthz", &out); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if out["ok"] != true {
		t.Fatalf("body: %v", out)
	}
}

func TestOverviewEndpoint(t *testing.T) {
	ts := newTestServer(t, marketSnap(), nil)

	var out struct {
		Page    int `json:"page"`
		MaxPage int `json:"max_page"`
		Rows    []struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			InstaBuyPrice int64  `json:"insta_buy_price"`
			SellVolume    int64  `json:"sell_volume"`
		} `json:"rows"`
	}
	if code := getJSON(t, ts.URL+"/v1/market/overview", &out); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	// Three items at page size 2.
	if out.MaxPage != 1 || len(out.Rows) != 2 {
		t.Fatalf("max=%d rows=%d", out.MaxPage, len(out.Rows))
	}
	// Stable type/id ordering puts fernfox first.
	if out.Rows[0].ID != "fernfox" || out.Rows[0].Name != "Fern Fox" {
		t.Fatalf("row 0: %+v", out.Rows[0])
	}

	if code := getJSON(t, ts.URL+"/v1/market/overview?page=99", &out); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if out.Page != 1 || len(out.Rows) != 1 {
		t.Fatalf("clamped page=%d rows=%d", out.Page, len(out.Rows))
	}
}

func TestItemDetailEndpoint(t *testing.T) {
	ts := newTestServer(t, marketSnap(), nil)

	var out struct {
		Name           string `json:"name"`
		InstaBuyPrice  int64  `json:"insta_buy_price"`
		InstaSellPrice int64  `json:"insta_sell_price"`
		SellVolume     int64  `json:"sell_volume"`
		BuyVolume      int64  `json:"buy_volume"`
	}
	if code := getJSON(t, ts.URL+"/v1/market/items/critters/mudpig", &out); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if out.Name != "Mud Pig" || out.InstaBuyPrice != 50 || out.InstaSellPrice != 30 {
		t.Fatalf("body: %+v", out)
	}
	if out.SellVolume != 10 || out.BuyVolume != 4 {
		t.Fatalf("volumes: %+v", out)
	}

	var errOut map[string]any
	if code := getJSON(t, ts.URL+"/v1/market/items/critters/dragon", &errOut); code != http.StatusNotFound {
		t.Fatalf("unknown item status %d", code)
	}

	// A catalog item with no listings is still a valid lookup.
	if code := getJSON(t, ts.URL+"/v1/market/items/critters/dustbun", &errOut); code != http.StatusOK {
		t.Fatalf("unlisted item status %d", code)
	}
}

func TestPlayerOrdersEndpoint(t *testing.T) {
	ts := newTestServer(t, marketSnap(), nil)

	var out struct {
		Rows []struct {
			ID   string `json:"id"`
			Side string `json:"side"`
		} `json:"rows"`
	}
	if code := getJSON(t, ts.URL+"/v1/players/a/orders", &out); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(out.Rows) != 2 {
		t.Fatalf("rows=%d want 2", len(out.Rows))
	}

	if code := getJSON(t, ts.URL+"/v1/players/nobody/orders", &out); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(out.Rows) != 0 {
		t.Fatalf("stranger has %d orders", len(out.Rows))
	}
}

func TestPlayerProfileEndpoint(t *testing.T) {
	profiles := fakeProfiles{
		"me": {UserID: "me", Bucks: 1_200, Streak: 4, Multiplier: 4},
	}
	ts := newTestServer(t, market.Snapshot{}, profiles)

	var out struct {
		UserID string `json:"user_id"`
		Bucks  int64  `json:"bucks"`
	}
	if code := getJSON(t, ts.URL+"/v1/players/me/profile", &out); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if out.UserID != "me" || out.Bucks != 1_200 {
		t.Fatalf("body: %+v", out)
	}

	var errOut map[string]any
	if code := getJSON(t, ts.URL+"/v1/players/ghost/profile", &errOut); code != http.StatusNotFound {
		t.Fatalf("missing profile status %d", code)
	}

	// No profile backend configured at all.
	tsNone := newTestServer(t, market.Snapshot{}, nil)
	if code := getJSON(t, tsNone.URL+"/v1/players/me/profile", &errOut); code != http.StatusNotFound {
		t.Fatalf("nil reader status %d", code)
	}
}

func TestCatalogEndpoint(t *testing.T) {
	ts := newTestServer(t, market.Snapshot{}, nil)

	var out struct {
		Items map[string][]struct {
			ID     string `json:"id"`
			Rarity string `json:"rarity"`
			Unique bool   `json:"unique"`
		} `json:"items"`
	}
	if code := getJSON(t, ts.URL+"/v1/catalog", &out); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(out.Items["critters"]) == 0 || len(out.Items["powerups"]) == 0 {
		t.Fatalf("catalog empty: %v", out.Items)
	}
}
