package bot

import (
	"context"
	"strings"
	"testing"

	"critterbot/internal/market"
)

func TestRenderOverview(t *testing.T) {
	r := TextRenderer{}
	att, err := r.RenderOverview(context.Background(), market.OverviewPayload{
		Page:    1,
		MaxPage: 2,
		Rows: []market.OverviewRow{
			{Name: "Glow Lynx", InstaBuyPrice: 120, SellVolume: 4, BuyVolume: 2},
			{Name: "Mud Pig"},
		},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := string(att.Body)
	if att.Name != "market.txt" {
		t.Fatalf("attachment name %q", att.Name)
	}
	if !strings.Contains(out, "page 2/3") {
		t.Fatalf("missing page header:\n%s", out)
	}
	if !strings.Contains(out, "Glow Lynx") || !strings.Contains(out, "120 bucks") {
		t.Fatalf("missing row data:\n%s", out)
	}
	// Sides with no listings show a dash, not a zero price.
	if !strings.Contains(out, "-") {
		t.Fatalf("missing empty-side marker:\n%s", out)
	}
}

func TestRenderOverviewEmpty(t *testing.T) {
	att, err := TextRenderer{}.RenderOverview(context.Background(), market.OverviewPayload{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(string(att.Body), "no items listed yet") {
		t.Fatalf("empty overview:\n%s", att.Body)
	}
}

func TestRenderItemDetailEditions(t *testing.T) {
	att, err := TextRenderer{}.RenderItemDetail(context.Background(), market.ItemDetailPayload{
		Name:           "Sun Wyrm",
		Edition:        3,
		InstaBuyPrice:  900,
		InstaSellPrice: 700,
		Editions:       []int64{3, 7},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := string(att.Body)
	if !strings.Contains(out, "SUN WYRM") {
		t.Fatalf("missing title:\n%s", out)
	}
	if !strings.Contains(out, "edition #3") || !strings.Contains(out, "#7") {
		t.Fatalf("missing edition info:\n%s", out)
	}
}

func TestRenderUserOrders(t *testing.T) {
	att, err := TextRenderer{}.RenderUserOrders(context.Background(), market.UserOrdersPayload{
		Rows: []market.UserOrderRow{
			{Name: "Fern Fox", Side: market.SideInstaSell, Price: 50, Quantity: 5, Filled: 2, Unclaimed: 2},
			{Name: "Mole Toad", Side: market.SideInstaBuy, Price: 30, Quantity: 1, Expired: true},
		},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := string(att.Body)
	if !strings.Contains(out, "BUY  Fern Fox") {
		t.Fatalf("buy order missing:\n%s", out)
	}
	if !strings.Contains(out, "SELL Mole Toad") || !strings.Contains(out, "[expired]") {
		t.Fatalf("sell order missing:\n%s", out)
	}
}
