package bot

import (
	"context"
	"fmt"
	"strings"

	"critterbot/internal/market"
)

// TextRenderer renders market views as fixed-width text blocks suitable
// for a chat message or a file attachment.
type TextRenderer struct{}

func (TextRenderer) RenderOverview(_ context.Context, p market.OverviewPayload) (market.Attachment, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "MARKET  page %d/%d\n\n", p.Page+1, p.MaxPage+1)
	fmt.Fprintf(&b, "%-18s %10s %10s %7s %7s\n", "ITEM", "BUY NOW", "SELL NOW", "SUPPLY", "DEMAND")
	for _, row := range p.Rows {
		fmt.Fprintf(&b, "%-18s %10s %10s %7d %7d\n",
			trunc(row.Name, 18), price(row.InstaBuyPrice), price(row.InstaSellPrice),
			row.SellVolume, row.BuyVolume)
	}
	if len(p.Rows) == 0 {
		b.WriteString("\nno items listed yet\n")
	}
	return market.Attachment{Name: "market.txt", Body: []byte(b.String())}, nil
}

func (TextRenderer) RenderItemDetail(_ context.Context, p market.ItemDetailPayload) (market.Attachment, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  (%d/%d)\n\n", strings.ToUpper(p.Name), p.Page+1, p.MaxPage+1)
	if p.Edition != 0 {
		fmt.Fprintf(&b, "edition #%d\n\n", p.Edition)
	}
	fmt.Fprintf(&b, "buy now:  %s (%d available)\n", price(p.InstaBuyPrice), p.SellVolume)
	fmt.Fprintf(&b, "sell now: %s (%d wanted)\n", price(p.InstaSellPrice), p.BuyVolume)
	if len(p.Editions) > 0 {
		b.WriteString("\neditions on the market:")
		for _, ed := range p.Editions {
			fmt.Fprintf(&b, " #%d", ed)
		}
		b.WriteString("\n")
	}
	return market.Attachment{Name: "item.txt", Body: []byte(b.String())}, nil
}

func (TextRenderer) RenderUserOrders(_ context.Context, p market.UserOrdersPayload) (market.Attachment, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "YOUR ORDERS  page %d/%d\n\n", p.Page+1, p.MaxPage+1)
	for _, row := range p.Rows {
		side := "SELL"
		if row.Side == market.SideInstaSell {
			side = "BUY"
		}
		status := ""
		if row.Expired {
			status = "  [expired]"
		}
		fmt.Fprintf(&b, "%-4s %-18s @%s  filled %d/%d  claimable %d%s\n",
			side, trunc(row.Name, 18), price(row.Price), row.Filled, row.Quantity,
			row.Unclaimed, status)
	}
	if len(p.Rows) == 0 {
		b.WriteString("no open orders\n")
	}
	return market.Attachment{Name: "orders.txt", Body: []byte(b.String())}, nil
}

func price(v int64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%d bucks", v)
}

func trunc(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
