package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"critterbot/internal/catalog"
	"critterbot/internal/player"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

type overviewPayload struct {
	Page    int           `json:"page"`
	MaxPage int           `json:"max_page"`
	Rows    []overviewRow `json:"rows"`
}

type overviewRow struct {
	Type           string `json:"type"`
	ID             string `json:"id"`
	Name           string `json:"name"`
	InstaBuyPrice  int64  `json:"insta_buy_price"`
	InstaSellPrice int64  `json:"insta_sell_price"`
	SellVolume     int64  `json:"sell_volume"`
	BuyVolume      int64  `json:"buy_volume"`
}

type itemPayload struct {
	Type           string  `json:"type"`
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Edition        int64   `json:"edition"`
	InstaBuyPrice  int64   `json:"insta_buy_price"`
	InstaSellPrice int64   `json:"insta_sell_price"`
	SellVolume     int64   `json:"sell_volume"`
	BuyVolume      int64   `json:"buy_volume"`
}

type ordersPayload struct {
	Page    int        `json:"page"`
	MaxPage int        `json:"max_page"`
	Rows    []orderRow `json:"rows"`
}

type orderRow struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	Side      string `json:"side"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
	Filled    int64  `json:"filled"`
	Unclaimed int64  `json:"unclaimed"`
	Expired   bool   `json:"expired"`
	ListedAt  int64  `json:"listed_at"`
}

type profilePayload struct {
	UserID       string `json:"user_id"`
	Bucks        int64  `json:"bucks"`
	Streak       int64  `json:"streak"`
	Multiplier   int64  `json:"multiplier"`
	HighestMulti int64  `json:"highest_multi"`
	NumDailies   int64  `json:"num_dailies"`
}

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func renderOverview(raw map[string]any) error {
	out, err := decodeInto[overviewPayload](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== MARKET (page %d/%d) ==\n", out.Page+1, out.MaxPage+1)
	if len(out.Rows) == 0 {
		printInfo("No items listed yet.")
		return nil
	}
	fmt.Printf("%-18s %12s %12s %8s %8s\n", "ITEM", "BUY NOW", "SELL NOW", "SUPPLY", "DEMAND")
	for _, r := range out.Rows {
		fmt.Printf("%-18s %12s %12s %8d %8d\n",
			truncate(r.Name, 18),
			formatBucks(r.InstaBuyPrice),
			formatBucks(r.InstaSellPrice),
			r.SellVolume,
			r.BuyVolume,
		)
	}
	fmt.Println()
	return nil
}

func renderItem(raw map[string]any) error {
	out, err := decodeInto[itemPayload](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== %s ==\n", strings.ToUpper(out.Name))
	if out.Edition != 0 {
		fmt.Printf("Edition:   #%d\n", out.Edition)
	}
	fmt.Printf("Buy now:   %s (%d available)\n", formatBucks(out.InstaBuyPrice), out.SellVolume)
	fmt.Printf("Sell now:  %s (%d wanted)\n", formatBucks(out.InstaSellPrice), out.BuyVolume)
	fmt.Println()
	return nil
}

func renderOrders(raw map[string]any, playerID string) error {
	out, err := decodeInto[ordersPayload](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== ORDERS for %s (page %d/%d) ==\n", playerID, out.Page+1, out.MaxPage+1)
	if len(out.Rows) == 0 {
		printInfo("No open orders.")
		return nil
	}
	fmt.Printf("%-5s %-18s %10s %10s %10s %-9s %14s\n", "SIDE", "ITEM", "PRICE", "FILLED", "CLAIM", "STATUS", "LISTED AT")
	for _, r := range out.Rows {
		status := "open"
		if r.Expired {
			status = "expired"
		}
		fmt.Printf("%-5s %-18s %10s %7d/%2d %10d %-9s %14d\n",
			strings.ToUpper(r.Side),
			truncate(r.Name, 18),
			formatBucks(r.Price),
			r.Filled, r.Quantity,
			r.Unclaimed,
			status,
			r.ListedAt,
		)
	}
	fmt.Println()
	return nil
}

func renderProfile(raw map[string]any) error {
	out, err := decodeInto[profilePayload](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== PROFILE %s ==\n", out.UserID)
	fmt.Printf("Bucks:       %s\n", formatBucks(out.Bucks))
	fmt.Printf("Streak:      %d\n", out.Streak)
	fmt.Printf("Multiplier:  %dx (best %dx)\n", out.Multiplier, out.HighestMulti)
	fmt.Printf("Dailies:     %d\n", out.NumDailies)
	fmt.Println()
	return nil
}

type catalogPayload struct {
	Items map[string][]catalogEntry `json:"items"`
}

type catalogEntry struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Rarity string `json:"rarity"`
	Unique bool   `json:"unique"`
}

func renderCatalog(raw map[string]any) error {
	out, err := decodeInto[catalogPayload](raw)
	if err != nil {
		return err
	}
	types := make([]string, 0, len(out.Items))
	for t := range out.Items {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		accent.Printf("\n== %s ==\n", strings.ToUpper(t))
		for _, e := range out.Items[t] {
			marker := ""
			if e.Unique {
				marker = "  (unique editions)"
			}
			fmt.Printf("%-18s %-12s%s\n", truncate(e.Name, 18), e.Rarity, marker)
		}
	}
	fmt.Println()
	return nil
}

func renderDaily(playerID string, cat *catalog.Catalog, res player.ClaimResult) error {
	accent.Printf("\n== DAILY for %s ==\n", playerID)
	for _, it := range res.Items {
		tierName := "?"
		if tier, ok := cat.Tier(it.Tier); ok {
			tierName = tier.Name
		}
		line := fmt.Sprintf("%s (%s)", it.Name, tierName)
		if it.Edition > 0 {
			line += fmt.Sprintf(" edition #%d", it.Edition)
		}
		fmt.Printf("%-40s %8s bucks\n", line, comma(it.Score))
	}
	fmt.Printf("Total:       %s bucks\n", comma(res.Bucks))
	fmt.Printf("Streak:      %d\n", res.Streak)
	fmt.Printf("Multiplier:  %dx\n", res.Multiplier)
	if res.UsedBoost {
		printWarn("A multiboost was spent on this claim.")
	}
	if res.UsedExtra {
		printWarn("An extra chance triggered a second draw.")
	}
	fmt.Println()
	return nil
}

func decodeInto[T any](in any) (T, error) {
	var out T
	raw, err := json.Marshal(in)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func formatBucks(v int64) string {
	if v == 0 {
		return "-"
	}
	return comma(v)
}

func comma(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := fmt.Sprintf("%d", v)
	if len(s) <= 3 {
		return sign + s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		b.WriteByte(',')
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return sign + b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
