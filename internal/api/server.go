package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"critterbot/internal/catalog"
	"critterbot/internal/config"
	"critterbot/internal/market"
	"critterbot/internal/player"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Gateway is the read side the server needs: a current market snapshot.
type Gateway interface {
	LoadSnapshot(ctx context.Context) (market.Snapshot, error)
}

// ProfileReader serves the profile endpoint.
type ProfileReader interface {
	Profile(ctx context.Context, userID string) (player.Profile, error)
}

type Server struct {
	cfg      config.BotConfig
	log      *slog.Logger
	gateway  Gateway
	catalog  *catalog.Catalog
	profiles ProfileReader
	mux      *chi.Mux
}

// New builds the read-only market API. profiles may be nil; the profile
// endpoint then returns 404.
func New(cfg config.BotConfig, logger *slog.Logger, gateway Gateway, cat *catalog.Catalog, profiles ProfileReader) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		log:      logger,
		gateway:  gateway,
		catalog:  cat,
		profiles: profiles,
		mux:      chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)
		r.Get("/market/overview", s.handleOverview)
		r.Get("/market/items/{type}/{id}", s.handleItemDetail)
		r.Get("/players/{id}/orders", s.handlePlayerOrders)
		r.Get("/players/{id}/profile", s.handlePlayerProfile)
	})
}

func (s *Server) book(r *http.Request) (*market.Book, error) {
	snap, err := s.gateway.LoadSnapshot(r.Context())
	if err != nil {
		return nil, err
	}
	return market.NewBook(snap, s.cfg.ListingTTL), nil
}

func (s *Server) displayName(key market.ItemKey) string {
	if name, ok := s.catalog.DisplayName(key.Type, key.ID); ok {
		return name
	}
	return key.ID
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	out := make(map[string][]map[string]any)
	for _, t := range s.catalog.ItemTypes() {
		for _, id := range s.catalog.ItemIDs(t) {
			item, _ := s.catalog.ItemInfo(t, id)
			tier, _ := s.catalog.Tier(item.Rarity)
			out[t] = append(out[t], map[string]any{
				"id":     id,
				"name":   item.Name,
				"rarity": tier.Name,
				"unique": tier.Unique,
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	book, err := s.book(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	items := book.Items()
	page := queryInt(r, "page", 0)
	last := lastPage(len(items), s.cfg.PageSize)
	page = clamp(page, 0, last)

	start := page * s.cfg.PageSize
	end := min(start+s.cfg.PageSize, len(items))

	rows := make([]map[string]any, 0, end-start)
	for _, p := range items[start:end] {
		sellVol, buyVol, _ := book.Volumes(p.Key, 0)
		row := map[string]any{
			"type":        p.Key.Type,
			"id":          p.Key.ID,
			"name":        s.displayName(p.Key),
			"sell_volume": sellVol,
			"buy_volume":  buyVol,
		}
		if l, err := book.BestActive(p.Key, market.SideInstaBuy, 0); err == nil {
			row["insta_buy_price"] = l.Price
		}
		if l, err := book.BestActive(p.Key, market.SideInstaSell, 0); err == nil {
			row["insta_sell_price"] = l.Price
		}
		rows = append(rows, row)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"page":     page,
		"max_page": last,
		"rows":     rows,
	})
}

func (s *Server) handleItemDetail(w http.ResponseWriter, r *http.Request) {
	key := market.ItemKey{Type: chi.URLParam(r, "type"), ID: chi.URLParam(r, "id")}
	if _, ok := s.catalog.ItemInfo(key.Type, key.ID); !ok {
		writeError(w, http.StatusNotFound, "unknown item")
		return
	}
	book, err := s.book(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	edition := int64(queryInt(r, "edition", 0))
	out := map[string]any{
		"type":    key.Type,
		"id":      key.ID,
		"name":    s.displayName(key),
		"edition": edition,
	}
	sellVol, buyVol, err := book.Volumes(key, edition)
	if err != nil {
		if errors.Is(err, market.ErrItemNotFound) {
			// no listings yet, still a valid item
			writeJSON(w, http.StatusOK, out)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out["sell_volume"] = sellVol
	out["buy_volume"] = buyVol
	if l, err := book.BestActive(key, market.SideInstaBuy, edition); err == nil {
		out["insta_buy_price"] = l.Price
	}
	if l, err := book.BestActive(key, market.SideInstaSell, edition); err == nil {
		out["insta_sell_price"] = l.Price
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePlayerOrders(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	book, err := s.book(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	buys, sells := book.UserOrders(userID)
	all := append(buys, sells...)

	page := queryInt(r, "page", 0)
	last := lastPage(len(all), s.cfg.OrdersPerPage)
	page = clamp(page, 0, last)

	start := page * s.cfg.OrdersPerPage
	end := min(start+s.cfg.OrdersPerPage, len(all))

	now := time.Now()
	rows := make([]map[string]any, 0, end-start)
	for _, o := range all[start:end] {
		side := "sell"
		if o.Side == market.SideInstaSell {
			side = "buy"
		}
		rows = append(rows, map[string]any{
			"type":      o.Key.Type,
			"id":        o.Key.ID,
			"name":      s.displayName(o.Key),
			"side":      side,
			"price":     o.Listing.Price,
			"quantity":  o.Listing.Quantity,
			"filled":    o.Listing.Filled,
			"unclaimed": o.Listing.Unclaimed(),
			"expired":   !o.Listing.ActiveAt(now, s.cfg.ListingTTL),
			"listed_at": o.Listing.ListedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"page":     page,
		"max_page": last,
		"rows":     rows,
	})
}

func (s *Server) handlePlayerProfile(w http.ResponseWriter, r *http.Request) {
	if s.profiles == nil {
		writeError(w, http.StatusNotFound, "profiles not available")
		return
	}
	p, err := s.profiles.Profile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, player.ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, "unknown player")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func lastPage(n, perPage int) int {
	if n <= 0 {
		return 0
	}
	return (n + perPage - 1) / perPage - 1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
