package player

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"critterbot/internal/catalog"
	"critterbot/internal/syncq"
)

type memStore struct {
	profiles map[string]Profile
	editions map[string]int64
	saves    int
}

func newMemStore() *memStore {
	return &memStore{
		profiles: make(map[string]Profile),
		editions: make(map[string]int64),
	}
}

func (m *memStore) Profile(ctx context.Context, userID string) (Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return Profile{UserID: userID}, nil
	}
	return p, nil
}

func (m *memStore) SaveProfile(ctx context.Context, p Profile) error {
	m.profiles[p.UserID] = p
	m.saves++
	return nil
}

func (m *memStore) NextEdition(ctx context.Context, itemType, itemID string) (int64, error) {
	key := itemType + "/" + itemID
	m.editions[key]++
	return m.editions[key], nil
}

func newDaily(t *testing.T, store Store, cfg DailyConfig) *DailyService {
	t.Helper()
	cat, err := catalog.Load("")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return NewDailyService(store, cat, syncq.New(), cfg, slog.New(slog.DiscardHandler))
}

func TestClaimFirstDaily(t *testing.T) {
	store := newMemStore()
	d := newDaily(t, store, DailyConfig{})

	res, err := d.Claim(context.Background(), "me", "i1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(res.Items) != 1 {
		t.Fatalf("items=%d want 1", len(res.Items))
	}
	if res.Streak != 1 || res.Multiplier != 1 {
		t.Fatalf("streak=%d multiplier=%d want 1/1", res.Streak, res.Multiplier)
	}
	if res.Bucks != res.Items[0].Score {
		t.Fatalf("bucks=%d want %d", res.Bucks, res.Items[0].Score)
	}

	p := store.profiles["me"]
	if p.Bucks != res.Bucks || p.NumDailies != 1 {
		t.Fatalf("profile not updated: %+v", p)
	}
	if p.FirstDaily == 0 || p.LastDaily == 0 {
		t.Fatalf("daily timestamps not set: %+v", p)
	}
}

func TestClaimGateUntilMidnightUTC(t *testing.T) {
	store := newMemStore()
	d := newDaily(t, store, DailyConfig{})

	base := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return base }

	if _, err := d.Claim(context.Background(), "me", "i1"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if _, err := d.Claim(context.Background(), "me", "i2"); !errors.Is(err, ErrDailyClaimed) {
		t.Fatalf("same day: got %v want ErrDailyClaimed", err)
	}

	// Still the same UTC day late in the evening.
	d.now = func() time.Time { return base.Add(8 * time.Hour) }
	if _, err := d.Claim(context.Background(), "me", "i3"); !errors.Is(err, ErrDailyClaimed) {
		t.Fatalf("same evening: got %v want ErrDailyClaimed", err)
	}

	// A minute past midnight the gate opens.
	d.now = func() time.Time { return time.Date(2026, 3, 15, 0, 1, 0, 0, time.UTC) }
	res, err := d.Claim(context.Background(), "me", "i4")
	if err != nil {
		t.Fatalf("next day: %v", err)
	}
	if res.Streak != 2 || res.Multiplier != 2 {
		t.Fatalf("streak=%d multiplier=%d want 2/2", res.Streak, res.Multiplier)
	}
}

func TestClaimUnlimitedSkipsGate(t *testing.T) {
	store := newMemStore()
	d := newDaily(t, store, DailyConfig{Unlimited: true})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := d.Claim(ctx, "me", "i"); err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
	}
	if got := store.profiles["me"].NumDailies; got != 3 {
		t.Fatalf("dailies=%d want 3", got)
	}
}

func TestClaimConsumesMultiBoost(t *testing.T) {
	store := newMemStore()
	store.profiles["me"] = Profile{
		UserID:     "me",
		Multiplier: 4,
		MultiBoost: PowerupStat{Total: 3},
	}
	d := newDaily(t, store, DailyConfig{})

	res, err := d.Claim(context.Background(), "me", "i1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !res.UsedBoost {
		t.Fatalf("boost not reported")
	}
	// prev multiplier + 1 + boost charges
	if res.Multiplier != 8 {
		t.Fatalf("multiplier=%d want 8", res.Multiplier)
	}

	p := store.profiles["me"]
	if p.MultiBoost.Total != 0 || p.MultiBoost.Used != 3 {
		t.Fatalf("boost not consumed: %+v", p.MultiBoost)
	}
	if p.HighestMulti != 8 {
		t.Fatalf("highest=%d want 8", p.HighestMulti)
	}
}

func TestClaimExtraChanceFullOdds(t *testing.T) {
	store := newMemStore()
	store.profiles["me"] = Profile{
		UserID:      "me",
		ExtraChance: PowerupStat{Total: 100},
	}
	d := newDaily(t, store, DailyConfig{})

	res, err := d.Claim(context.Background(), "me", "i1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !res.UsedExtra {
		t.Fatalf("extra chance not reported")
	}
	// 100 charges is a guaranteed second draw.
	if len(res.Items) != 2 {
		t.Fatalf("items=%d want 2", len(res.Items))
	}
	if res.Items[0].Tier == res.Items[1].Tier {
		t.Fatalf("batch draws repeated tier %d", res.Items[0].Tier)
	}

	p := store.profiles["me"]
	if p.ExtraChance.Total != 0 || p.ExtraChance.Used != 100 {
		t.Fatalf("extra chance not consumed: %+v", p.ExtraChance)
	}
}

func TestClaimUniqueTierAllocatesEdition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	raw := `{
		"rarities": [{"name": "Mythic", "weight": 1, "base_score": 100, "unique": true}],
		"items": {"critters": {"wyrm": {"name": "Wyrm", "plural": "Wyrms", "rarity": 0}}}
	}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cat, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	store := newMemStore()
	d := NewDailyService(store, cat, syncq.New(), DailyConfig{Unlimited: true}, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	first, err := d.Claim(ctx, "me", "i1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	second, err := d.Claim(ctx, "other", "i2")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if first.Items[0].Edition != 1 || second.Items[0].Edition != 2 {
		t.Fatalf("editions %d/%d want 1/2", first.Items[0].Edition, second.Items[0].Edition)
	}
}

func TestDeviatedScoreBounds(t *testing.T) {
	if got := deviatedScore(100, 0); got != 90 {
		t.Fatalf("floor: got %d want 90", got)
	}
	if got := deviatedScore(100, 0.5); got != 100 {
		t.Fatalf("middle: got %d want 100", got)
	}
	if got := deviatedScore(100, 0.999999); got > 110 {
		t.Fatalf("ceiling exceeded: %d", got)
	}
}

func TestServiceGrantPowerup(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, syncq.New(), slog.New(slog.DiscardHandler))
	ctx := context.Background()

	if err := svc.GrantPowerup(ctx, "me", "multiboost", 2); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := svc.GrantPowerup(ctx, "me", "extrachance", 1); err != nil {
		t.Fatalf("grant: %v", err)
	}
	p := store.profiles["me"]
	if p.MultiBoost.Total != 2 || p.ExtraChance.Total != 1 {
		t.Fatalf("powerups not recorded: %+v", p)
	}

	if err := svc.GrantPowerup(ctx, "me", "nonsense", 1); err == nil {
		t.Fatalf("unknown powerup accepted")
	}
	if err := svc.GrantPowerup(ctx, "me", "multiboost", 0); err == nil {
		t.Fatalf("zero amount accepted")
	}
}

func TestServiceAdjustBucksFloorsAtZero(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, syncq.New(), slog.New(slog.DiscardHandler))
	ctx := context.Background()

	if err := svc.AdjustBucks(ctx, "me", 500); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := svc.AdjustBucks(ctx, "me", -9_999); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if got := store.profiles["me"].Bucks; got != 0 {
		t.Fatalf("bucks=%d want 0", got)
	}
}

func TestServiceSetNotifications(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, syncq.New(), slog.New(slog.DiscardHandler))
	ctx := context.Background()

	if err := svc.SetNotifications(ctx, "me", true); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !store.profiles["me"].NotificationsOn {
		t.Fatalf("notifications not saved")
	}
}
