package player

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"critterbot/internal/catalog"
	"critterbot/internal/rarity"
	"critterbot/internal/syncq"
)

// Store persists profiles and allocates edition serials for unique drops.
type Store interface {
	Profile(ctx context.Context, userID string) (Profile, error)
	SaveProfile(ctx context.Context, p Profile) error
	NextEdition(ctx context.Context, itemType, itemID string) (int64, error)
}

// DrawnItem is one item handed out by a daily claim.
type DrawnItem struct {
	Type    string
	ID      string
	Name    string
	Tier    int
	Edition int64 // 0 for non-unique tiers
	Score   int64
}

// ClaimResult summarizes what a daily claim produced.
type ClaimResult struct {
	Items      []DrawnItem
	Bucks      int64
	Streak     int64
	Multiplier int64
	UsedBoost  bool
	UsedExtra  bool
}

// DailyConfig carries the daily service tunables.
type DailyConfig struct {
	ItemType  string  // item type drawn by dailies
	Growth    float64 // rarity multiplier growth constant
	Unlimited bool    // disable the once-per-day gate, testing only
}

// DailyService hands out the once-per-day reward: a weighted item draw
// whose odds improve with the player's claim multiplier. Claims are
// serialized per (interaction, user) so double-clicks cannot double-pay.
type DailyService struct {
	store   Store
	catalog *catalog.Catalog
	queue   *syncq.Queue
	cfg     DailyConfig
	log     *slog.Logger

	mu   sync.Mutex
	rand *rand.Rand
	now  func() time.Time
}

func NewDailyService(store Store, cat *catalog.Catalog, queue *syncq.Queue, cfg DailyConfig, logger *slog.Logger) *DailyService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ItemType == "" {
		cfg.ItemType = "critters"
	}
	if cfg.Growth <= 0 {
		cfg.Growth = rarity.DefaultGrowth
	}
	return &DailyService{
		store:   store,
		catalog: cat,
		queue:   queue,
		cfg:     cfg,
		log:     logger,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
	}
}

// midnightUTC returns the start of the given instant's day, in epoch ms.
func midnightUTC(t time.Time) int64 {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).UnixMilli()
}

// Claim performs a daily claim for userID, serialized under the
// interaction. Returns ErrDailyClaimed when the player already claimed
// since the last UTC midnight.
func (d *DailyService) Claim(ctx context.Context, userID, interactionID string) (ClaimResult, error) {
	var out ClaimResult
	err := d.queue.Do(ctx, interactionID+userID, func(ctx context.Context) error {
		p, err := d.store.Profile(ctx, userID)
		if err != nil {
			return err
		}

		now := d.now()
		if !d.cfg.Unlimited && p.LastDaily >= midnightUTC(now) {
			return ErrDailyClaimed
		}

		multiplier := p.Multiplier + 1
		if p.MultiBoost.Total > 0 {
			multiplier += p.MultiBoost.Total
			p.MultiBoost.Used += p.MultiBoost.Total
			p.MultiBoost.Total = 0
			out.UsedBoost = true
		}

		draws := 1
		if p.ExtraChance.Total > 0 {
			if d.nextFloat()*100 < float64(p.ExtraChance.Total) {
				draws = 2
			}
			p.ExtraChance.Used += p.ExtraChance.Total
			p.ExtraChance.Total = 0
			out.UsedExtra = true
		}

		weights := rarity.ApplyMultiplier(float64(multiplier), d.catalog.BaseRarityWeights(), d.cfg.Growth)
		tiers, err := d.sampleTiers(weights, draws)
		if err != nil {
			return err
		}

		for _, tier := range tiers {
			item, err := d.drawItem(ctx, tier)
			if err != nil {
				return err
			}
			out.Items = append(out.Items, item)
			out.Bucks += item.Score
		}

		p.Bucks += out.Bucks
		p.Streak++
		p.Multiplier = multiplier
		if multiplier > p.HighestMulti {
			p.HighestMulti = multiplier
		}
		p.LastDaily = now.UnixMilli()
		if p.FirstDaily == 0 {
			p.FirstDaily = p.LastDaily
		}
		p.NumDailies++

		if err := d.store.SaveProfile(ctx, p); err != nil {
			return fmt.Errorf("save profile: %w", err)
		}

		out.Streak = p.Streak
		out.Multiplier = p.Multiplier
		d.log.Info("daily claimed",
			"user_id", userID,
			"streak", p.Streak,
			"multiplier", p.Multiplier,
			"items", len(out.Items),
			"bucks", out.Bucks,
		)
		return nil
	})
	if err != nil {
		return ClaimResult{}, err
	}
	return out, nil
}

func (d *DailyService) sampleTiers(weights []float64, count int) ([]int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return rarity.Sample(d.rand, weights, count, true)
}

func (d *DailyService) drawItem(ctx context.Context, tier int) (DrawnItem, error) {
	info, ok := d.catalog.Tier(tier)
	if !ok {
		return DrawnItem{}, fmt.Errorf("unknown rarity tier %d", tier)
	}

	d.mu.Lock()
	id, ok := d.catalog.RandomItemOfTier(d.rand, d.cfg.ItemType, tier)
	d.mu.Unlock()
	if !ok {
		return DrawnItem{}, fmt.Errorf("rarity tier %s has no items", info.Name)
	}
	name, _ := d.catalog.DisplayName(d.cfg.ItemType, id)

	item := DrawnItem{
		Type:  d.cfg.ItemType,
		ID:    id,
		Name:  name,
		Tier:  tier,
		Score: deviatedScore(info.BaseScore, d.nextFloat()),
	}
	if info.Unique {
		edition, err := d.store.NextEdition(ctx, d.cfg.ItemType, id)
		if err != nil {
			return DrawnItem{}, fmt.Errorf("allocate edition: %w", err)
		}
		item.Edition = edition
	}
	return item, nil
}

// deviatedScore randomizes a payout within 90% and 110% of the base.
func deviatedScore(base int64, seed float64) int64 {
	return int64(float64(base) * (0.9 + 0.2*seed))
}

func (d *DailyService) nextFloat() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rand.Float64()
}
