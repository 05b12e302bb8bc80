package player

import (
	"context"
	"fmt"
	"log/slog"

	"critterbot/internal/syncq"
)

// Service covers profile reads and the small mutations that are not
// daily claims. Mutations serialize per user.
type Service struct {
	store Store
	queue *syncq.Queue
	log   *slog.Logger
}

func NewService(store Store, queue *syncq.Queue, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, queue: queue, log: logger}
}

func (s *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	return s.store.Profile(ctx, userID)
}

func (s *Service) SetNotifications(ctx context.Context, userID string, on bool) error {
	return s.queue.Do(ctx, "profile"+userID, func(ctx context.Context) error {
		p, err := s.store.Profile(ctx, userID)
		if err != nil {
			return err
		}
		p.NotificationsOn = on
		return s.store.SaveProfile(ctx, p)
	})
}

// GrantPowerup adds charges of a powerup to a player's held total.
func (s *Service) GrantPowerup(ctx context.Context, userID, powerup string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be > 0")
	}
	return s.queue.Do(ctx, "profile"+userID, func(ctx context.Context) error {
		p, err := s.store.Profile(ctx, userID)
		if err != nil {
			return err
		}
		switch powerup {
		case "multiboost":
			p.MultiBoost.Total += amount
		case "extrachance":
			p.ExtraChance.Total += amount
		default:
			return fmt.Errorf("unknown powerup %q", powerup)
		}
		if err := s.store.SaveProfile(ctx, p); err != nil {
			return err
		}
		s.log.Info("powerup granted", "user_id", userID, "powerup", powerup, "amount", amount)
		return nil
	})
}

// AdjustBucks applies a signed bucks delta, floored at zero.
func (s *Service) AdjustBucks(ctx context.Context, userID string, delta int64) error {
	return s.queue.Do(ctx, "profile"+userID, func(ctx context.Context) error {
		p, err := s.store.Profile(ctx, userID)
		if err != nil {
			return err
		}
		p.Bucks += delta
		if p.Bucks < 0 {
			p.Bucks = 0
		}
		return s.store.SaveProfile(ctx, p)
	})
}
