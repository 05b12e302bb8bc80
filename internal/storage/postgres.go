// Package storage is the postgres persistence layer. One Store serves the
// market gateway, the bucks ledger, and the player profile store.
package storage

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"critterbot/internal/market"
	"critterbot/internal/player"
)

type Store struct {
	db  *pgxpool.Pool
	log *slog.Logger
}

func New(db *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, log: logger}
}

// EnsureSchema creates the tables the store needs. Safe to run on every
// startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS market_listings (
			id            BIGSERIAL PRIMARY KEY,
			item_type     TEXT      NOT NULL,
			item_id       TEXT      NOT NULL,
			side          SMALLINT  NOT NULL,
			owner_id      TEXT      NOT NULL,
			price         BIGINT    NOT NULL,
			quantity      BIGINT    NOT NULL,
			filled        BIGINT    NOT NULL DEFAULT 0,
			claimed       BIGINT    NOT NULL DEFAULT 0,
			editions      BIGINT[]  NOT NULL DEFAULT '{}',
			edition_dates BIGINT[]  NOT NULL DEFAULT '{}',
			listed_at     BIGINT    NOT NULL
		);
		CREATE INDEX IF NOT EXISTS market_listings_item_idx
			ON market_listings (item_type, item_id);

		CREATE TABLE IF NOT EXISTS profiles (
			user_id          TEXT    PRIMARY KEY,
			bucks            BIGINT  NOT NULL DEFAULT 0,
			streak           BIGINT  NOT NULL DEFAULT 0,
			multiplier       BIGINT  NOT NULL DEFAULT 0,
			highest_multi    BIGINT  NOT NULL DEFAULT 0,
			last_daily       BIGINT  NOT NULL DEFAULT 0,
			first_daily      BIGINT  NOT NULL DEFAULT 0,
			num_dailies      BIGINT  NOT NULL DEFAULT 0,
			notifications_on BOOLEAN NOT NULL DEFAULT false,
			boost_total      BIGINT  NOT NULL DEFAULT 0,
			boost_used       BIGINT  NOT NULL DEFAULT 0,
			extra_total      BIGINT  NOT NULL DEFAULT 0,
			extra_used       BIGINT  NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS item_editions (
			item_type TEXT   NOT NULL,
			item_id   TEXT   NOT NULL,
			next      BIGINT NOT NULL DEFAULT 1,
			PRIMARY KEY (item_type, item_id)
		);
	`)
	return err
}

// LoadSnapshot reads every listing into the in-memory snapshot form.
func (s *Store) LoadSnapshot(ctx context.Context) (market.Snapshot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT item_type, item_id, side, owner_id, price, quantity, filled, claimed,
		       editions, edition_dates, listed_at
		FROM market_listings
		ORDER BY item_type, item_id, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := make(market.Snapshot)
	for rows.Next() {
		var (
			itemType, itemID string
			side             int16
			l                market.Listing
		)
		if err := rows.Scan(&itemType, &itemID, &side, &l.OwnerID, &l.Price, &l.Quantity,
			&l.Filled, &l.Claimed, &l.Editions, &l.EditionDates, &l.ListedAt); err != nil {
			return nil, err
		}
		byID, ok := snap[itemType]
		if !ok {
			byID = make(map[string]market.ItemOrders)
			snap[itemType] = byID
		}
		orders := byID[itemID]
		if market.Side(side) == market.SideInstaSell {
			orders.Buyers = append(orders.Buyers, l)
		} else {
			orders.Sellers = append(orders.Sellers, l)
		}
		byID[itemID] = orders
	}
	return snap, rows.Err()
}

// SaveSnapshot replaces the stored listings with the given snapshot in one
// transaction. A failed save leaves the previous listings in place.
func (s *Store) SaveSnapshot(ctx context.Context, snap market.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM market_listings`); err != nil {
		return err
	}
	for itemType, byID := range snap {
		for itemID, orders := range byID {
			if err := insertSide(ctx, tx, itemType, itemID, market.SideInstaSell, orders.Buyers); err != nil {
				return err
			}
			if err := insertSide(ctx, tx, itemType, itemID, market.SideInstaBuy, orders.Sellers); err != nil {
				return err
			}
		}
	}
	return tx.Commit(ctx)
}

func insertSide(ctx context.Context, tx pgx.Tx, itemType, itemID string, side market.Side, listings []market.Listing) error {
	for _, l := range listings {
		_, err := tx.Exec(ctx, `
			INSERT INTO market_listings
			    (item_type, item_id, side, owner_id, price, quantity, filled, claimed, editions, edition_dates, listed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, itemType, itemID, int16(side), l.OwnerID, l.Price, l.Quantity, l.Filled, l.Claimed,
			l.Editions, l.EditionDates, l.ListedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

// Profile reads a player's profile, creating a zeroed row on first use.
func (s *Store) Profile(ctx context.Context, userID string) (player.Profile, error) {
	p := player.Profile{UserID: userID}
	err := s.db.QueryRow(ctx, `
		SELECT bucks, streak, multiplier, highest_multi, last_daily, first_daily,
		       num_dailies, notifications_on, boost_total, boost_used, extra_total, extra_used
		FROM profiles
		WHERE user_id = $1
	`, userID).Scan(&p.Bucks, &p.Streak, &p.Multiplier, &p.HighestMulti, &p.LastDaily,
		&p.FirstDaily, &p.NumDailies, &p.NotificationsOn,
		&p.MultiBoost.Total, &p.MultiBoost.Used, &p.ExtraChance.Total, &p.ExtraChance.Used)
	if err == nil {
		return p, nil
	}
	if err != pgx.ErrNoRows {
		return p, err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO profiles (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	return p, err
}

// SaveProfile upserts the whole profile row.
func (s *Store) SaveProfile(ctx context.Context, p player.Profile) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO profiles
		    (user_id, bucks, streak, multiplier, highest_multi, last_daily, first_daily,
		     num_dailies, notifications_on, boost_total, boost_used, extra_total, extra_used)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id) DO UPDATE SET
			bucks            = EXCLUDED.bucks,
			streak           = EXCLUDED.streak,
			multiplier       = EXCLUDED.multiplier,
			highest_multi    = EXCLUDED.highest_multi,
			last_daily       = EXCLUDED.last_daily,
			first_daily      = EXCLUDED.first_daily,
			num_dailies      = EXCLUDED.num_dailies,
			notifications_on = EXCLUDED.notifications_on,
			boost_total      = EXCLUDED.boost_total,
			boost_used       = EXCLUDED.boost_used,
			extra_total      = EXCLUDED.extra_total,
			extra_used       = EXCLUDED.extra_used
	`, p.UserID, p.Bucks, p.Streak, p.Multiplier, p.HighestMulti, p.LastDaily, p.FirstDaily,
		p.NumDailies, p.NotificationsOn,
		p.MultiBoost.Total, p.MultiBoost.Used, p.ExtraChance.Total, p.ExtraChance.Used)
	return err
}

// NextEdition allocates the next serial for a unique item.
func (s *Store) NextEdition(ctx context.Context, itemType, itemID string) (int64, error) {
	var edition int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO item_editions (item_type, item_id, next)
		VALUES ($1, $2, 2)
		ON CONFLICT (item_type, item_id) DO UPDATE
			SET next = item_editions.next + 1
		RETURNING next - 1
	`, itemType, itemID).Scan(&edition)
	return edition, err
}

// Bucks reads a player's balance.
func (s *Store) Bucks(ctx context.Context, userID string) (int64, error) {
	p, err := s.Profile(ctx, userID)
	if err != nil {
		return 0, err
	}
	return p.Bucks, nil
}

// AdjustBucks applies a signed delta to a player's balance. A debit past
// zero fails and leaves the balance untouched.
func (s *Store) AdjustBucks(ctx context.Context, userID string, delta int64) error {
	if _, err := s.Profile(ctx, userID); err != nil {
		return err
	}
	ct, err := s.db.Exec(ctx, `
		UPDATE profiles
		SET bucks = bucks + $1
		WHERE user_id = $2 AND bucks + $1 >= 0
	`, delta, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return market.ErrInsufficientBucks
	}
	return nil
}
