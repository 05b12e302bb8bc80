package player

import "errors"

var (
	ErrDailyClaimed    = errors.New("daily reward already claimed today")
	ErrProfileNotFound = errors.New("player profile not found")
)

// PowerupStat tracks one powerup's held and lifetime-used counts. Using a
// powerup moves its whole held amount to used in one step.
type PowerupStat struct {
	Total int64 `json:"total"`
	Used  int64 `json:"used"`
}

// Profile is a player's persistent state. Times are epoch milliseconds.
type Profile struct {
	UserID          string      `json:"user_id"`
	Bucks           int64       `json:"bucks"`
	Streak          int64       `json:"streak"`
	Multiplier      int64       `json:"multiplier"`
	HighestMulti    int64       `json:"highest_multi"`
	LastDaily       int64       `json:"last_daily"`
	FirstDaily      int64       `json:"first_daily"`
	NumDailies      int64       `json:"num_dailies"`
	NotificationsOn bool        `json:"notifications_on"`
	MultiBoost      PowerupStat `json:"multi_boost"`
	ExtraChance     PowerupStat `json:"extra_chance"`
}
