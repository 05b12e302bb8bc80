// Package rarity turns a base tier weight table and a per-user multiplier
// into an adjusted probability distribution and performs weighted draws.
package rarity

import (
	"errors"
	"math"
	"math/rand"
)

// DefaultGrowth is the rarity-growth constant controlling how fast higher
// multipliers shift weight toward rare tiers.
const DefaultGrowth = 30.0

var ErrNoEligibleTier = errors.New("no tier with positive weight")

// ApplyMultiplier adjusts base weights for a user multiplier. For each tier
// with base weight w > 0:
//
//	adjusted = w * (atan((m-1)*w/K) * (H-w)/w + 1)
//
// where H is the largest positive base weight and K the growth constant.
// Zero-weight tiers stay at zero for every multiplier, and the result keeps
// the input's tier ordering. As the multiplier grows the distribution
// approaches, but never reaches, uniform over the positive tiers.
func ApplyMultiplier(multiplier float64, base []float64, growth float64) []float64 {
	if growth <= 0 {
		growth = DefaultGrowth
	}

	highest := 0.0
	for _, w := range base {
		if w > highest {
			highest = w
		}
	}

	adjusted := make([]float64, len(base))
	for i, w := range base {
		if w <= 0 {
			continue
		}
		adjusted[i] = w * (math.Atan((multiplier-1)*w/growth)*(highest-w)/w + 1)
	}
	return adjusted
}

// Sample draws count tier indices by weighted selection. Each draw is an
// independent weighted pick over the remaining pool; with excludeDrawn set,
// tiers already chosen in this batch are removed from the pool (used for
// reward slots that must carry distinct editions). Fails with
// ErrNoEligibleTier when no candidate has positive weight.
func Sample(r *rand.Rand, weights []float64, count int, excludeDrawn bool) ([]int, error) {
	pool := make([]float64, len(weights))
	copy(pool, weights)

	out := make([]int, 0, count)
	for n := 0; n < count; n++ {
		total := 0.0
		for _, w := range pool {
			if w > 0 {
				total += w
			}
		}
		if total <= 0 {
			return nil, ErrNoEligibleTier
		}

		target := r.Float64() * total
		picked := -1
		for i, w := range pool {
			if w <= 0 {
				continue
			}
			target -= w
			if target < 0 {
				picked = i
				break
			}
		}
		if picked < 0 {
			// Float accumulation can leave target at a hair above zero;
			// the last positive tier takes the draw.
			for i := len(pool) - 1; i >= 0; i-- {
				if pool[i] > 0 {
					picked = i
					break
				}
			}
		}

		out = append(out, picked)
		if excludeDrawn {
			pool[picked] = 0
		}
	}
	return out, nil
}
