// Package catalog holds the static item and rarity configuration: display
// names, rarity tiers, base drop weights and scores. It is loaded once at
// startup and passed explicitly to the components that need it.
package catalog

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sort"
)

// Rarity is one reward tier. Weight 0 marks a tier that can never drop
// (gift-only specials, retired tiers).
type Rarity struct {
	Name      string  `json:"name"`
	Weight    float64 `json:"weight"`
	BaseScore int64   `json:"base_score"`
	Unique    bool    `json:"unique"` // items of this tier carry edition serials
}

// Item is one collectible or powerup definition.
type Item struct {
	Name   string `json:"name"`
	Plural string `json:"plural"`
	Rarity int    `json:"rarity"` // index into the rarity tier table
}

type fileConfig struct {
	Rarities []Rarity                   `json:"rarities"`
	Items    map[string]map[string]Item `json:"items"`
}

// Catalog is the loaded configuration.
type Catalog struct {
	rarities []Rarity
	items    map[string]map[string]Item
}

// Load reads a catalog from a JSON file. An empty path loads the built-in
// default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return defaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var cfg fileConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(cfg.Rarities) == 0 {
		return nil, fmt.Errorf("catalog has no rarity tiers")
	}
	for t, byID := range cfg.Items {
		for id, item := range byID {
			if item.Rarity < 0 || item.Rarity >= len(cfg.Rarities) {
				return nil, fmt.Errorf("item %s/%s references unknown rarity tier %d", t, id, item.Rarity)
			}
			if item.Name == "" {
				return nil, fmt.Errorf("item %s/%s has no name", t, id)
			}
		}
	}
	return &Catalog{rarities: cfg.Rarities, items: cfg.Items}, nil
}

// ItemInfo returns one item's definition.
func (c *Catalog) ItemInfo(itemType, itemID string) (Item, bool) {
	byID, ok := c.items[itemType]
	if !ok {
		return Item{}, false
	}
	item, ok := byID[itemID]
	return item, ok
}

// DisplayName resolves an item's display name for rendering and name
// indexing.
func (c *Catalog) DisplayName(itemType, itemID string) (string, bool) {
	item, ok := c.ItemInfo(itemType, itemID)
	if !ok {
		return "", false
	}
	return item.Name, true
}

// Tier returns one rarity tier definition.
func (c *Catalog) Tier(index int) (Rarity, bool) {
	if index < 0 || index >= len(c.rarities) {
		return Rarity{}, false
	}
	return c.rarities[index], true
}

// TierCount reports the number of rarity tiers.
func (c *Catalog) TierCount() int {
	return len(c.rarities)
}

// BaseRarityWeights returns the base drop weight per tier, in tier order.
func (c *Catalog) BaseRarityWeights() []float64 {
	weights := make([]float64, len(c.rarities))
	for i, r := range c.rarities {
		weights[i] = r.Weight
	}
	return weights
}

// ItemsOfTier lists item keys of a rarity tier in stable order.
func (c *Catalog) ItemsOfTier(itemType string, tier int) []string {
	byID := c.items[itemType]
	ids := make([]string, 0)
	for id, item := range byID {
		if item.Rarity == tier {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// RandomItemOfTier picks one item id of the tier uniformly at random.
func (c *Catalog) RandomItemOfTier(r *rand.Rand, itemType string, tier int) (string, bool) {
	ids := c.ItemsOfTier(itemType, tier)
	if len(ids) == 0 {
		return "", false
	}
	return ids[r.Intn(len(ids))], true
}

// ItemTypes lists the configured item types in stable order.
func (c *Catalog) ItemTypes() []string {
	types := make([]string, 0, len(c.items))
	for t := range c.items {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ItemIDs lists the item ids of a type in stable order.
func (c *Catalog) ItemIDs(itemType string) []string {
	byID := c.items[itemType]
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func defaultCatalog() *Catalog {
	rarities := []Rarity{
		{Name: "Common", Weight: 40, BaseScore: 10},
		{Name: "Uncommon", Weight: 25, BaseScore: 25},
		{Name: "Rare", Weight: 15, BaseScore: 60},
		{Name: "Epic", Weight: 8, BaseScore: 150},
		{Name: "Legendary", Weight: 2, BaseScore: 500, Unique: true},
		{Name: "Special", Weight: 0, BaseScore: 1000, Unique: true},
	}

	critters := map[string]Item{
		"mudpig":    {Name: "Mud Pig", Plural: "Mud Pigs", Rarity: 0},
		"dustbun":   {Name: "Dust Bun", Plural: "Dust Buns", Rarity: 0},
		"pebblepup": {Name: "Pebble Pup", Plural: "Pebble Pups", Rarity: 0},
		"moletoad":  {Name: "Mole Toad", Plural: "Mole Toads", Rarity: 1},
		"bramble":   {Name: "Bramble Cat", Plural: "Bramble Cats", Rarity: 1},
		"fernfox":   {Name: "Fern Fox", Plural: "Fern Foxes", Rarity: 2},
		"glowlynx":  {Name: "Glow Lynx", Plural: "Glow Lynxes", Rarity: 2},
		"stormray":  {Name: "Storm Ray", Plural: "Storm Rays", Rarity: 3},
		"emberwolf": {Name: "Ember Wolf", Plural: "Ember Wolves", Rarity: 3},
		"sunwyrm":   {Name: "Sun Wyrm", Plural: "Sun Wyrms", Rarity: 4},
		"voidmoth":  {Name: "Void Moth", Plural: "Void Moths", Rarity: 5},
	}

	powerups := map[string]Item{
		"multiboost":  {Name: "Multi Boost", Plural: "Multi Boosts", Rarity: 1},
		"extrachance": {Name: "Extra Chance", Plural: "Extra Chances", Rarity: 1},
	}

	return &Catalog{
		rarities: rarities,
		items: map[string]map[string]Item{
			"critters": critters,
			"powerups": powerups,
		},
	}
}
