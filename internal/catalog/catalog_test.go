package catalog

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefault(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load default: %v", err)
	}
	if c.TierCount() == 0 {
		t.Fatalf("default catalog has no tiers")
	}
	if _, ok := c.ItemInfo("critters", "mudpig"); !ok {
		t.Fatalf("default catalog missing mudpig")
	}
	name, ok := c.DisplayName("critters", "mudpig")
	if !ok || name != "Mud Pig" {
		t.Fatalf("display name: %q ok=%v", name, ok)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	raw := `{
		"rarities": [
			{"name": "Common", "weight": 10, "base_score": 5},
			{"name": "Shiny", "weight": 1, "base_score": 100, "unique": true}
		],
		"items": {
			"critters": {
				"newt": {"name": "Newt", "plural": "Newts", "rarity": 0},
				"opal": {"name": "Opal Newt", "plural": "Opal Newts", "rarity": 1}
			}
		}
	}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.TierCount() != 2 {
		t.Fatalf("tiers=%d want 2", c.TierCount())
	}
	tier, ok := c.Tier(1)
	if !ok || !tier.Unique || tier.BaseScore != 100 {
		t.Fatalf("tier 1: %+v ok=%v", tier, ok)
	}
	weights := c.BaseRarityWeights()
	if len(weights) != 2 || weights[0] != 10 || weights[1] != 1 {
		t.Fatalf("weights: %v", weights)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"no tiers":     `{"rarities": [], "items": {}}`,
		"bad tier ref": `{"rarities": [{"name": "C", "weight": 1}], "items": {"critters": {"x": {"name": "X", "rarity": 5}}}}`,
		"unnamed item": `{"rarities": [{"name": "C", "weight": 1}], "items": {"critters": {"x": {"rarity": 0}}}}`,
		"not json":     `{`,
	}
	dir := t.TempDir()
	for label, raw := range cases {
		path := filepath.Join(dir, label+".json")
		if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected load to fail", label)
		}
	}
}

func TestItemsOfTierStableOrder(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	ids := c.ItemsOfTier("critters", 0)
	if len(ids) < 2 {
		t.Fatalf("tier 0 too small to check ordering: %v", ids)
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Fatalf("ids out of order: %v", ids)
		}
	}
}

func TestRandomItemOfTier(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	r := rand.New(rand.NewSource(1))
	id, ok := c.RandomItemOfTier(r, "critters", 0)
	if !ok {
		t.Fatalf("no item drawn")
	}
	item, ok := c.ItemInfo("critters", id)
	if !ok || item.Rarity != 0 {
		t.Fatalf("drawn item %s not in tier 0", id)
	}

	if _, ok := c.RandomItemOfTier(r, "critters", 99); ok {
		t.Fatalf("empty tier produced an item")
	}
}

func TestItemTypesAndIDs(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	types := c.ItemTypes()
	if len(types) != 2 || types[0] != "critters" || types[1] != "powerups" {
		t.Fatalf("types: %v", types)
	}
	ids := c.ItemIDs("powerups")
	if len(ids) != 2 {
		t.Fatalf("powerup ids: %v", ids)
	}
}
