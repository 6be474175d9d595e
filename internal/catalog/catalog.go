package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Snapshot is the full catalogue payload as published.
type Snapshot struct {
	GameSystem  string               `json:"game_system,omitempty"`
	Units       []Unit               `json:"units"`
	Upgrades    []Upgrade            `json:"upgrades,omitempty"`
	Groups      []UpgradeGroup       `json:"upgrade_groups,omitempty"`
	Detachments []DetachmentTemplate `json:"detachments"`
}

// Catalog indexes a snapshot for lookups. Read-only after New.
type Catalog struct {
	snap          Snapshot
	unitsByID     map[string]Unit
	upgradesByID  map[string]Upgrade
	templatesByID map[string]DetachmentTemplate
	groupsByName  map[string]UpgradeGroup
}

func New(snap Snapshot) *Catalog {
	c := &Catalog{
		snap:          snap,
		unitsByID:     make(map[string]Unit, len(snap.Units)),
		upgradesByID:  make(map[string]Upgrade, len(snap.Upgrades)),
		templatesByID: make(map[string]DetachmentTemplate, len(snap.Detachments)),
		groupsByName:  make(map[string]UpgradeGroup, len(snap.Groups)),
	}
	for _, u := range snap.Units {
		c.unitsByID[u.ID] = u
	}
	for _, up := range snap.Upgrades {
		c.upgradesByID[up.ID] = up
	}
	for _, t := range snap.Detachments {
		c.templatesByID[t.ID] = t
	}
	for _, g := range snap.Groups {
		c.groupsByName[g.Name] = g
	}
	// stable order by name for list endpoints
	sort.Slice(c.snap.Units, func(i, j int) bool {
		return strings.ToLower(c.snap.Units[i].Name) < strings.ToLower(c.snap.Units[j].Name)
	})
	sort.Slice(c.snap.Detachments, func(i, j int) bool {
		return strings.ToLower(c.snap.Detachments[i].Name) < strings.ToLower(c.snap.Detachments[j].Name)
	})
	return c
}

// Load reads a snapshot file and indexes it.
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("parse catalogue %s: %w", path, err)
	}
	if len(snap.Units) == 0 {
		return nil, fmt.Errorf("catalogue %s contains no units", path)
	}
	return New(snap), nil
}

func (c *Catalog) Snapshot() Snapshot { return c.snap }

func (c *Catalog) Unit(id string) (Unit, bool) {
	u, ok := c.unitsByID[id]
	return u, ok
}

func (c *Catalog) Upgrade(id string) (Upgrade, bool) {
	u, ok := c.upgradesByID[id]
	return u, ok
}

func (c *Catalog) Template(id string) (DetachmentTemplate, bool) {
	t, ok := c.templatesByID[id]
	return t, ok
}

func (c *Catalog) Group(name string) (UpgradeGroup, bool) {
	g, ok := c.groupsByName[name]
	return g, ok
}

func (c *Catalog) Units() []Unit { return c.snap.Units }

func (c *Catalog) Templates() []DetachmentTemplate { return c.snap.Detachments }

// SearchUnits filters by slot category and/or name substring
// (case-insensitive). Empty arguments match everything.
func (c *Catalog) SearchUnits(category, query string) []Unit {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Unit, 0, len(c.snap.Units))
	for _, u := range c.snap.Units {
		if category != "" && u.UnitType != category {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(u.Name), q) {
			continue
		}
		out = append(out, u)
	}
	return out
}

// UpgradesFor lists upgrades purchasable for a unit, sorted by name.
func (c *Catalog) UpgradesFor(unitID string) []Upgrade {
	var out []Upgrade
	for _, up := range c.snap.Upgrades {
		for _, id := range up.UnitIDs {
			if id == unitID {
				out = append(out, up)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// UnitCost computes per-model base cost and flat upgrade cost for a
// selection set. Unknown upgrade ids are a contract violation.
func (c *Catalog) UnitCost(unitID string, selections []Selection) (base, upgrades int, err error) {
	u, ok := c.unitsByID[unitID]
	if !ok {
		return 0, 0, fmt.Errorf("unknown unit %q", unitID)
	}
	base = u.BaseCost
	for _, sel := range selections {
		up, ok := c.upgradesByID[sel.UpgradeID]
		if !ok {
			return 0, 0, fmt.Errorf("unknown upgrade %q on unit %q", sel.UpgradeID, unitID)
		}
		qty := sel.Quantity
		if qty <= 0 {
			qty = 1
		}
		upgrades += up.Cost * qty
	}
	return base, upgrades, nil
}

// ValidateSelections checks upgrade group bounds for one entry's
// selections. Returns human-readable problems, empty when fine.
func (c *Catalog) ValidateSelections(unitID string, selections []Selection) []string {
	var problems []string
	perGroup := map[string]int{}
	for _, sel := range selections {
		up, ok := c.upgradesByID[sel.UpgradeID]
		if !ok {
			problems = append(problems, fmt.Sprintf("unknown upgrade %s", sel.UpgradeID))
			continue
		}
		if up.Group != "" {
			qty := sel.Quantity
			if qty <= 0 {
				qty = 1
			}
			perGroup[up.Group] += qty
		}
	}
	groups := make([]string, 0, len(perGroup))
	for name := range perGroup {
		groups = append(groups, name)
	}
	sort.Strings(groups)
	for _, name := range groups {
		g, ok := c.groupsByName[name]
		if !ok {
			continue
		}
		n := perGroup[name]
		if g.MaxQuantity > 0 && n > g.MaxQuantity {
			problems = append(problems, fmt.Sprintf("%s: maximum %d selection(s), found %d", name, g.MaxQuantity, n))
		}
		if n < g.MinQuantity {
			problems = append(problems, fmt.Sprintf("%s: minimum %d selection(s), found %d", name, g.MinQuantity, n))
		}
	}
	return problems
}
