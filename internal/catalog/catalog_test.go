package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		GameSystem: "test-system",
		Units: []Unit{
			{ID: "u-las", Name: "Lasrifle Section", UnitType: "Troops", BaseCost: 7, ModelMin: 10, ModelMax: 20},
			{ID: "u-legate", Name: "Legate Commander", UnitType: "Command", BaseCost: 85, ModelMin: 1, ModelMax: 1},
			{ID: "u-veletaris", Name: "Veletaris Storm Section", UnitType: "Troops", BaseCost: 9, ModelMin: 10, ModelMax: 20},
		},
		Upgrades: []Upgrade{
			{ID: "up-vox", Name: "Vox Disruptor Array", Cost: 10, UnitIDs: []string{"u-las"}},
			{ID: "up-axes", Name: "Power Axes", Cost: 25, Group: "weapon-options", UnitIDs: []string{"u-veletaris"}},
			{ID: "up-charnabal", Name: "Charnabal Sabre", Cost: 15, Group: "weapon-options", UnitIDs: []string{"u-veletaris"}},
		},
		Groups: []UpgradeGroup{{Name: "weapon-options", MinQuantity: 0, MaxQuantity: 1}},
		Detachments: []DetachmentTemplate{
			{ID: "t-primary", Name: "Battle Group", Type: "Primary",
				Slots: map[string]SlotLimit{"Command": {Min: 1, Max: 2}}},
		},
	}
}

func TestNewIndexesAndSorts(t *testing.T) {
	c := New(sampleSnapshot())

	u, ok := c.Unit("u-legate")
	require.True(t, ok)
	assert.Equal(t, "Legate Commander", u.Name)

	_, ok = c.Unit("missing")
	assert.False(t, ok)

	names := make([]string, 0, len(c.Units()))
	for _, u := range c.Units() {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"Lasrifle Section", "Legate Commander", "Veletaris Storm Section"}, names)
}

func TestSearchUnits(t *testing.T) {
	c := New(sampleSnapshot())

	assert.Len(t, c.SearchUnits("", ""), 3)
	assert.Len(t, c.SearchUnits("Troops", ""), 2)

	got := c.SearchUnits("Troops", "veletaris")
	require.Len(t, got, 1)
	assert.Equal(t, "u-veletaris", got[0].ID)

	assert.Empty(t, c.SearchUnits("Command", "veletaris"))
}

func TestUpgradesFor(t *testing.T) {
	c := New(sampleSnapshot())

	got := c.UpgradesFor("u-veletaris")
	require.Len(t, got, 2)
	assert.Equal(t, "Charnabal Sabre", got[0].Name, "sorted by name")

	assert.Empty(t, c.UpgradesFor("u-legate"))
}

func TestUnitCost(t *testing.T) {
	c := New(sampleSnapshot())

	base, upgrades, err := c.UnitCost("u-las", []Selection{{UpgradeID: "up-vox", Quantity: 2}})
	require.NoError(t, err)
	assert.Equal(t, 7, base)
	assert.Equal(t, 20, upgrades)

	// zero quantity defaults to one
	_, upgrades, err = c.UnitCost("u-las", []Selection{{UpgradeID: "up-vox"}})
	require.NoError(t, err)
	assert.Equal(t, 10, upgrades)

	_, _, err = c.UnitCost("missing", nil)
	assert.Error(t, err)

	_, _, err = c.UnitCost("u-las", []Selection{{UpgradeID: "missing"}})
	assert.Error(t, err)
}

func TestValidateSelections(t *testing.T) {
	c := New(sampleSnapshot())

	assert.Empty(t, c.ValidateSelections("u-veletaris", []Selection{{UpgradeID: "up-axes", Quantity: 1}}))

	problems := c.ValidateSelections("u-veletaris", []Selection{
		{UpgradeID: "up-axes", Quantity: 1},
		{UpgradeID: "up-charnabal", Quantity: 1},
	})
	require.Len(t, problems, 1)
	assert.Equal(t, "weapon-options: maximum 1 selection(s), found 2", problems[0])

	problems = c.ValidateSelections("u-las", []Selection{{UpgradeID: "missing"}})
	require.Len(t, problems, 1)
	assert.Equal(t, "unknown upgrade missing", problems[0])
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")

	require.NoError(t, os.WriteFile(path, []byte(`{
		"game_system": "test-system",
		"units": [{"id": "u1", "name": "Legate", "unit_type": "Command", "base_cost": 85, "model_min": 1, "model_max": 1}],
		"detachments": []
	}`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	_, ok := c.Unit("u1")
	assert.True(t, ok)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"units": [], "detachments": []}`), 0o644))
	_, err = Load(empty)
	assert.Error(t, err, "a catalogue without units is refused")
}
