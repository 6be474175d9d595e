package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRoster() Roster {
	return Roster{
		ID: "r1", Name: "Test List", PointsLimit: 2500,
		Detachments: []Detachment{{
			ID: "d1", TemplateID: "tpl1", Name: "Battle Group", Type: "Primary",
			Slots: map[string]Slot{
				"Command": {Min: 1, Max: 2},
				"Troops":  {Min: 2, Max: 6},
			},
			Entries: []Entry{
				{ID: "e1", UnitID: "u1", UnitName: "Legate", Category: "Command", Quantity: 1, BaseCost: 85},
				{ID: "e2", UnitID: "u2", UnitName: "Lasrifles", Category: "Troops", Quantity: 10, BaseCost: 7, UpgradeCost: 10},
			},
		}},
	}
}

func TestEntryCost(t *testing.T) {
	assert.Equal(t, 85, EntryCost(85, 0, 1))
	assert.Equal(t, 170, EntryCost(7, 10, 10), "upgrade cost adds per model before multiplying")
	assert.Equal(t, 0, EntryCost(85, 0, 0))
}

func TestRecompute(t *testing.T) {
	r := sampleRoster()
	r.Recompute()

	assert.Equal(t, 85, r.Detachments[0].Entries[0].TotalCost)
	assert.Equal(t, 170, r.Detachments[0].Entries[1].TotalCost)
	assert.Equal(t, 255, r.TotalPoints)
	assert.Equal(t, 1, r.Detachments[0].Slots["Command"].Filled)
	assert.Equal(t, 1, r.Detachments[0].Slots["Troops"].Filled, "filled counts entries, not models")
}

func TestRecomputeResetsFilled(t *testing.T) {
	r := sampleRoster()
	r.Recompute()
	r.Detachments[0].Entries = r.Detachments[0].Entries[:1]
	r.Recompute()

	assert.Equal(t, 0, r.Detachments[0].Slots["Troops"].Filled)
	assert.Equal(t, 85, r.TotalPoints)
}

func TestRecomputeToleratesUnslottedEntry(t *testing.T) {
	r := sampleRoster()
	r.Detachments[0].Entries = append(r.Detachments[0].Entries,
		Entry{ID: "e3", UnitID: "u3", UnitName: "Ordinatus", Category: "Lords of War", Quantity: 1, BaseCost: 600})
	r.Recompute()

	assert.Equal(t, 855, r.TotalPoints, "cost still counts even without a declared slot")
}

func TestUnitCount(t *testing.T) {
	r := sampleRoster()
	r.Detachments[0].Entries = append(r.Detachments[0].Entries,
		Entry{ID: "e3", UnitID: "u2", UnitName: "Lasrifles", Category: "Troops", Quantity: 10})

	assert.Equal(t, 2, r.UnitCount("u2"))
	assert.Equal(t, 1, r.UnitCount("u1"))
	assert.Equal(t, 0, r.UnitCount("missing"))
}

func TestHasTemplate(t *testing.T) {
	r := sampleRoster()
	assert.True(t, r.HasTemplate("tpl1"))
	assert.False(t, r.HasTemplate("tpl2"))
}

func TestCloneIsIndependent(t *testing.T) {
	r := sampleRoster()
	r.Recompute()
	c := r.Clone()

	c.Detachments[0].Entries[0].Quantity = 99
	c.Detachments[0].Slots["Command"] = Slot{Min: 5, Max: 5}
	c.Detachments[0].Entries[1].Upgrades = append(c.Detachments[0].Entries[1].Upgrades,
		EntryUpgrade{UpgradeID: "up1", Quantity: 1})

	require.Equal(t, 1, r.Detachments[0].Entries[0].Quantity)
	assert.Equal(t, 1, r.Detachments[0].Slots["Command"].Min)
	assert.Empty(t, r.Detachments[0].Entries[1].Upgrades)
}
