package foc

import (
	"github.com/veletaris/rosterforge/internal/catalog"
	"github.com/veletaris/rosterforge/internal/roster"
)

// Shared catalogue fixture: a cut-down Solar Auxilia army list with
// enough variety to exercise grants, restrictions and modifiers.
func testCatalog() *catalog.Catalog {
	return catalog.New(catalog.Snapshot{
		GameSystem: "test-system",
		Units: []catalog.Unit{
			{
				ID: "legate-commander", Name: "Legate Commander", UnitType: "Command",
				BaseCost: 85, ModelMin: 1, ModelMax: 1,
				Grants: []catalog.BudgetGrant{{Target: "auxiliary", Value: 1}},
			},
			{
				ID: "lord-marshal", Name: "Lord Marshal", UnitType: "Command",
				BaseCost: 140, ModelMin: 1, ModelMax: 1,
				Grants:      []catalog.BudgetGrant{{Target: "auxiliary", Value: 2}, {Target: "apex", Value: 1}},
				Constraints: []catalog.UnitConstraint{{Type: "max", Value: 1, Scope: "roster"}},
			},
			{
				ID: "centurion-prime", Name: "Centurion Prime", UnitType: "Command",
				BaseCost: 45, ModelMin: 1, ModelMax: 1,
			},
			{
				ID: "lasrifle-section", Name: "Lasrifle Section", UnitType: "Troops",
				BaseCost: 7, ModelMin: 10, ModelMax: 20,
				UnlockCategories: []string{"line-unit"},
			},
			{
				ID: "veletaris-storm", Name: "Veletaris Storm Section", UnitType: "Troops",
				BaseCost: 9, ModelMin: 10, ModelMax: 20,
			},
			{
				ID: "ordinatus-ulator", Name: "Ordinatus Ulator", UnitType: "Lords of War",
				BaseCost: 600, ModelMin: 1, ModelMax: 1,
			},
		},
		Upgrades: []catalog.Upgrade{
			{ID: "vox-disruptor", Name: "Vox Disruptor Array", Cost: 10, UnitIDs: []string{"lasrifle-section"}},
			{
				ID: "apex-warrant", Name: "Apex Warrant", Cost: 25,
				Grants:  []catalog.BudgetGrant{{Target: "apex", Value: 1}},
				UnitIDs: []string{"legate-commander"},
			},
		},
		Detachments: []catalog.DetachmentTemplate{
			{
				ID: "solar-primary", Name: "Solar Auxilia Battle Group", Type: "Primary",
				Slots: map[string]catalog.SlotLimit{
					"Command":                 {Min: 1, Max: 2},
					"Troops":                  {Min: 2, Max: 6},
					"Troops - Veletaris Only": {Min: 0, Max: 2},
					"Support":                 {Min: 0, Max: 3},
				},
				Restrictions: map[string]string{"Troops - Veletaris Only": "Veletaris Only"},
			},
			{
				ID: "aux-armoured", Name: "Armoured Fist Auxiliary", Type: "Auxiliary",
				Slots: map[string]catalog.SlotLimit{"Troops": {Min: 1, Max: 3}},
				Costs: catalog.DetachmentCosts{Auxiliary: 1},
			},
			{
				ID: "apex-ordinatus", Name: "Ordinatus Apex", Type: "Apex",
				Slots: map[string]catalog.SlotLimit{"Lords of War": {Min: 1, Max: 1}},
				Costs: catalog.DetachmentCosts{Apex: 1},
			},
			{
				ID: "warlord-imperialis", Name: "Warlord Detachment", Type: "Primary",
				Slots: map[string]catalog.SlotLimit{"Command": {Min: 1, Max: 1}},
			},
		},
	})
}

// testRoster builds a roster with one primary detachment instantiated
// from the fixture template, with derived state recomputed.
func testRoster(pointsLimit int) *roster.Roster {
	r := &roster.Roster{
		ID: "r1", Name: "Test List", PointsLimit: pointsLimit,
		Detachments: []roster.Detachment{
			{
				ID: "d1", TemplateID: "solar-primary", Name: "Solar Auxilia Battle Group", Type: "Primary",
				Slots: map[string]roster.Slot{
					"Command":                 {Min: 1, Max: 2},
					"Troops":                  {Min: 2, Max: 6},
					"Troops - Veletaris Only": {Min: 0, Max: 2, Restriction: "Veletaris Only"},
					"Support":                 {Min: 0, Max: 3},
				},
			},
		},
	}
	r.Recompute()
	return r
}

func addEntry(r *roster.Roster, detIdx int, e roster.Entry) {
	r.Detachments[detIdx].Entries = append(r.Detachments[detIdx].Entries, e)
	r.Recompute()
}
