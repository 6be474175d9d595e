package foc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veletaris/rosterforge/internal/catalog"
	"github.com/veletaris/rosterforge/internal/roster"
)

func TestCanAffordDetachment(t *testing.T) {
	aux := catalog.DetachmentTemplate{ID: "a", Name: "Armoured Fist Auxiliary", Type: "Auxiliary",
		Costs: catalog.DetachmentCosts{Auxiliary: 1}}
	apex := catalog.DetachmentTemplate{ID: "x", Name: "Ordinatus Apex", Type: "Apex",
		Costs: catalog.DetachmentCosts{Apex: 1}}
	primary := catalog.DetachmentTemplate{ID: "p", Name: "Battle Group", Type: "Primary"}
	warlord := catalog.DetachmentTemplate{ID: "w", Name: "Warlord Detachment", Type: "Primary"}

	cases := []struct {
		name       string
		tpl        catalog.DetachmentTemplate
		comp       roster.Composition
		wantOK     bool
		wantReason string
	}{
		{
			name: "auxiliary within budget",
			tpl:  aux, comp: roster.Composition{AuxiliaryBudget: 2, AuxiliaryUsed: 1},
			wantOK: true,
		},
		{
			name: "auxiliary budget full",
			tpl:  aux, comp: roster.Composition{AuxiliaryBudget: 2, AuxiliaryUsed: 2},
			wantOK:     false,
			wantReason: "Auxiliary budget full (2/2). Add more Command units to unlock slots.",
		},
		{
			name: "apex budget full",
			tpl:  apex, comp: roster.Composition{ApexBudget: 1, ApexUsed: 1},
			wantOK:     false,
			wantReason: "Apex budget full (1/1). Add High Command units with +1 Apex to unlock slots.",
		},
		{
			name: "second primary rejected",
			tpl:  primary, comp: roster.Composition{PrimaryCount: 1, PrimaryMax: 1},
			wantOK:     false,
			wantReason: "Already have a Primary Detachment (max 1)",
		},
		{
			name: "first primary accepted",
			tpl:  primary, comp: roster.Composition{PrimaryMax: 1},
			wantOK: true,
		},
		{
			name: "warlord below threshold",
			tpl:  warlord, comp: roster.Composition{PrimaryMax: 1, WarlordAvailable: false},
			wantOK:     false,
			wantReason: "Warlord Detachment requires 3000+ points limit",
		},
		{
			name: "warlord not blocked by existing primary",
			tpl:  warlord, comp: roster.Composition{PrimaryCount: 1, PrimaryMax: 1, WarlordAvailable: true},
			wantOK: true,
		},
		{
			name: "second warlord rejected",
			tpl:  warlord, comp: roster.Composition{PrimaryCount: 2, PrimaryMax: 1, WarlordAvailable: true, WarlordCount: 1},
			wantOK:     false,
			wantReason: "Already have a Warlord Detachment (max 1)",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := CanAffordDetachment(tc.tpl, tc.comp, DefaultRules)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantReason, reason)
		})
	}
}

func TestComputeCompositionGrants(t *testing.T) {
	cat := testCatalog()
	r := testRoster(2500)

	// Legate grants +1 auxiliary per model; the Apex Warrant upgrade
	// grants +1 apex.
	addEntry(r, 0, roster.Entry{
		ID: "e1", UnitID: "legate-commander", UnitName: "Legate Commander",
		Category: "Command", Quantity: 1, BaseCost: 85,
		Upgrades: []roster.EntryUpgrade{{UpgradeID: "apex-warrant", Quantity: 1}},
	})
	addEntry(r, 0, roster.Entry{
		ID: "e2", UnitID: "lord-marshal", UnitName: "Lord Marshal",
		Category: "Command", Quantity: 1, BaseCost: 140,
	})

	comp, err := ComputeComposition(r, cat, DefaultRules)
	require.NoError(t, err)
	assert.Equal(t, 1, comp.PrimaryCount)
	assert.Equal(t, 1, comp.PrimaryMax)
	assert.Equal(t, 3, comp.AuxiliaryBudget, "1 from legate + 2 from lord marshal")
	assert.Equal(t, 2, comp.ApexBudget, "1 from lord marshal + 1 from apex warrant")
	assert.Equal(t, 0, comp.AuxiliaryUsed)
	assert.False(t, comp.WarlordAvailable, "2500 points is below the warlord threshold")
}

func TestComputeCompositionQuantityScalesGrants(t *testing.T) {
	cat := testCatalog()
	r := testRoster(3000)
	addEntry(r, 0, roster.Entry{
		ID: "e1", UnitID: "legate-commander", UnitName: "Legate Commander",
		Category: "Command", Quantity: 3, BaseCost: 85,
	})

	comp, err := ComputeComposition(r, cat, DefaultRules)
	require.NoError(t, err)
	assert.Equal(t, 3, comp.AuxiliaryBudget, "grants multiply by entry quantity")
	assert.True(t, comp.WarlordAvailable)
}

func TestComputeCompositionCountsSpend(t *testing.T) {
	cat := testCatalog()
	r := testRoster(2500)
	r.Detachments = append(r.Detachments,
		roster.Detachment{ID: "d2", TemplateID: "aux-armoured", Name: "Armoured Fist Auxiliary", Type: "Auxiliary",
			Slots: map[string]roster.Slot{"Troops": {Min: 1, Max: 3}}},
		roster.Detachment{ID: "d3", TemplateID: "apex-ordinatus", Name: "Ordinatus Apex", Type: "Apex",
			Slots: map[string]roster.Slot{"Lords of War": {Min: 1, Max: 1}}},
	)

	comp, err := ComputeComposition(r, cat, DefaultRules)
	require.NoError(t, err)
	assert.Equal(t, 1, comp.AuxiliaryUsed)
	assert.Equal(t, 1, comp.ApexUsed)
}

func TestComputeCompositionUnknownTemplate(t *testing.T) {
	cat := testCatalog()
	r := testRoster(2500)
	r.Detachments[0].TemplateID = "gone"

	_, err := ComputeComposition(r, cat, DefaultRules)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown template")
}

func TestComputeCompositionSkipsStaleEntries(t *testing.T) {
	cat := testCatalog()
	r := testRoster(2500)
	addEntry(r, 0, roster.Entry{ID: "e1", UnitID: "deleted-unit", Category: "Command", Quantity: 1})

	comp, err := ComputeComposition(r, cat, DefaultRules)
	require.NoError(t, err)
	assert.Equal(t, 0, comp.AuxiliaryBudget)
}

func TestIsWarlord(t *testing.T) {
	assert.True(t, IsWarlord("Warlord Detachment"))
	assert.False(t, IsWarlord("Solar Auxilia Battle Group"))
}
