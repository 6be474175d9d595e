package foc

import (
	"fmt"
	"strings"

	"github.com/veletaris/rosterforge/internal/catalog"
	"github.com/veletaris/rosterforge/internal/roster"
)

// Rules holds the game-system composition constants.
type Rules struct {
	PrimaryMax       int
	WarlordThreshold int // points limit at which a Warlord detachment unlocks
}

// DefaultRules matches the published game-system data.
var DefaultRules = Rules{PrimaryMax: 1, WarlordThreshold: 3000}

// IsWarlord reports whether a detachment name is a Warlord variant.
// Warlord detachments are classified Primary but follow their own
// limit and unlock rules.
func IsWarlord(name string) bool {
	return strings.Contains(name, "Warlord")
}

// CanAffordDetachment decides whether adding a template is currently
// legal under the roster's composition counters. Checks are
// independent and short-circuit on the first violation; the reason
// string carries the counters the UI needs for an honest message.
func CanAffordDetachment(tpl catalog.DetachmentTemplate, comp roster.Composition, rules Rules) (bool, string) {
	if c := tpl.Costs.Auxiliary; c > 0 {
		if remaining := comp.AuxiliaryBudget - comp.AuxiliaryUsed; c > remaining {
			return false, fmt.Sprintf("Auxiliary budget full (%d/%d). Add more Command units to unlock slots.",
				comp.AuxiliaryUsed, comp.AuxiliaryBudget)
		}
	}
	if c := tpl.Costs.Apex; c > 0 {
		if remaining := comp.ApexBudget - comp.ApexUsed; c > remaining {
			return false, fmt.Sprintf("Apex budget full (%d/%d). Add High Command units with +1 Apex to unlock slots.",
				comp.ApexUsed, comp.ApexBudget)
		}
	}
	warlord := IsWarlord(tpl.Name)
	if tpl.Type == "Primary" && !warlord && comp.PrimaryCount >= comp.PrimaryMax {
		return false, fmt.Sprintf("Already have a Primary Detachment (max %d)", comp.PrimaryMax)
	}
	if warlord {
		if !comp.WarlordAvailable {
			return false, fmt.Sprintf("Warlord Detachment requires %d+ points limit", rules.WarlordThreshold)
		}
		if comp.WarlordCount >= 1 {
			return false, "Already have a Warlord Detachment (max 1)"
		}
	}
	return true, ""
}

// ComputeComposition derives the budget counters from roster state:
// detachment counts and budget spend from templates, budget earned
// from unit grants (value x quantity) and upgrade grants. This is the
// authority-side recompute; the builder mirror consumes the result.
// A detachment instance whose template is missing from the catalogue
// is a contract violation.
func ComputeComposition(r *roster.Roster, cat *catalog.Catalog, rules Rules) (roster.Composition, error) {
	comp := roster.Composition{PrimaryMax: rules.PrimaryMax}

	for _, d := range r.Detachments {
		if d.Type == "Primary" {
			comp.PrimaryCount++
			if IsWarlord(d.Name) {
				comp.WarlordCount++
			}
		}
		tpl, ok := cat.Template(d.TemplateID)
		if !ok {
			return comp, fmt.Errorf("detachment %q references unknown template %q", d.Name, d.TemplateID)
		}
		comp.AuxiliaryUsed += tpl.Costs.Auxiliary
		comp.ApexUsed += tpl.Costs.Apex
	}

	for _, d := range r.Detachments {
		for _, e := range d.Entries {
			u, ok := cat.Unit(e.UnitID)
			if !ok {
				continue // stale entry; validation reports it
			}
			for _, g := range u.Grants {
				applyGrant(&comp, g, e.Quantity)
			}
			for _, sel := range e.Upgrades {
				up, ok := cat.Upgrade(sel.UpgradeID)
				if !ok {
					continue
				}
				qty := sel.Quantity
				if qty <= 0 {
					qty = 1
				}
				for _, g := range up.Grants {
					applyGrant(&comp, g, qty)
				}
			}
		}
	}

	comp.WarlordAvailable = r.PointsLimit >= rules.WarlordThreshold
	return comp, nil
}

func applyGrant(comp *roster.Composition, g catalog.BudgetGrant, qty int) {
	switch g.Target {
	case "auxiliary":
		comp.AuxiliaryBudget += g.Value * qty
	case "apex":
		comp.ApexBudget += g.Value * qty
	}
}
