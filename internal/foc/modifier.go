package foc

import (
	"math"

	"github.com/veletaris/rosterforge/internal/catalog"
	"github.com/veletaris/rosterforge/internal/roster"
)

// Modifier field names for non-slot targets.
const (
	FieldCostAuxiliary = "cost:auxiliary"
	FieldCostApex      = "cost:apex"
	FieldInstances     = "instances"
)

// ModifierState is the roster-derived input to template modifiers:
// the selected doctrine (empty = none) and how many models carrying
// each unlock category the roster contains.
type ModifierState struct {
	Doctrine       string
	CategoryCounts map[string]int
}

// CountUnlockCategories tallies unlock-category model counts across
// all entries (quantity-weighted, as the catalogue rules expect).
func CountUnlockCategories(r *roster.Roster, cat *catalog.Catalog) map[string]int {
	counts := map[string]int{}
	for _, d := range r.Detachments {
		for _, e := range d.Entries {
			u, ok := cat.Unit(e.UnitID)
			if !ok {
				continue
			}
			for _, id := range u.UnlockCategories {
				counts[id] += e.Quantity
			}
		}
	}
	return counts
}

// StateFor builds the modifier state for a roster.
func StateFor(r *roster.Roster, cat *catalog.Catalog) ModifierState {
	return ModifierState{Doctrine: r.Doctrine, CategoryCounts: CountUnlockCategories(r, cat)}
}

// ResolvedTemplate is a template after doctrine/unlock modifiers.
type ResolvedTemplate struct {
	Slots        map[string]catalog.SlotLimit
	Costs        catalog.DetachmentCosts
	MaxInstances int
}

// EvaluateTemplate applies a template's modifiers against the roster
// state and returns adjusted slot limits, costs and instance cap.
// Increment effects scale by the repeat count; set effects override,
// and a fractional set on a cost acts as a multiplier (the catalogue
// encodes "cost halved" that way).
func EvaluateTemplate(tpl catalog.DetachmentTemplate, st ModifierState) ResolvedTemplate {
	out := ResolvedTemplate{
		Slots:        make(map[string]catalog.SlotLimit, len(tpl.Slots)),
		Costs:        tpl.Costs,
		MaxInstances: catalog.SlotUnlimited,
	}
	for k, v := range tpl.Slots {
		out.Slots[k] = v
	}
	if len(tpl.Modifiers) == 0 {
		return out
	}

	auxSet, apexSet := false, false
	var auxVal, apexVal float64
	for _, m := range tpl.Modifiers {
		if !conditionsHold(m.Conditions, st) {
			continue
		}
		repeat := repeatCount(m.Repeats, st)
		switch m.Field {
		case FieldCostAuxiliary:
			if m.Type == "set" {
				auxSet, auxVal = true, m.Value
			} else {
				out.Costs.Auxiliary += int(m.Value) * repeat
			}
		case FieldCostApex:
			if m.Type == "set" {
				apexSet, apexVal = true, m.Value
			} else {
				out.Costs.Apex += int(m.Value) * repeat
			}
		case FieldInstances:
			if m.Type == "set" {
				out.MaxInstances = maxInt(0, int(m.Value))
			} else {
				out.MaxInstances = maxInt(0, out.MaxInstances+int(m.Value)*repeat)
			}
		default: // slot key
			lim, ok := out.Slots[m.Field]
			if !ok {
				continue
			}
			if m.Type == "set" {
				lim.Max = maxInt(0, int(m.Value))
			} else {
				lim.Max = maxInt(0, lim.Max+int(m.Value)*repeat)
			}
			out.Slots[m.Field] = lim
		}
	}
	if auxSet {
		out.Costs.Auxiliary = applyCostSet(tpl.Costs.Auxiliary, auxVal)
	}
	if apexSet {
		out.Costs.Apex = applyCostSet(tpl.Costs.Apex, apexVal)
	}
	return out
}

// applyCostSet: fractional values below 1 multiply the base cost,
// anything else replaces it.
func applyCostSet(base int, v float64) int {
	if v > 0 && v < 1 {
		return maxInt(0, int(math.Round(float64(base)*v)))
	}
	return maxInt(0, int(v))
}

func conditionsHold(conds []catalog.ModifierCondition, st ModifierState) bool {
	for _, c := range conds {
		n := selectionCount(c.ChildID, st)
		switch c.Type {
		case "equalTo":
			if n != c.Value {
				return false
			}
		case "lessThan":
			if n >= c.Value {
				return false
			}
		case "atLeast":
			if n < c.Value {
				return false
			}
		case "greaterThan":
			if n <= c.Value {
				return false
			}
		}
	}
	return true
}

// selectionCount: unlock categories count models; a doctrine id
// counts 1 when selected.
func selectionCount(childID string, st ModifierState) int {
	if childID == st.Doctrine && childID != "" {
		return 1
	}
	return st.CategoryCounts[childID]
}

func repeatCount(reps []catalog.ModifierRepeat, st ModifierState) int {
	if len(reps) == 0 {
		return 1
	}
	total := 0
	for _, rep := range reps {
		per := rep.Repeats
		if per <= 0 {
			per = 1
		}
		total += selectionCount(rep.ChildID, st) * per
	}
	return total
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
