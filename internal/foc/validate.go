package foc

import (
	"fmt"
	"sort"

	"github.com/veletaris/rosterforge/internal/catalog"
	"github.com/veletaris/rosterforge/internal/roster"
)

// ValidateRoster runs the full authority-side check: per-detachment
// slot minima/maxima, entries in undeclared slots, restriction
// violations, then the roster-wide composition rules and the points
// limit. Returns (true, nil) when the roster is legal.
func ValidateRoster(r *roster.Roster, cat *catalog.Catalog, rules Rules) (bool, []string) {
	var errs []string

	for _, d := range r.Detachments {
		errs = append(errs, validateDetachment(d)...)
	}

	comp, err := ComputeComposition(r, cat, rules)
	if err != nil {
		errs = append(errs, err.Error())
	} else {
		errs = append(errs, validateComposition(comp, rules)...)
	}

	if r.TotalPoints > r.PointsLimit {
		errs = append(errs, fmt.Sprintf("Points limit exceeded: %d/%d", r.TotalPoints, r.PointsLimit))
	}

	return len(errs) == 0, errs
}

func validateDetachment(d roster.Detachment) []string {
	var errs []string

	counts := map[string]int{}
	for _, e := range d.Entries {
		counts[e.Category]++
	}

	keys := make([]string, 0, len(d.Slots))
	for k := range d.Slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range keys {
		s := d.Slots[name]
		n := counts[name]
		if n < s.Min {
			errs = append(errs, fmt.Sprintf("[%s] %s: minimum %d required, found %d", d.Name, name, s.Min, n))
		}
		if s.Max < catalog.SlotUnlimited && n > s.Max {
			errs = append(errs, fmt.Sprintf("[%s] %s: maximum %d allowed, found %d", d.Name, name, s.Max, n))
		}
	}

	// entries occupying slots this detachment does not declare
	extra := make([]string, 0)
	for name := range counts {
		if _, ok := d.Slots[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		errs = append(errs, fmt.Sprintf("[%s] %s: %d unit(s) not allowed in this detachment", d.Name, name, counts[name]))
	}

	// restriction violations
	for _, e := range d.Entries {
		s, ok := d.Slots[e.Category]
		if !ok || s.Restriction == "" {
			continue
		}
		if !MatchesRestriction(e.UnitName, s.Restriction) {
			errs = append(errs, fmt.Sprintf("[%s] %s: not allowed in %s slot (restricted to: %s)",
				d.Name, e.UnitName, e.Category, s.Restriction))
		}
	}

	return errs
}

func validateComposition(comp roster.Composition, rules Rules) []string {
	var errs []string
	if comp.PrimaryCount == 0 {
		errs = append(errs, "Roster must have a Primary Detachment")
	} else if comp.PrimaryCount > comp.PrimaryMax {
		errs = append(errs, fmt.Sprintf("Too many Primary Detachments: %d/%d", comp.PrimaryCount, comp.PrimaryMax))
	}
	if comp.AuxiliaryUsed > comp.AuxiliaryBudget {
		errs = append(errs, fmt.Sprintf("Auxiliary budget exceeded: %d/%d", comp.AuxiliaryUsed, comp.AuxiliaryBudget))
	}
	if comp.ApexUsed > comp.ApexBudget {
		errs = append(errs, fmt.Sprintf("Apex budget exceeded: %d/%d", comp.ApexUsed, comp.ApexBudget))
	}
	if comp.WarlordCount > 0 && !comp.WarlordAvailable {
		errs = append(errs, fmt.Sprintf("Warlord Detachment requires %d+ points limit", rules.WarlordThreshold))
	}
	return errs
}
