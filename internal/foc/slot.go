// Package foc implements the force-organisation engine: slot matching,
// composition budgets, availability classification and roster
// validation. Everything here is a pure function of its inputs and is
// safe to call per rendered catalogue row.
package foc

import (
	"sort"
	"strings"

	"github.com/veletaris/rosterforge/internal/catalog"
	"github.com/veletaris/rosterforge/internal/roster"
)

// slotSeparator splits a slot key into base category and restriction,
// e.g. "Command - Centurions Only".
const slotSeparator = " - "

// BaseCategory returns the category part of a slot key (the whole key
// when it carries no restriction suffix).
func BaseCategory(slotKey string) string {
	if i := strings.Index(slotKey, slotSeparator); i >= 0 {
		return slotKey[:i]
	}
	return slotKey
}

// MatchesRestriction checks a unit name against a free-form
// eligibility clause such as "Centurions Only" or "Ordinatus or
// Titan". The clause is not a grammar: both sides are lower-cased,
// the " units only"/" only" suffixes are stripped, " or " is
// normalised to a comma list, and any clause that substring-matches
// the unit name in either direction passes. Malformed text simply
// fails to match; it is never an error.
func MatchesRestriction(unitName, restriction string) bool {
	clean := strings.ToLower(restriction)
	clean = strings.ReplaceAll(clean, " units only", "")
	clean = strings.ReplaceAll(clean, " only", "")
	clean = strings.ReplaceAll(clean, " or ", ", ")

	unit := strings.ToLower(unitName)
	for _, part := range strings.Split(clean, ", ") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(unit, part) || strings.Contains(part, unit) {
			return true
		}
	}
	return false
}

// HasSlotForUnit reports whether a template slot map offers any slot
// the unit could occupy: the key's base category must equal the
// unit's native type, a restricted key must accept the unit's name,
// and locked slots (max 0) never host.
func HasSlotForUnit(unitType, unitName string, limits map[string]catalog.SlotLimit, restrictions map[string]string) bool {
	for key, lim := range limits {
		if lim.Max == 0 {
			continue
		}
		if BaseCategory(key) != unitType {
			continue
		}
		if restr := restrictions[key]; restr != "" && !MatchesRestriction(unitName, restr) {
			continue
		}
		return true
	}
	return false
}

// FindMatchingSlotKey resolves which slot key in a detachment
// instance a unit occupies. When both a bare category slot and a
// satisfied restricted variant exist, the restricted one wins:
// specialised slots claim eligible units over generic catch-alls.
// Keys are scanned in sorted order so ties between several matching
// restricted slots resolve deterministically. Returns false when no
// slot matches; callers treat that as "no slot", not an error.
func FindMatchingSlotKey(unitType, unitName string, slots map[string]roster.Slot) (string, bool) {
	keys := make([]string, 0, len(slots))
	for k := range slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var bare, restricted string
	var haveBare, haveRestricted bool
	for _, key := range keys {
		if BaseCategory(key) != unitType {
			continue
		}
		restr := slots[key].Restriction
		if restr == "" {
			bare, haveBare = key, true
			continue
		}
		if MatchesRestriction(unitName, restr) {
			restricted, haveRestricted = key, true
		}
	}
	if haveRestricted {
		return restricted, true
	}
	if haveBare {
		return bare, true
	}
	return "", false
}
