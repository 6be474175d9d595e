package foc

import (
	"fmt"

	"github.com/veletaris/rosterforge/internal/catalog"
	"github.com/veletaris/rosterforge/internal/roster"
)

// State classifies whether a unit can be added right now. Exactly one
// state applies per call; these are expected outcomes, never errors.
type State string

const (
	StateNoRoster     State = "no_roster"     // no roster exists yet
	StateRosterLimit  State = "roster_limit"  // roster-wide unique limit reached
	StateNoDetachment State = "no_detachment" // roster has zero detachments
	StateAddable      State = "addable"       // open slot in an existing detachment
	StateSlotFull     State = "slot_full"     // matching slots exist, all at capacity
	StateNoSlot       State = "no_slot"       // no existing detachment has a matching slot
)

// DetachmentRef names an existing detachment instance in a verdict.
type DetachmentRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slot string `json:"slot"` // the matched slot key
}

// TemplateRef names a catalogue template the roster could still add.
type TemplateRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Availability is the full verdict for one unit against one roster.
type Availability struct {
	State   State  `json:"state"`
	Message string `json:"message,omitempty"`
	// Existing detachments with a matching slot, split by capacity.
	Open []DetachmentRef `json:"open_detachments,omitempty"`
	Full []DetachmentRef `json:"full_detachments,omitempty"`
	// Templates not yet in the roster that would host the unit and
	// are affordable under the current composition.
	Unlockable []TemplateRef `json:"unlockable_detachments,omitempty"`
}

// Resolve classifies a unit's addability against the roster snapshot
// and the template catalogue. Pure; recomputed on every call.
//
// Order: roster-wide unique limits first, then the empty-roster case,
// then partition existing detachments by slot capacity, finally rank
// the outcome (open beats full beats nothing).
func Resolve(u catalog.Unit, r *roster.Roster, templates []catalog.DetachmentTemplate, rules Rules) Availability {
	if r == nil {
		return Availability{State: StateNoRoster}
	}

	if limit, capped := rosterMax(u); capped {
		if r.UnitCount(u.ID) >= limit {
			return Availability{
				State:   StateRosterLimit,
				Message: fmt.Sprintf("%s is limited to %d per army", u.Name, limit),
			}
		}
	}

	unlockable := unlockableTemplates(u, r, templates, rules)

	if len(r.Detachments) == 0 {
		return Availability{State: StateNoDetachment, Unlockable: unlockable}
	}

	var open, full []DetachmentRef
	for _, d := range r.Detachments {
		key, ok := FindMatchingSlotKey(u.UnitType, u.Name, d.Slots)
		if !ok {
			continue
		}
		ref := DetachmentRef{ID: d.ID, Name: d.Name, Slot: key}
		if s := d.Slots[key]; s.Filled < s.Max {
			open = append(open, ref)
		} else {
			full = append(full, ref)
		}
	}

	switch {
	case len(open) > 0:
		return Availability{State: StateAddable, Open: open, Full: full, Unlockable: unlockable}
	case len(full) > 0:
		return Availability{State: StateSlotFull, Full: full, Unlockable: unlockable}
	default:
		return Availability{State: StateNoSlot, Unlockable: unlockable}
	}
}

// rosterMax extracts a roster-scoped maximum from unit constraints.
func rosterMax(u catalog.Unit) (int, bool) {
	for _, c := range u.Constraints {
		if c.Type == "max" && c.Scope == "roster" {
			return c.Value, true
		}
	}
	return 0, false
}

// unlockableTemplates lists catalogue templates with a matching slot
// for the unit, not already instantiated, and currently affordable.
func unlockableTemplates(u catalog.Unit, r *roster.Roster, templates []catalog.DetachmentTemplate, rules Rules) []TemplateRef {
	var out []TemplateRef
	for _, tpl := range templates {
		if r.HasTemplate(tpl.ID) {
			continue
		}
		if !HasSlotForUnit(u.UnitType, u.Name, tpl.Slots, tpl.Restrictions) {
			continue
		}
		if ok, _ := CanAffordDetachment(tpl, r.Composition, rules); !ok {
			continue
		}
		out = append(out, TemplateRef{ID: tpl.ID, Name: tpl.Name, Type: tpl.Type})
	}
	return out
}
