package roster

// ========================= Roster Aggregate =========================
// Mutable roster state. The authority owns the canonical copy; the
// builder keeps a mirror of the same shapes via the Store.

// Slot is a named capacity bucket inside a detachment instance.
// Filled counts entries occupying the slot, not model quantities.
// Max 0 means locked; 999 means unlimited.
type Slot struct {
	Min         int    `json:"min"`
	Max         int    `json:"max"`
	Filled      int    `json:"filled"`
	Restriction string `json:"restriction,omitempty"`
}

// EntryUpgrade is one purchased upgrade on an entry.
type EntryUpgrade struct {
	UpgradeID string `json:"upgrade_id"`
	Quantity  int    `json:"quantity"`
}

// Entry is one unit line inside a detachment instance.
type Entry struct {
	ID       string         `json:"id"`
	UnitID   string         `json:"unit_id"`
	UnitName string         `json:"unit_name"`
	Category string         `json:"category"` // slot name the entry occupies
	Quantity int            `json:"quantity"` // model count
	Upgrades []EntryUpgrade `json:"upgrades,omitempty"`
	// Points. TotalCost = (BaseCost + UpgradeCost) * Quantity.
	BaseCost    int `json:"base_cost"`
	UpgradeCost int `json:"upgrade_cost"`
	TotalCost   int `json:"total_cost"`
	ModelMin    int `json:"model_min"`
	ModelMax    int `json:"model_max"`
}

// Detachment is one added detachment instance. Slots hold the resolved
// map after doctrine/unlock modifiers were applied at add time.
type Detachment struct {
	ID         string          `json:"id"`
	TemplateID string          `json:"detachment_id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Slots      map[string]Slot `json:"slots"`
	Entries    []Entry         `json:"entries"`
}

// Composition is the roster-wide budget state. The authority
// recomputes it; the mirror consumes it as-is.
type Composition struct {
	PrimaryCount     int  `json:"primary_count"`
	PrimaryMax       int  `json:"primary_max"`
	AuxiliaryBudget  int  `json:"auxiliary_budget"`
	AuxiliaryUsed    int  `json:"auxiliary_used"`
	ApexBudget       int  `json:"apex_budget"`
	ApexUsed         int  `json:"apex_used"`
	WarlordAvailable bool `json:"warlord_available"`
	WarlordCount     int  `json:"warlord_count"`
}

// Validation is the last verdict returned by the authority.
// Known is false until a verdict arrives (or after a resync).
type Validation struct {
	Known   bool     `json:"known"`
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors,omitempty"`
}

// Roster is the aggregate root.
type Roster struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	PointsLimit int          `json:"points_limit"`
	Doctrine    string       `json:"doctrine,omitempty"` // empty = none selected
	Detachments []Detachment `json:"detachments"`
	Composition Composition  `json:"composition"`
	TotalPoints int          `json:"total_points"`
	Validation  Validation   `json:"validation"`
}

// EntryCost is the one place the entry cost formula lives.
func EntryCost(baseCost, upgradeCost, quantity int) int {
	return (baseCost + upgradeCost) * quantity
}

// Recompute refreshes every derived field from the structural state:
// entry totals, slot fill counts and the roster total. Small rosters
// make recompute-from-scratch cheaper to reason about than
// incremental bookkeeping.
func (r *Roster) Recompute() {
	total := 0
	for di := range r.Detachments {
		d := &r.Detachments[di]
		for name, s := range d.Slots {
			s.Filled = 0
			d.Slots[name] = s
		}
		for ei := range d.Entries {
			e := &d.Entries[ei]
			e.TotalCost = EntryCost(e.BaseCost, e.UpgradeCost, e.Quantity)
			total += e.TotalCost
			if s, ok := d.Slots[e.Category]; ok {
				s.Filled++
				d.Slots[e.Category] = s
			}
			// entries whose category has no slot are tolerated; the
			// authority flags them at validation time
		}
	}
	r.TotalPoints = total
}

// UnitCount reports how many entries reference a unit across all
// detachments (entry count, not model count).
func (r *Roster) UnitCount(unitID string) int {
	n := 0
	for _, d := range r.Detachments {
		for _, e := range d.Entries {
			if e.UnitID == unitID {
				n++
			}
		}
	}
	return n
}

// HasTemplate reports whether a detachment instance of the given
// template already exists.
func (r *Roster) HasTemplate(templateID string) bool {
	for _, d := range r.Detachments {
		if d.TemplateID == templateID {
			return true
		}
	}
	return false
}

// Clone deep-copies the aggregate so callers can hand out snapshots
// without aliasing the owned state.
func (r Roster) Clone() Roster {
	out := r
	out.Detachments = make([]Detachment, len(r.Detachments))
	for i, d := range r.Detachments {
		nd := d
		nd.Slots = make(map[string]Slot, len(d.Slots))
		for k, v := range d.Slots {
			nd.Slots[k] = v
		}
		nd.Entries = make([]Entry, len(d.Entries))
		for j, e := range d.Entries {
			ne := e
			ne.Upgrades = append([]EntryUpgrade(nil), e.Upgrades...)
			nd.Entries[j] = ne
		}
		out.Detachments[i] = nd
	}
	out.Validation.Errors = append([]string(nil), r.Validation.Errors...)
	return out
}
