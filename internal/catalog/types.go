package catalog

// ========================= Catalogue Models =========================
// Immutable records sourced from the published catalogue snapshot.
// The engine never mutates these; rosters reference them by id.

// UnitConstraint is a named limit attached to a unit entry.
// Scope "roster" with type "max" caps how many times the unit may
// appear across the whole roster.
type UnitConstraint struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
	Scope string `json:"scope"`
}

// BudgetGrant adds to a roster-wide composition budget when the
// carrying unit (or upgrade) is selected. Target is "auxiliary" or
// "apex"; the grant is multiplied by the entry quantity.
type BudgetGrant struct {
	Target string `json:"target"`
	Value  int    `json:"value"`
}

type Unit struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	UnitType    string           `json:"unit_type"` // native slot category, e.g. "Command"
	BaseCost    int              `json:"base_cost"` // points per model
	ModelMin    int              `json:"model_min"`
	ModelMax    int              `json:"model_max"`
	Constraints []UnitConstraint `json:"constraints,omitempty"`
	Grants      []BudgetGrant    `json:"grants,omitempty"`
	// Unlock categories counted by detachment modifiers (e.g. tercio unlocks).
	UnlockCategories []string `json:"unlock_categories,omitempty"`
	Legacy           bool     `json:"legacy,omitempty"`
}

type Upgrade struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Cost   int           `json:"cost"`
	Type   string        `json:"type,omitempty"`
	Group  string        `json:"group,omitempty"` // upgrade group name, if any
	Grants []BudgetGrant `json:"grants,omitempty"`
	// Units this upgrade may be purchased for.
	UnitIDs []string `json:"unit_ids,omitempty"`
}

// UpgradeGroup bounds how many selections may be taken from a named
// group. MaxQuantity 1 behaves as a mutually exclusive choice.
type UpgradeGroup struct {
	Name        string `json:"name"`
	MinQuantity int    `json:"min_quantity"`
	MaxQuantity int    `json:"max_quantity"`
}

// SlotLimit is the capacity of one named slot in a detachment template.
// Max 0 means the slot is currently locked; SlotUnlimited means no cap.
type SlotLimit struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

const SlotUnlimited = 999

// DetachmentCosts is the price of adding a detachment, expressed per
// composition budget. Zero values mean the budget is not touched.
type DetachmentCosts struct {
	Auxiliary int `json:"auxiliary,omitempty"`
	Apex      int `json:"apex,omitempty"`
}

// Modifier condition/repeat shapes mirror the catalogue's rule data:
// a modifier fires when all conditions hold, scaled by its repeats.
type ModifierCondition struct {
	ChildID string `json:"child_id"` // unlock category or doctrine id
	Type    string `json:"type"`     // equalTo | lessThan | atLeast | greaterThan
	Value   int    `json:"value"`
}

type ModifierRepeat struct {
	ChildID string `json:"child_id"`
	Repeats int    `json:"repeats"`
}

// Modifier adjusts a template field based on roster state.
// Field is a slot key, "cost:auxiliary", "cost:apex" or "instances".
type Modifier struct {
	Field      string              `json:"field"`
	Type       string              `json:"type"` // increment | set
	Value      float64             `json:"value"`
	Conditions []ModifierCondition `json:"conditions,omitempty"`
	Repeats    []ModifierRepeat    `json:"repeats,omitempty"`
}

type DetachmentTemplate struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"` // Primary | Auxiliary | Apex | Other
	Faction string `json:"faction,omitempty"`
	// Slot name -> capacity. A key may be a bare category ("Command")
	// or a restricted variant ("Command - Centurions Only").
	Slots map[string]SlotLimit `json:"slots"`
	// Slot name -> free-form eligibility clause, when restricted.
	Restrictions map[string]string `json:"restrictions,omitempty"`
	Costs        DetachmentCosts   `json:"costs"`
	Modifiers    []Modifier        `json:"modifiers,omitempty"`
}

// Selection is one purchased upgrade on a roster entry.
type Selection struct {
	UpgradeID string `json:"upgrade_id"`
	Quantity  int    `json:"quantity"`
}
