package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/veletaris/rosterforge/internal/catalog"
	"github.com/veletaris/rosterforge/internal/foc"
	"github.com/veletaris/rosterforge/internal/roster"
	"github.com/veletaris/rosterforge/internal/storage"
)

type service struct {
	cat   *catalog.Catalog
	db    *storage.Store
	hub   *hub
	rules foc.Rules
}

// httpError carries a status code out of mutation callbacks.
type httpError struct {
	code int
	msg  string
}

func (e *httpError) Error() string { return e.msg }

func httpErrf(code int, format string, args ...any) error {
	return &httpError{code: code, msg: fmt.Sprintf(format, args...)}
}

// ========================= Catalogue =========================

func (s *service) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.cat.Snapshot())
}

func (s *service) handleUnits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, s.cat.SearchUnits(q.Get("category"), q.Get("search")))
}

func (s *service) handleUnit(w http.ResponseWriter, r *http.Request) {
	u, ok := s.cat.Unit(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "unit not found")
		return
	}
	writeJSON(w, u)
}

func (s *service) handleUnitUpgrades(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.cat.Unit(id); !ok {
		writeError(w, http.StatusNotFound, "unit not found")
		return
	}
	writeJSON(w, s.cat.UpgradesFor(id))
}

func (s *service) handleTemplates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.cat.Templates())
}

// handleRosterTemplates reports, per template, whether the roster can
// afford it right now and at what modifier-adjusted cost.
func (s *service) handleRosterTemplates(w http.ResponseWriter, r *http.Request) {
	rst, err := s.db.LoadRoster(mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	st := foc.StateFor(&rst, s.cat)
	type row struct {
		catalog.DetachmentTemplate
		ResolvedCosts catalog.DetachmentCosts `json:"resolved_costs"`
		Affordable    bool                    `json:"affordable"`
		Reason        string                  `json:"reason,omitempty"`
	}
	out := make([]row, 0, len(s.cat.Templates()))
	for _, tpl := range s.cat.Templates() {
		resolved := foc.EvaluateTemplate(tpl, st)
		adjusted := tpl
		adjusted.Costs = resolved.Costs
		ok, reason := foc.CanAffordDetachment(adjusted, rst.Composition, s.rules)
		if ok && countInstances(&rst, tpl.ID) >= resolved.MaxInstances {
			ok, reason = false, fmt.Sprintf("%s: maximum %d instance(s) in this roster", tpl.Name, resolved.MaxInstances)
		}
		out = append(out, row{DetachmentTemplate: tpl, ResolvedCosts: resolved.Costs, Affordable: ok, Reason: reason})
	}
	writeJSON(w, out)
}

// ========================= Rosters =========================

func (s *service) handleCreateRoster(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		PointsLimit int    `json:"points_limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.PointsLimit <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "points_limit must be positive")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		req.Name = "Unnamed List"
	}
	rst := roster.Roster{
		ID:          uuid.NewString(),
		Name:        req.Name,
		PointsLimit: req.PointsLimit,
		Detachments: []roster.Detachment{},
	}
	comp, err := foc.ComputeComposition(&rst, s.cat, s.rules)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rst.Composition = comp
	rst.Recompute()
	if err := s.db.SaveRoster(rst); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rostersCreated.Inc()
	writeJSON(w, rst)
}

func (s *service) handleListRosters(w http.ResponseWriter, _ *http.Request) {
	list, err := s.db.ListRosters()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, list)
}

func (s *service) handleGetRoster(w http.ResponseWriter, r *http.Request) {
	rst, err := s.db.LoadRoster(mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, rst)
}

func (s *service) handleDeleteRoster(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteRoster(mux.Vars(r)["id"]); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// mutate loads a roster, applies fn, recomputes everything derived,
// persists and pushes the accepted snapshot.
func (s *service) mutate(w http.ResponseWriter, rosterID, op string, fn func(*roster.Roster) error) {
	rst, err := s.db.LoadRoster(rosterID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if err := fn(&rst); err != nil {
		var he *httpError
		if errors.As(err, &he) {
			writeError(w, he.code, he.msg)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rst.Recompute()
	comp, err := foc.ComputeComposition(&rst, s.cat, s.rules)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rst.Composition = comp
	rst.Validation = roster.Validation{} // structural change voids the verdict
	if err := s.db.SaveRoster(rst); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rosterMutations.WithLabelValues(op).Inc()
	rosterPoints.WithLabelValues(rst.ID).Set(float64(rst.TotalPoints))
	s.hub.broadcast(rst.ID, rst)
	writeJSON(w, rst)
}

func (s *service) handleAddDetachment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DetachmentID string `json:"detachment_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	s.mutate(w, mux.Vars(r)["id"], "add_detachment", func(rst *roster.Roster) error {
		tpl, ok := s.cat.Template(req.DetachmentID)
		if !ok {
			return httpErrf(http.StatusNotFound, "unknown detachment template %s", req.DetachmentID)
		}
		resolved := foc.EvaluateTemplate(tpl, foc.StateFor(rst, s.cat))
		adjusted := tpl
		adjusted.Costs = resolved.Costs
		if ok, reason := foc.CanAffordDetachment(adjusted, rst.Composition, s.rules); !ok {
			return httpErrf(http.StatusConflict, "%s", reason)
		}
		if countInstances(rst, tpl.ID) >= resolved.MaxInstances {
			return httpErrf(http.StatusConflict, "%s: maximum %d instance(s) in this roster", tpl.Name, resolved.MaxInstances)
		}
		rst.Detachments = append(rst.Detachments, roster.Detachment{
			ID:         uuid.NewString(),
			TemplateID: tpl.ID,
			Name:       tpl.Name,
			Type:       tpl.Type,
			Slots:      buildSlots(resolved.Slots, tpl.Restrictions),
			Entries:    []roster.Entry{},
		})
		return nil
	})
}

func (s *service) handleRemoveDetachment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mutate(w, vars["id"], "remove_detachment", func(rst *roster.Roster) error {
		for i, d := range rst.Detachments {
			if d.ID == vars["det"] {
				rst.Detachments = append(rst.Detachments[:i], rst.Detachments[i+1:]...)
				return nil
			}
		}
		return httpErrf(http.StatusNotFound, "detachment not found")
	})
}

func (s *service) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UnitID   string              `json:"unit_id"`
		Quantity int                 `json:"quantity"`
		Upgrades []catalog.Selection `json:"upgrades,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	vars := mux.Vars(r)
	s.mutate(w, vars["id"], "add_entry", func(rst *roster.Roster) error {
		det := findDetachment(rst, vars["det"])
		if det == nil {
			return httpErrf(http.StatusNotFound, "detachment not found")
		}
		u, ok := s.cat.Unit(req.UnitID)
		if !ok {
			return httpErrf(http.StatusNotFound, "unknown unit %s", req.UnitID)
		}
		if limit, capped := rosterMaxConstraint(u); capped && rst.UnitCount(u.ID) >= limit {
			return httpErrf(http.StatusConflict, "%s is limited to %d per army", u.Name, limit)
		}
		qty := req.Quantity
		if qty == 0 {
			qty = u.ModelMin
		}
		if qty < u.ModelMin || (u.ModelMax > 0 && qty > u.ModelMax) {
			return httpErrf(http.StatusUnprocessableEntity, "quantity %d outside [%d, %d] for %s", qty, u.ModelMin, u.ModelMax, u.Name)
		}
		if problems := s.cat.ValidateSelections(u.ID, req.Upgrades); len(problems) > 0 {
			return httpErrf(http.StatusUnprocessableEntity, "%s", strings.Join(problems, "; "))
		}
		key, ok := foc.FindMatchingSlotKey(u.UnitType, u.Name, det.Slots)
		if !ok {
			return httpErrf(http.StatusConflict, "%s has no %s slot for %s", det.Name, u.UnitType, u.Name)
		}
		if slot := det.Slots[key]; slot.Filled >= slot.Max {
			return httpErrf(http.StatusConflict, "%s: %s slot is full (%d/%d)", det.Name, key, slot.Filled, slot.Max)
		}
		base, upgrades, err := s.cat.UnitCost(u.ID, req.Upgrades)
		if err != nil {
			return httpErrf(http.StatusUnprocessableEntity, "%s", err.Error())
		}
		det.Entries = append(det.Entries, roster.Entry{
			ID:          uuid.NewString(),
			UnitID:      u.ID,
			UnitName:    u.Name,
			Category:    key,
			Quantity:    qty,
			Upgrades:    toEntryUpgrades(req.Upgrades),
			BaseCost:    base,
			UpgradeCost: upgrades,
			ModelMin:    u.ModelMin,
			ModelMax:    u.ModelMax,
		})
		return nil
	})
}

func (s *service) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mutate(w, vars["id"], "remove_entry", func(rst *roster.Roster) error {
		det := findDetachment(rst, vars["det"])
		if det == nil {
			return httpErrf(http.StatusNotFound, "detachment not found")
		}
		for i, e := range det.Entries {
			if e.ID == vars["entry"] {
				det.Entries = append(det.Entries[:i], det.Entries[i+1:]...)
				return nil
			}
		}
		return httpErrf(http.StatusNotFound, "entry not found")
	})
}

func (s *service) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	vars := mux.Vars(r)
	s.mutate(w, vars["id"], "update_quantity", func(rst *roster.Roster) error {
		det := findDetachment(rst, vars["det"])
		if det == nil {
			return httpErrf(http.StatusNotFound, "detachment not found")
		}
		for i := range det.Entries {
			e := &det.Entries[i]
			if e.ID != vars["entry"] {
				continue
			}
			if req.Quantity < e.ModelMin || (e.ModelMax > 0 && req.Quantity > e.ModelMax) {
				return httpErrf(http.StatusUnprocessableEntity, "quantity %d outside [%d, %d] for %s",
					req.Quantity, e.ModelMin, e.ModelMax, e.UnitName)
			}
			e.Quantity = req.Quantity
			return nil
		}
		return httpErrf(http.StatusNotFound, "entry not found")
	})
}

// handleSetDoctrine stores the doctrine and re-resolves every
// detachment instance's slot map under the new modifier state.
func (s *service) handleSetDoctrine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Doctrine string `json:"doctrine"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	s.mutate(w, mux.Vars(r)["id"], "set_doctrine", func(rst *roster.Roster) error {
		rst.Doctrine = req.Doctrine
		st := foc.StateFor(rst, s.cat)
		for i := range rst.Detachments {
			d := &rst.Detachments[i]
			tpl, ok := s.cat.Template(d.TemplateID)
			if !ok {
				return httpErrf(http.StatusInternalServerError, "detachment %s references unknown template %s", d.Name, d.TemplateID)
			}
			resolved := foc.EvaluateTemplate(tpl, st)
			d.Slots = buildSlots(resolved.Slots, tpl.Restrictions)
		}
		return nil
	})
}

func (s *service) handleValidate(w http.ResponseWriter, r *http.Request) {
	rst, err := s.db.LoadRoster(mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	isValid, errs := foc.ValidateRoster(&rst, s.cat, s.rules)
	rst.Validation = roster.Validation{Known: true, IsValid: isValid, Errors: errs}
	if err := s.db.SaveRoster(rst); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	validationsRun.Inc()
	if errs == nil {
		errs = []string{}
	}
	writeJSON(w, map[string]any{"is_valid": isValid, "errors": errs})
}

func (s *service) handleExport(w http.ResponseWriter, r *http.Request) {
	rst, err := s.db.LoadRoster(mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "# %s\n", rst.Name)
	fmt.Fprintf(w, "Points: %d / %d\n", rst.TotalPoints, rst.PointsLimit)
	if rst.Doctrine != "" {
		fmt.Fprintf(w, "Doctrine: %s\n", rst.Doctrine)
	}
	for _, d := range rst.Detachments {
		fmt.Fprintf(w, "\n## %s (%s)\n", d.Name, d.Type)
		for _, e := range d.Entries {
			fmt.Fprintf(w, "- %s (x%d) — %d pts\n", e.UnitName, e.Quantity, e.TotalCost)
		}
	}
}

// ========================= Helpers =========================

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "roster not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func findDetachment(rst *roster.Roster, id string) *roster.Detachment {
	for i := range rst.Detachments {
		if rst.Detachments[i].ID == id {
			return &rst.Detachments[i]
		}
	}
	return nil
}

func countInstances(rst *roster.Roster, templateID string) int {
	n := 0
	for _, d := range rst.Detachments {
		if d.TemplateID == templateID {
			n++
		}
	}
	return n
}

func rosterMaxConstraint(u catalog.Unit) (int, bool) {
	for _, c := range u.Constraints {
		if c.Type == "max" && c.Scope == "roster" {
			return c.Value, true
		}
	}
	return 0, false
}

func buildSlots(limits map[string]catalog.SlotLimit, restrictions map[string]string) map[string]roster.Slot {
	slots := make(map[string]roster.Slot, len(limits))
	for name, lim := range limits {
		slots[name] = roster.Slot{Min: lim.Min, Max: lim.Max, Restriction: restrictions[name]}
	}
	return slots
}

func toEntryUpgrades(sels []catalog.Selection) []roster.EntryUpgrade {
	if len(sels) == 0 {
		return nil
	}
	out := make([]roster.EntryUpgrade, len(sels))
	for i, sel := range sels {
		qty := sel.Quantity
		if qty <= 0 {
			qty = 1
		}
		out[i] = roster.EntryUpgrade{UpgradeID: sel.UpgradeID, Quantity: qty}
	}
	return out
}
