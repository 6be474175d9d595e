// The builder is the interactive shell: it mirrors one roster from the
// authority, answers availability questions locally and applies
// mutations optimistically before the authority's verdict replaces the
// mirror wholesale.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/gorilla/mux"

	"github.com/veletaris/rosterforge/internal/authority"
	"github.com/veletaris/rosterforge/internal/foc"
	"github.com/veletaris/rosterforge/internal/roster"
	"github.com/veletaris/rosterforge/internal/session"
)

type config struct {
	Port          string `env:"BUILDER_PORT" envDefault:"8081"`
	AuthorityBase string `env:"AUTHORITY_BASE" envDefault:"http://localhost:8080"`
	SessionPath   string `env:"SESSION_PATH" envDefault:"builder-session.json"`
}

var (
	buildVersion = "dev"
	buildTime    = ""
)

type shell struct {
	client   *authority.Client
	store    *roster.Store
	sessions session.Repository
	rules    foc.Rules

	// one snapshot stream at a time, tied to the active roster
	streamMu     sync.Mutex
	streamCancel context.CancelFunc
	streamID     string
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("config: %v", err)
	}

	sh := &shell{
		client:   authority.NewClient(cfg.AuthorityBase),
		store:    roster.NewStore(),
		sessions: session.NewFileRepository(cfg.SessionPath),
		rules:    foc.DefaultRules,
	}
	sh.restoreSession()

	r := mux.NewRouter()
	r.HandleFunc("/api/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"status": "ok", "version": buildVersion, "build_time": buildTime})
	})

	// catalogue passthrough (served from the client's cache)
	r.HandleFunc("/api/units", sh.handleUnits).Methods(http.MethodGet)
	r.HandleFunc("/api/units/{id}/upgrades", sh.handleUnitUpgrades).Methods(http.MethodGet)
	r.HandleFunc("/api/detachments", sh.handleTemplates).Methods(http.MethodGet)

	// session
	r.HandleFunc("/api/session", sh.handleSession).Methods(http.MethodGet)
	r.HandleFunc("/api/session/roster", sh.handleCreateRoster).Methods(http.MethodPost)
	r.HandleFunc("/api/session/roster", sh.handleLoadRoster).Methods(http.MethodPut)
	r.HandleFunc("/api/session", sh.handleClearSession).Methods(http.MethodDelete)

	// the mirrored roster
	r.HandleFunc("/api/roster", sh.handleRoster).Methods(http.MethodGet)
	r.HandleFunc("/api/availability", sh.handleAvailability).Methods(http.MethodGet)
	r.HandleFunc("/api/roster/detachments", sh.handleAddDetachment).Methods(http.MethodPost)
	r.HandleFunc("/api/roster/detachments/{det}", sh.handleRemoveDetachment).Methods(http.MethodDelete)
	r.HandleFunc("/api/roster/detachments/{det}/entries", sh.handleAddEntry).Methods(http.MethodPost)
	r.HandleFunc("/api/roster/detachments/{det}/entries/{entry}", sh.handleRemoveEntry).Methods(http.MethodDelete)
	r.HandleFunc("/api/roster/detachments/{det}/entries/{entry}", sh.handleUpdateQuantity).Methods(http.MethodPatch)
	r.HandleFunc("/api/roster/doctrine", sh.handleSetDoctrine).Methods(http.MethodPut)
	r.HandleFunc("/api/roster/validate", sh.handleValidate).Methods(http.MethodPost)
	r.HandleFunc("/api/roster/export", sh.handleExport).Methods(http.MethodGet)

	addr := ":" + cfg.Port
	log.Printf("builder listening on %s (authority %s, version %s)", addr, cfg.AuthorityBase, buildVersion)
	log.Fatal(http.ListenAndServe(addr, withCORS(r)))
}

// restoreSession reloads the roster the last run was working on.
func (sh *shell) restoreSession() {
	id, ok, err := sh.sessions.ActiveRoster()
	if err != nil {
		log.Printf("session restore: %v", err)
		return
	}
	if !ok {
		return
	}
	r, err := sh.client.GetRoster(context.Background(), id)
	if err != nil {
		log.Printf("session restore: roster %s: %v (starting empty)", id, err)
		_ = sh.sessions.Clear()
		return
	}
	sh.store.SetRoster(r)
	sh.watch(r.ID)
	log.Printf("session restored: %s (%s)", r.Name, r.ID)
}

// watch subscribes to the authority's snapshot stream for the roster,
// replacing any previous subscription.
func (sh *shell) watch(rosterID string) {
	sh.streamMu.Lock()
	defer sh.streamMu.Unlock()
	if sh.streamCancel != nil {
		sh.streamCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	sh.streamCancel = cancel
	sh.streamID = rosterID
	go sh.client.Subscribe(ctx, rosterID, func(snap roster.Roster) {
		// ignore pushes for a roster we have since switched away from
		sh.streamMu.Lock()
		current := sh.streamID
		sh.streamMu.Unlock()
		if snap.ID != current {
			return
		}
		sh.store.SyncFromResponse(snap)
	})
}

func (sh *shell) unwatch() {
	sh.streamMu.Lock()
	defer sh.streamMu.Unlock()
	if sh.streamCancel != nil {
		sh.streamCancel()
		sh.streamCancel = nil
	}
	sh.streamID = ""
}

// ========================= Catalogue =========================

func (sh *shell) handleUnits(w http.ResponseWriter, r *http.Request) {
	cat, err := sh.client.Catalog(r.Context())
	if err != nil {
		writeAuthorityError(w, err)
		return
	}
	q := r.URL.Query()
	writeJSON(w, cat.SearchUnits(q.Get("category"), q.Get("search")))
}

func (sh *shell) handleUnitUpgrades(w http.ResponseWriter, r *http.Request) {
	cat, err := sh.client.Catalog(r.Context())
	if err != nil {
		writeAuthorityError(w, err)
		return
	}
	writeJSON(w, cat.UpgradesFor(mux.Vars(r)["id"]))
}

func (sh *shell) handleTemplates(w http.ResponseWriter, r *http.Request) {
	cat, err := sh.client.Catalog(r.Context())
	if err != nil {
		writeAuthorityError(w, err)
		return
	}
	writeJSON(w, cat.Templates())
}

// ========================= Session =========================

func (sh *shell) handleSession(w http.ResponseWriter, _ *http.Request) {
	id, ok, err := sh.sessions.ActiveRoster()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"active": ok && sh.store.Active(), "roster_id": id})
}

func (sh *shell) handleCreateRoster(w http.ResponseWriter, r *http.Request) {
	var req authority.CreateRosterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	snap, err := sh.client.CreateRoster(r.Context(), req.Name, req.PointsLimit)
	if err != nil {
		writeAuthorityError(w, err)
		return
	}
	sh.store.SetRoster(snap)
	if err := sh.sessions.SetActiveRoster(snap.ID); err != nil {
		log.Printf("session save: %v", err)
	}
	sh.watch(snap.ID)
	writeJSON(w, sh.mirror())
}

func (sh *shell) handleLoadRoster(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RosterID string `json:"roster_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	snap, err := sh.client.GetRoster(r.Context(), req.RosterID)
	if err != nil {
		writeAuthorityError(w, err)
		return
	}
	sh.store.SetRoster(snap)
	if err := sh.sessions.SetActiveRoster(snap.ID); err != nil {
		log.Printf("session save: %v", err)
	}
	sh.watch(snap.ID)
	writeJSON(w, sh.mirror())
}

func (sh *shell) handleClearSession(w http.ResponseWriter, _ *http.Request) {
	sh.unwatch()
	sh.store.ClearRoster()
	if err := sh.sessions.Clear(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ========================= Roster mirror =========================

func (sh *shell) handleRoster(w http.ResponseWriter, _ *http.Request) {
	snap, ok := sh.store.Roster()
	if !ok {
		writeError(w, http.StatusNotFound, "no active roster")
		return
	}
	writeJSON(w, snap)
}

// handleAvailability classifies one unit against the mirror without a
// round trip to the authority.
func (sh *shell) handleAvailability(w http.ResponseWriter, r *http.Request) {
	unitID := r.URL.Query().Get("unit_id")
	if unitID == "" {
		writeError(w, http.StatusBadRequest, "unit_id is required")
		return
	}
	cat, err := sh.client.Catalog(r.Context())
	if err != nil {
		writeAuthorityError(w, err)
		return
	}
	u, ok := cat.Unit(unitID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown unit "+unitID)
		return
	}
	var rp *roster.Roster
	if snap, active := sh.store.Roster(); active {
		rp = &snap
	}
	writeJSON(w, foc.Resolve(u, rp, cat.Templates(), sh.rules))
}

// reconcile handles a mutation's authority reply: on success the
// snapshot replaces the mirror; on a rejection the mirror is re-fetched
// so the optimistic change does not linger.
func (sh *shell) reconcile(w http.ResponseWriter, snap roster.Roster, err error) {
	if err == nil {
		sh.store.SyncFromResponse(snap)
		writeJSON(w, sh.mirror())
		return
	}
	var apiErr *authority.Error
	if errors.As(err, &apiErr) {
		if id, ok, _ := sh.sessions.ActiveRoster(); ok {
			if fresh, ferr := sh.client.GetRoster(context.Background(), id); ferr == nil {
				sh.store.SyncFromResponse(fresh)
			}
		}
		writeError(w, apiErr.Status, apiErr.Message)
		return
	}
	writeError(w, http.StatusBadGateway, err.Error())
}

func (sh *shell) handleAddDetachment(w http.ResponseWriter, r *http.Request) {
	var req authority.AddDetachmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	snap, ok := sh.store.Roster()
	if !ok {
		writeError(w, http.StatusConflict, "no active roster")
		return
	}
	// no optimistic apply here: slot maps come from the authority's
	// modifier resolution, which the shell does not duplicate
	out, err := sh.client.AddDetachment(r.Context(), snap.ID, req.DetachmentID)
	sh.reconcile(w, out, err)
}

func (sh *shell) handleRemoveDetachment(w http.ResponseWriter, r *http.Request) {
	snap, ok := sh.store.Roster()
	if !ok {
		writeError(w, http.StatusConflict, "no active roster")
		return
	}
	det := mux.Vars(r)["det"]
	if err := sh.store.RemoveDetachment(det); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	out, err := sh.client.RemoveDetachment(r.Context(), snap.ID, det)
	sh.reconcile(w, out, err)
}

func (sh *shell) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	var req authority.AddEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	snap, ok := sh.store.Roster()
	if !ok {
		writeError(w, http.StatusConflict, "no active roster")
		return
	}
	det := mux.Vars(r)["det"]
	if e, ok := sh.optimisticEntry(r.Context(), det, &snap, req); ok {
		if err := sh.store.AddEntry(det, e); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
	}
	out, err := sh.client.AddEntry(r.Context(), snap.ID, det, req)
	sh.reconcile(w, out, err)
}

// optimisticEntry builds a provisional entry from the cached catalogue
// so the mirror moves immediately. Skipped when the catalogue is
// unavailable or the unit has no matching slot; the authority's answer
// settles it either way.
func (sh *shell) optimisticEntry(ctx context.Context, detachmentID string, snap *roster.Roster, req authority.AddEntryRequest) (roster.Entry, bool) {
	cat, err := sh.client.Catalog(ctx)
	if err != nil {
		return roster.Entry{}, false
	}
	u, ok := cat.Unit(req.UnitID)
	if !ok {
		return roster.Entry{}, false
	}
	var det *roster.Detachment
	for i := range snap.Detachments {
		if snap.Detachments[i].ID == detachmentID {
			det = &snap.Detachments[i]
			break
		}
	}
	if det == nil {
		return roster.Entry{}, false
	}
	key, ok := foc.FindMatchingSlotKey(u.UnitType, u.Name, det.Slots)
	if !ok {
		return roster.Entry{}, false
	}
	base, upgrades, err := cat.UnitCost(u.ID, req.Upgrades)
	if err != nil {
		return roster.Entry{}, false
	}
	qty := req.Quantity
	if qty == 0 {
		qty = u.ModelMin
	}
	ups := make([]roster.EntryUpgrade, 0, len(req.Upgrades))
	for _, sel := range req.Upgrades {
		n := sel.Quantity
		if n <= 0 {
			n = 1
		}
		ups = append(ups, roster.EntryUpgrade{UpgradeID: sel.UpgradeID, Quantity: n})
	}
	return roster.Entry{
		ID:          fmt.Sprintf("pending-%s", u.ID),
		UnitID:      u.ID,
		UnitName:    u.Name,
		Category:    key,
		Quantity:    qty,
		Upgrades:    ups,
		BaseCost:    base,
		UpgradeCost: upgrades,
		ModelMin:    u.ModelMin,
		ModelMax:    u.ModelMax,
	}, true
}

func (sh *shell) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	snap, ok := sh.store.Roster()
	if !ok {
		writeError(w, http.StatusConflict, "no active roster")
		return
	}
	vars := mux.Vars(r)
	if err := sh.store.RemoveEntry(vars["det"], vars["entry"]); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	out, err := sh.client.RemoveEntry(r.Context(), snap.ID, vars["det"], vars["entry"])
	sh.reconcile(w, out, err)
}

func (sh *shell) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req authority.QuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	snap, ok := sh.store.Roster()
	if !ok {
		writeError(w, http.StatusConflict, "no active roster")
		return
	}
	vars := mux.Vars(r)
	if err := sh.store.UpdateQuantity(vars["det"], vars["entry"], req.Quantity); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	out, err := sh.client.UpdateQuantity(r.Context(), snap.ID, vars["det"], vars["entry"], req.Quantity)
	sh.reconcile(w, out, err)
}

func (sh *shell) handleSetDoctrine(w http.ResponseWriter, r *http.Request) {
	var req authority.DoctrineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	snap, ok := sh.store.Roster()
	if !ok {
		writeError(w, http.StatusConflict, "no active roster")
		return
	}
	out, err := sh.client.SetDoctrine(r.Context(), snap.ID, req.Doctrine)
	sh.reconcile(w, out, err)
}

func (sh *shell) handleValidate(w http.ResponseWriter, r *http.Request) {
	snap, ok := sh.store.Roster()
	if !ok {
		writeError(w, http.StatusConflict, "no active roster")
		return
	}
	v, err := sh.client.Validate(r.Context(), snap.ID)
	if err != nil {
		writeAuthorityError(w, err)
		return
	}
	_ = sh.store.SetValidation(v.IsValid, v.Errors)
	writeJSON(w, v)
}

func (sh *shell) handleExport(w http.ResponseWriter, r *http.Request) {
	snap, ok := sh.store.Roster()
	if !ok {
		writeError(w, http.StatusConflict, "no active roster")
		return
	}
	text, err := sh.client.Export(r.Context(), snap.ID)
	if err != nil {
		writeAuthorityError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, text)
}

func (sh *shell) mirror() roster.Roster {
	snap, _ := sh.store.Roster()
	return snap
}

// ========================= Helpers =========================

func writeAuthorityError(w http.ResponseWriter, err error) {
	var apiErr *authority.Error
	if errors.As(err, &apiErr) {
		writeError(w, apiErr.Status, apiErr.Message)
		return
	}
	writeError(w, http.StatusBadGateway, err.Error())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   http.StatusText(code),
		"message": msg,
		"status":  code,
	})
}

// simple CORS for a browser frontend during development
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
