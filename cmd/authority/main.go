// The authority is the system of record for roster building: it owns
// the catalogue, computes point totals and composition budgets, rules
// on every mutation and pushes accepted snapshots to subscribed
// builder shells.
package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/caarlos0/env/v11"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veletaris/rosterforge/internal/catalog"
	"github.com/veletaris/rosterforge/internal/foc"
	"github.com/veletaris/rosterforge/internal/storage"
)

type config struct {
	Port        string `env:"AUTHORITY_PORT" envDefault:"8080"`
	CatalogPath string `env:"CATALOG_PATH" envDefault:"data/catalog.json"`
	DBPath      string `env:"AUTHORITY_DB" envDefault:"rosterforge.db"`
}

// Build metadata injected via -ldflags at build time
var (
	buildVersion = "dev"
	buildTime    = ""
)

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("config: %v", err)
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("catalogue: %v", err)
	}
	log.Printf("catalogue loaded: %d units, %d detachment templates",
		len(cat.Units()), len(cat.Templates()))

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer db.Close()

	svc := &service{cat: cat, db: db, hub: newHub(), rules: foc.DefaultRules}

	r := mux.NewRouter()
	r.HandleFunc("/api/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"status": "ok", "version": buildVersion, "build_time": buildTime})
	})
	r.Handle("/metrics", promhttp.Handler())

	// catalogue
	r.HandleFunc("/api/catalog", svc.handleCatalog).Methods(http.MethodGet)
	r.HandleFunc("/api/units", svc.handleUnits).Methods(http.MethodGet)
	r.HandleFunc("/api/units/{id}", svc.handleUnit).Methods(http.MethodGet)
	r.HandleFunc("/api/units/{id}/upgrades", svc.handleUnitUpgrades).Methods(http.MethodGet)
	r.HandleFunc("/api/detachments", svc.handleTemplates).Methods(http.MethodGet)

	// rosters
	r.HandleFunc("/api/rosters", svc.handleCreateRoster).Methods(http.MethodPost)
	r.HandleFunc("/api/rosters", svc.handleListRosters).Methods(http.MethodGet)
	r.HandleFunc("/api/rosters/{id}", svc.handleGetRoster).Methods(http.MethodGet)
	r.HandleFunc("/api/rosters/{id}", svc.handleDeleteRoster).Methods(http.MethodDelete)
	r.HandleFunc("/api/rosters/{id}/templates", svc.handleRosterTemplates).Methods(http.MethodGet)
	r.HandleFunc("/api/rosters/{id}/detachments", svc.handleAddDetachment).Methods(http.MethodPost)
	r.HandleFunc("/api/rosters/{id}/detachments/{det}", svc.handleRemoveDetachment).Methods(http.MethodDelete)
	r.HandleFunc("/api/rosters/{id}/detachments/{det}/entries", svc.handleAddEntry).Methods(http.MethodPost)
	r.HandleFunc("/api/rosters/{id}/detachments/{det}/entries/{entry}", svc.handleRemoveEntry).Methods(http.MethodDelete)
	r.HandleFunc("/api/rosters/{id}/detachments/{det}/entries/{entry}", svc.handleUpdateQuantity).Methods(http.MethodPatch)
	r.HandleFunc("/api/rosters/{id}/doctrine", svc.handleSetDoctrine).Methods(http.MethodPut)
	r.HandleFunc("/api/rosters/{id}/validate", svc.handleValidate).Methods(http.MethodPost)
	r.HandleFunc("/api/rosters/{id}/export", svc.handleExport).Methods(http.MethodGet)

	// snapshot push stream
	r.HandleFunc("/ws/rosters/{id}", svc.hub.handleWS)

	addr := ":" + cfg.Port
	log.Printf("authority listening on %s (version %s)", addr, buildVersion)
	log.Fatal(http.ListenAndServe(addr, withCORS(r)))
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

// simple CORS for the builder frontends
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
