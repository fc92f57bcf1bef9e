package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Entries
	r.HandleFunc("/api/state", deps.EntryHandler.State).Methods("GET")
	r.HandleFunc("/api/add", deps.EntryHandler.Add).Methods("POST")
	r.HandleFunc("/api/commit", deps.EntryHandler.Commit).Methods("POST")
	r.HandleFunc("/api/recalc", deps.EntryHandler.Recalculate).Methods("POST")
	r.HandleFunc("/api/update_entry", deps.EntryHandler.UpdateEntry).Methods("POST")
	r.HandleFunc("/api/clear_data", deps.EntryHandler.ClearData).Methods("POST")
	r.HandleFunc("/api/load_budget", deps.EntryHandler.LoadBudget).Methods("POST")
	r.HandleFunc("/api/download_current", deps.EntryHandler.DownloadCurrent).Methods("GET")
	r.HandleFunc("/api/rates", deps.EntryHandler.Rates).Methods("GET")

	// Master data
	r.HandleFunc("/api/add_master", deps.MasterDataHandler.AddMaster).Methods("POST")
	r.HandleFunc("/api/load_masters", deps.MasterDataHandler.LoadMasters).Methods("POST")

	// Audit
	r.HandleFunc("/api/audit", deps.AuditHandler.List).Methods("GET")
}
