package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/klokku/salesbudget/internal/event_bus"
	"github.com/klokku/salesbudget/internal/utils"
	"github.com/klokku/salesbudget/pkg/audit"
	"github.com/klokku/salesbudget/pkg/calculator"
	"github.com/klokku/salesbudget/pkg/entry"
	"github.com/klokku/salesbudget/pkg/masterdata"
	"github.com/klokku/salesbudget/pkg/session"
	"github.com/klokku/salesbudget/pkg/spreadsheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRouter wires the real services and handlers on top of in-memory repositories.
func setupRouter(t *testing.T) *mux.Router {
	deps := &Dependencies{
		EventBus: event_bus.NewEventBus(),
		Clock:    &utils.FixedClock{At: time.Date(2025, 1, 31, 14, 25, 1, 0, time.UTC)},
		Rates:    calculator.NewExchangeRateTable("JOD", map[string]float64{"USD": 1.41}),
	}
	sessions := session.NewRepositoryStub()
	masters := masterdata.NewRepositoryStub()
	entries := entry.NewRepositoryStub()
	audits := audit.NewRepositoryStub()
	t.Cleanup(func() {
		sessions.Cleanup()
		masters.Cleanup()
		entries.Cleanup()
		audits.Cleanup()
	})

	deps.SessionService = session.NewService(sessions, deps.EventBus, deps.Clock, time.Hour)
	deps.MasterDataService = masterdata.NewService(masters, deps.EventBus)
	deps.MasterDataHandler = masterdata.NewHandler(deps.MasterDataService, spreadsheet.ReadMasters, 1<<20)
	deps.EntryService = entry.NewService(entries, deps.MasterDataService, deps.EventBus, deps.Clock)
	deps.EntryHandler = entry.NewHandler(deps.EntryService, deps.MasterDataService, deps.Rates,
		spreadsheet.ReadBudget, spreadsheet.WriteBudget, deps.Clock, 1<<20)
	deps.AuditService = audit.NewService(audits, deps.EventBus, deps.Clock)
	deps.AuditHandler = audit.NewHandler(deps.AuditService)

	r := mux.NewRouter()
	SetupMiddleware(r, deps)
	RegisterRoutes(r, deps)
	return r
}

func serve(r http.Handler, method, path, sessionId, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if sessionId != "" {
		req.Header.Set(session.Header, sessionId)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionMiddleware(t *testing.T) {
	t.Run("should start a seeded session for requests without a token", func(t *testing.T) {
		// given
		r := setupRouter(t)

		// when
		w := serve(r, http.MethodGet, "/api/state", "", "")

		// then
		require.Equal(t, http.StatusOK, w.Code)
		id := w.Header().Get(session.Header)
		assert.NotEmpty(t, id)
		var state entry.StateResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&state))
		assert.Equal(t, id, state.SessionId)
		assert.Len(t, state.Masters.Clients, 9)
		assert.Empty(t, state.Entries)
	})

	t.Run("should keep a known session", func(t *testing.T) {
		// given
		r := setupRouter(t)
		id := serve(r, http.MethodGet, "/api/state", "", "").Header().Get(session.Header)

		// when
		w := serve(r, http.MethodGet, "/api/state", id, "")

		// then
		assert.Equal(t, id, w.Header().Get(session.Header))
	})

	t.Run("should replace an unknown token", func(t *testing.T) {
		// given
		r := setupRouter(t)

		// when
		w := serve(r, http.MethodGet, "/api/state", "5d8c3b0e-4f6a-4b7e-9c55-0f1e2d3c4b5a", "")

		// then
		assert.NotEqual(t, "5d8c3b0e-4f6a-4b7e-9c55-0f1e2d3c4b5a", w.Header().Get(session.Header))
	})
}

func TestRoutes(t *testing.T) {
	t.Run("should add, export and audit entries within one session", func(t *testing.T) {
		// given
		r := setupRouter(t)
		id := serve(r, http.MethodGet, "/api/state", "", "").Header().Get(session.Header)
		body := `{"business_unit":"Trading","section":"Trading","client":"ACME Mining Corp","product":"Sugar","month":1,"qty":10,"pmt":720,"gp_percent":9.5}`

		// when
		added := serve(r, http.MethodPost, "/api/add", id, body)
		exported := serve(r, http.MethodGet, "/api/download_current", id, "")
		audited := serve(r, http.MethodGet, "/api/audit", id, "")

		// then
		require.Equal(t, http.StatusOK, added.Code)
		var addedResp entry.EntriesResponse
		require.NoError(t, json.NewDecoder(added.Body).Decode(&addedResp))
		require.Len(t, addedResp.Entries, 1)
		assert.InDelta(t, 7200, addedResp.Entries[0].Sales, 1e-9)
		assert.InDelta(t, 684, addedResp.Entries[0].GrossProfit, 1e-9)
		assert.Equal(t, "Commodities", addedResp.Entries[0].Category)

		require.Equal(t, http.StatusOK, exported.Code)
		rows, err := spreadsheet.ReadBudget(bytes.NewReader(exported.Body.Bytes()), spreadsheet.BudgetSheet)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Sugar", rows[0].Product)
		assert.Equal(t, 720.0, rows[0].UnitPrice)

		var records []audit.RecordDTO
		require.NoError(t, json.NewDecoder(audited.Body).Decode(&records))
		require.Len(t, records, 1)
		assert.Equal(t, "add", records[0].Action)
	})

	t.Run("should keep sessions isolated", func(t *testing.T) {
		// given
		r := setupRouter(t)
		first := serve(r, http.MethodGet, "/api/state", "", "").Header().Get(session.Header)
		second := serve(r, http.MethodGet, "/api/state", "", "").Header().Get(session.Header)
		serve(r, http.MethodPost, "/api/add_master", first, `{"new_client":"Nova Metals"}`)

		// when
		w := serve(r, http.MethodGet, "/api/state", second, "")

		// then
		var state entry.StateResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&state))
		assert.Len(t, state.Masters.Clients, 9)
	})

	t.Run("should reject unsupported methods", func(t *testing.T) {
		r := setupRouter(t)
		w := serve(r, http.MethodGet, "/api/add", "", "")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}
