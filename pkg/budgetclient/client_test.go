package budgetclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"
	"github.com/klokku/salesbudget/internal/rest"
	"github.com/klokku/salesbudget/pkg/entry"
	"github.com/klokku/salesbudget/pkg/masterdata"
	"github.com/klokku/salesbudget/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionId = "3c9e7f1a-2b4d-4c6e-8f0a-1b2c3d4e5f60"

var ctx = context.Background()

func setupServer(t *testing.T, routes func(r *mux.Router)) *Client {
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set(session.Header, sessionId)
			next.ServeHTTP(w, req)
		})
	})
	routes(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return New(server.URL+"/", 0)
}

func TestClient_Session(t *testing.T) {
	t.Run("should adopt the session id of the first answer and send it afterwards", func(t *testing.T) {
		// given
		var received []string
		client := setupServer(t, func(r *mux.Router) {
			r.HandleFunc("/api/state", func(w http.ResponseWriter, req *http.Request) {
				received = append(received, req.Header.Get(session.Header))
				rest.WriteJSON(w, http.StatusOK, entry.StateResponse{SessionId: sessionId})
			}).Methods("GET")
		})

		// when
		first, err := client.State(ctx)
		require.NoError(t, err)
		_, err = client.State(ctx)
		require.NoError(t, err)

		// then
		assert.Equal(t, sessionId, first.SessionId)
		assert.Equal(t, sessionId, client.SessionId())
		assert.Equal(t, []string{"", sessionId}, received)
	})
}

func TestClient_Add(t *testing.T) {
	t.Run("should post the entry as json", func(t *testing.T) {
		// given
		var got entry.AddEntryRequest
		client := setupServer(t, func(r *mux.Router) {
			r.HandleFunc("/api/add", func(w http.ResponseWriter, req *http.Request) {
				require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
				rest.WriteJSON(w, http.StatusOK, entry.EntriesResponse{Status: "success", Entries: []entry.EntryDTO{{Id: "1", Month: got.Month}}})
			}).Methods("POST")
		})

		// when
		resp, err := client.Add(ctx, entry.AddEntryRequest{Section: "Broker", Client: "ACME", Product: "Sugar", Month: 4, Quantity: 3})

		// then
		require.NoError(t, err)
		assert.Equal(t, "Sugar", got.Product)
		assert.Equal(t, 3.0, got.Quantity)
		require.Len(t, resp.Entries, 1)
		assert.Equal(t, 4, resp.Entries[0].Month)
	})

	t.Run("should surface api errors", func(t *testing.T) {
		// given
		client := setupServer(t, func(r *mux.Router) {
			r.HandleFunc("/api/add", func(w http.ResponseWriter, req *http.Request) {
				rest.WriteError(w, http.StatusBadRequest, "Invalid entry", "Qty (MT) cannot be 0.")
			}).Methods("POST")
		})

		// when
		_, err := client.Add(ctx, entry.AddEntryRequest{})

		// then
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Equal(t, "Invalid entry", apiErr.Message)
		assert.Equal(t, "Qty (MT) cannot be 0.", apiErr.Details)
		assert.Equal(t, sessionId, client.SessionId())
	})

	t.Run("should fall back to the status text for non json errors", func(t *testing.T) {
		// given
		client := setupServer(t, func(r *mux.Router) {
			r.HandleFunc("/api/add", func(w http.ResponseWriter, req *http.Request) {
				http.Error(w, "boom", http.StatusBadGateway)
			}).Methods("POST")
		})

		// when
		_, err := client.Add(ctx, entry.AddEntryRequest{})

		// then
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "Bad Gateway", apiErr.Message)
	})
}

func TestClient_Uploads(t *testing.T) {
	t.Run("should send the budget file and sheet as multipart form", func(t *testing.T) {
		// given
		var sheet, content string
		client := setupServer(t, func(r *mux.Router) {
			r.HandleFunc("/api/load_budget", func(w http.ResponseWriter, req *http.Request) {
				file, _, err := req.FormFile("file")
				require.NoError(t, err)
				data, _ := io.ReadAll(file)
				content = string(data)
				sheet = req.FormValue("sheet")
				rest.WriteJSON(w, http.StatusOK, entry.EntriesResponse{Status: "success"})
			}).Methods("POST")
		})

		// when
		_, err := client.LoadBudget(ctx, "plan.xlsx", strings.NewReader("workbook"), "Plan")

		// then
		require.NoError(t, err)
		assert.Equal(t, "workbook", content)
		assert.Equal(t, "Plan", sheet)
	})

	t.Run("should send the masters file", func(t *testing.T) {
		// given
		var name string
		client := setupServer(t, func(r *mux.Router) {
			r.HandleFunc("/api/load_masters", func(w http.ResponseWriter, req *http.Request) {
				_, header, err := req.FormFile("file")
				require.NoError(t, err)
				name = header.Filename
				rest.WriteJSON(w, http.StatusOK, masterdata.MastersResponse{Status: "success"})
			}).Methods("POST")
		})

		// when
		resp, err := client.LoadMasters(ctx, "masters.xlsx", strings.NewReader("workbook"))

		// then
		require.NoError(t, err)
		assert.Equal(t, "masters.xlsx", name)
		assert.Equal(t, "success", resp.Status)
	})
}

func TestClient_DownloadCurrent(t *testing.T) {
	// given
	client := setupServer(t, func(r *mux.Router) {
		r.HandleFunc("/api/download_current", func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Content-Disposition", `attachment; filename="Budget_Export_20250131_142501.xlsx"`)
			_, _ = w.Write([]byte("xlsx-bytes"))
		}).Methods("GET")
	})
	var buf bytes.Buffer

	// when
	name, err := client.DownloadCurrent(ctx, &buf)

	// then
	require.NoError(t, err)
	assert.Equal(t, "Budget_Export_20250131_142501.xlsx", name)
	assert.Equal(t, "xlsx-bytes", buf.String())
}

func TestClient_Audit(t *testing.T) {
	// given
	var limit atomic.Value
	client := setupServer(t, func(r *mux.Router) {
		r.HandleFunc("/api/audit", func(w http.ResponseWriter, req *http.Request) {
			limit.Store(req.URL.Query().Get("limit"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"action":"add","count":1,"created_at":"2025-01-31T14:25:01Z"}]`))
		}).Methods("GET")
	})

	// when
	records, err := client.Audit(ctx, 5)

	// then
	require.NoError(t, err)
	assert.Equal(t, "5", limit.Load())
	require.Len(t, records, 1)
	assert.Equal(t, "add", records[0].Action)
}
