package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klokku/salesbudget/internal/event_bus"
	"github.com/klokku/salesbudget/internal/utils"
	"github.com/klokku/salesbudget/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionId = "8a1f3c2e-7b6d-4e5f-a9b8-c7d6e5f4a3b2"

var ctx = session.WithId(context.Background(), sessionId)

func setupService(t *testing.T) (*ServiceImpl, *RepositoryStub, *event_bus.EventBus) {
	repo := NewRepositoryStub()
	bus := event_bus.NewEventBus()
	t.Cleanup(repo.Cleanup)
	clock := &utils.FixedClock{At: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	return NewService(repo, bus, clock), repo, bus
}

func TestServiceImpl_Record(t *testing.T) {
	t.Run("should record entry and master changes newest first", func(t *testing.T) {
		// given
		service, _, bus := setupService(t)

		// when
		require.NoError(t, bus.Publish(event_bus.NewEvent(ctx, event_bus.EntriesChangedType,
			event_bus.EntriesChanged{SessionId: sessionId, Action: "add", Count: 1, Detail: "ACME / Sugar / Jan"})))
		require.NoError(t, bus.Publish(event_bus.NewEvent(ctx, event_bus.MastersChangedType,
			event_bus.MastersChanged{SessionId: sessionId, Action: "load_masters", Clients: 3, Products: 4})))

		// then
		records, err := service.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "load_masters", records[0].Action)
		assert.Equal(t, 7, records[0].Count)
		assert.Equal(t, "3 clients, 4 products", records[0].Detail)
		assert.Equal(t, "add", records[1].Action)
		assert.Equal(t, time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), records[1].CreatedAt)
	})

	t.Run("should only list the current session", func(t *testing.T) {
		// given
		service, _, bus := setupService(t)
		require.NoError(t, bus.Publish(event_bus.NewEvent(ctx, event_bus.EntriesChangedType,
			event_bus.EntriesChanged{SessionId: "someone-else", Action: "clear"})))

		// when
		records, err := service.List(ctx, 10)

		// then
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("should drop records of purged sessions", func(t *testing.T) {
		// given
		service, repo, bus := setupService(t)
		require.NoError(t, bus.Publish(event_bus.NewEvent(ctx, event_bus.EntriesChangedType,
			event_bus.EntriesChanged{SessionId: sessionId, Action: "add", Count: 1})))

		// when
		err := bus.Publish(event_bus.NewEvent(context.Background(), event_bus.SessionsPurgedType,
			event_bus.SessionsPurged{SessionIds: []string{sessionId}}))

		// then
		require.NoError(t, err)
		records, _ := service.List(ctx, 10)
		assert.Empty(t, records)
		assert.Empty(t, repo.records)
	})
}

func TestServiceImpl_List(t *testing.T) {
	t.Run("should cap the limit", func(t *testing.T) {
		// given
		service, repo, _ := setupService(t)
		for i := 0; i < MaxLimit+5; i++ {
			_, _ = repo.Store(ctx, Record{SessionId: sessionId, Action: "add"})
		}

		// when
		all, err := service.List(ctx, MaxLimit*2)
		defaulted, _ := service.List(ctx, 0)

		// then
		require.NoError(t, err)
		assert.Len(t, all, MaxLimit)
		assert.Len(t, defaulted, DefaultLimit)
	})

	t.Run("should require a session", func(t *testing.T) {
		service, _, _ := setupService(t)
		_, err := service.List(context.Background(), 1)
		assert.ErrorIs(t, err, session.ErrNoSession)
	})
}

func TestHandler_List(t *testing.T) {
	t.Run("should return records as json", func(t *testing.T) {
		// given
		service, _, bus := setupService(t)
		require.NoError(t, bus.Publish(event_bus.NewEvent(ctx, event_bus.EntriesChangedType,
			event_bus.EntriesChanged{SessionId: sessionId, Action: "recalc", Count: 4})))
		handler := NewHandler(service)
		w := httptest.NewRecorder()

		// when
		handler.List(w, httptest.NewRequest(http.MethodGet, "/api/audit?limit=5", nil).WithContext(ctx))

		// then
		require.Equal(t, http.StatusOK, w.Code)
		var got []RecordDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		require.Len(t, got, 1)
		assert.Equal(t, "recalc", got[0].Action)
		assert.Equal(t, 4, got[0].Count)
	})

	t.Run("should reject a malformed limit", func(t *testing.T) {
		// given
		service, _, _ := setupService(t)
		w := httptest.NewRecorder()

		// when
		NewHandler(service).List(w, httptest.NewRequest(http.MethodGet, "/api/audit?limit=ten", nil).WithContext(ctx))

		// then
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
