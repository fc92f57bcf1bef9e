package audit

import (
	"context"
	"fmt"

	"github.com/klokku/salesbudget/internal/event_bus"
	"github.com/klokku/salesbudget/internal/utils"
	"github.com/klokku/salesbudget/pkg/session"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

type Service interface {
	List(ctx context.Context, limit int) ([]Record, error)
}

type ServiceImpl struct {
	repo  Repository
	clock utils.Clock
}

// NewService records every entry and master data change published on eventBus, and drops the
// records of purged sessions.
func NewService(repo Repository, eventBus *event_bus.EventBus, clock utils.Clock) *ServiceImpl {
	s := &ServiceImpl{repo: repo, clock: clock}

	event_bus.SubscribeTyped[event_bus.EntriesChanged](
		eventBus,
		event_bus.EntriesChangedType,
		func(e event_bus.EventT[event_bus.EntriesChanged]) error {
			return s.record(e.Context(), Record{
				SessionId: e.Data.SessionId,
				Action:    e.Data.Action,
				Count:     e.Data.Count,
				Detail:    e.Data.Detail,
			})
		},
	)
	event_bus.SubscribeTyped[event_bus.MastersChanged](
		eventBus,
		event_bus.MastersChangedType,
		func(e event_bus.EventT[event_bus.MastersChanged]) error {
			return s.record(e.Context(), Record{
				SessionId: e.Data.SessionId,
				Action:    e.Data.Action,
				Count:     e.Data.Clients + e.Data.Products,
				Detail:    fmt.Sprintf("%d clients, %d products", e.Data.Clients, e.Data.Products),
			})
		},
	)
	event_bus.SubscribeTyped[event_bus.SessionsPurged](
		eventBus,
		event_bus.SessionsPurgedType,
		func(e event_bus.EventT[event_bus.SessionsPurged]) error {
			deleted, err := s.repo.DeleteSessions(e.Context(), e.Data.SessionIds)
			if err != nil {
				return err
			}
			log.Debugf("removed %d audit records of %d purged sessions", deleted, len(e.Data.SessionIds))
			return nil
		},
	)
	return s
}

func (s *ServiceImpl) record(ctx context.Context, record Record) error {
	record.CreatedAt = s.clock.Now()
	if _, err := s.repo.Store(ctx, record); err != nil {
		return fmt.Errorf("failed to record %s: %w", record.Action, err)
	}
	return nil
}

func (s *ServiceImpl) List(ctx context.Context, limit int) ([]Record, error) {
	sessionId, err := session.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current session: %w", err)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return s.repo.List(ctx, sessionId, limit)
}
