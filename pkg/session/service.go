package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/klokku/salesbudget/internal/event_bus"
	"github.com/klokku/salesbudget/internal/utils"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	// Resolve returns the session identified by token, starting a new one when the token is blank,
	// malformed or unknown. The bool reports whether a new session was started.
	Resolve(ctx context.Context, token string) (string, bool, error)
	// PurgeIdle removes sessions idle longer than the configured TTL.
	PurgeIdle(ctx context.Context) ([]string, error)
}

type ServiceImpl struct {
	repo     Repository
	eventBus *event_bus.EventBus
	clock    utils.Clock
	ttl      time.Duration
}

func NewService(repo Repository, eventBus *event_bus.EventBus, clock utils.Clock, ttl time.Duration) *ServiceImpl {
	return &ServiceImpl{repo: repo, eventBus: eventBus, clock: clock, ttl: ttl}
}

func (s *ServiceImpl) Resolve(ctx context.Context, token string) (string, bool, error) {
	now := s.clock.Now()
	if id, err := uuid.Parse(token); err == nil {
		found, err := s.repo.Touch(ctx, id.String(), now)
		if err != nil {
			return "", false, err
		}
		if found {
			return id.String(), false, nil
		}
		log.Debugf("session %s is unknown, starting a new one", token)
	}

	id := uuid.NewString()
	if err := s.repo.Create(ctx, Session{Id: id, CreatedAt: now, LastAccessed: now}); err != nil {
		return "", false, err
	}
	err := s.eventBus.Publish(event_bus.NewEvent(WithId(ctx, id), event_bus.SessionCreatedType, event_bus.SessionCreated{SessionId: id}))
	if err != nil {
		return "", false, fmt.Errorf("failed to initialize session: %w", err)
	}
	log.Debugf("started session %s", id)
	return id, true, nil
}

func (s *ServiceImpl) PurgeIdle(ctx context.Context) ([]string, error) {
	if s.ttl <= 0 {
		return nil, nil
	}
	ids, err := s.repo.DeleteIdleSince(ctx, s.clock.Now().Add(-s.ttl))
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		err = s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.SessionsPurgedType, event_bus.SessionsPurged{SessionIds: ids}))
		if err != nil {
			log.Warnf("failed to publish purged sessions: %v", err)
		}
	}
	return ids, nil
}
