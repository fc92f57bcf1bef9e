package session

import (
	"context"
	"sort"
	"time"
)

type RepositoryStub struct {
	sessions map[string]Session
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{sessions: map[string]Session{}}
}

func (s *RepositoryStub) Create(ctx context.Context, session Session) error {
	s.sessions[session.Id] = session
	return nil
}

func (s *RepositoryStub) Touch(ctx context.Context, id string, at time.Time) (bool, error) {
	session, ok := s.sessions[id]
	if !ok {
		return false, nil
	}
	session.LastAccessed = at
	s.sessions[id] = session
	return true, nil
}

func (s *RepositoryStub) DeleteIdleSince(ctx context.Context, cutoff time.Time) ([]string, error) {
	var ids []string
	for id, session := range s.sessions {
		if session.LastAccessed.Before(cutoff) {
			ids = append(ids, id)
			delete(s.sessions, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *RepositoryStub) Get(id string) (Session, bool) {
	session, ok := s.sessions[id]
	return session, ok
}

func (s *RepositoryStub) Cleanup() {
	s.sessions = map[string]Session{}
}
