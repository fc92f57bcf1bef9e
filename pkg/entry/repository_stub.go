package entry

import (
	"context"
	"errors"
)

type RepositoryStub struct {
	entries map[string][]BudgetEntry
	// FailStore makes the next Store call fail with this error.
	FailStore error
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{entries: map[string][]BudgetEntry{}}
}

func (s *RepositoryStub) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	snapshot := make(map[string][]BudgetEntry, len(s.entries))
	for k, v := range s.entries {
		snapshot[k] = append([]BudgetEntry(nil), v...)
	}
	if err := fn(s); err != nil {
		s.entries = snapshot
		return err
	}
	return nil
}

func (s *RepositoryStub) List(ctx context.Context, sessionId string) ([]BudgetEntry, error) {
	return append([]BudgetEntry{}, s.entries[sessionId]...), nil
}

func (s *RepositoryStub) Get(ctx context.Context, sessionId string, id string) (BudgetEntry, error) {
	for _, e := range s.entries[sessionId] {
		if e.Id == id {
			return e, nil
		}
	}
	return BudgetEntry{}, ErrEntryNotFound
}

func (s *RepositoryStub) Store(ctx context.Context, sessionId string, entries []BudgetEntry) error {
	if s.FailStore != nil {
		err := s.FailStore
		s.FailStore = nil
		return err
	}
	for _, e := range entries {
		if e.Id == "" {
			return errors.New("entry without id")
		}
	}
	s.entries[sessionId] = append(s.entries[sessionId], entries...)
	return nil
}

func (s *RepositoryStub) Update(ctx context.Context, sessionId string, entry BudgetEntry) (bool, error) {
	for i, e := range s.entries[sessionId] {
		if e.Id == entry.Id {
			entry.CreatedAt = e.CreatedAt
			s.entries[sessionId][i] = entry
			return true, nil
		}
	}
	return false, nil
}

func (s *RepositoryStub) Delete(ctx context.Context, sessionId string, ids []string) (int, error) {
	remove := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		remove[id] = struct{}{}
	}
	kept := make([]BudgetEntry, 0, len(s.entries[sessionId]))
	for _, e := range s.entries[sessionId] {
		if _, ok := remove[e.Id]; !ok {
			kept = append(kept, e)
		}
	}
	deleted := len(s.entries[sessionId]) - len(kept)
	s.entries[sessionId] = kept
	return deleted, nil
}

func (s *RepositoryStub) DeleteAll(ctx context.Context, sessionId string) (int, error) {
	deleted := len(s.entries[sessionId])
	delete(s.entries, sessionId)
	return deleted, nil
}

func (s *RepositoryStub) Cleanup() {
	s.entries = map[string][]BudgetEntry{}
	s.FailStore = nil
}
