package audit

import "context"

type RepositoryStub struct {
	records []Record
	nextId  int64
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{}
}

func (s *RepositoryStub) Store(ctx context.Context, record Record) (int64, error) {
	s.nextId++
	record.Id = s.nextId
	s.records = append(s.records, record)
	return record.Id, nil
}

func (s *RepositoryStub) List(ctx context.Context, sessionId string, limit int) ([]Record, error) {
	out := make([]Record, 0)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		if s.records[i].SessionId == sessionId {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}

func (s *RepositoryStub) DeleteSessions(ctx context.Context, sessionIds []string) (int, error) {
	remove := make(map[string]struct{}, len(sessionIds))
	for _, id := range sessionIds {
		remove[id] = struct{}{}
	}
	kept := s.records[:0]
	for _, r := range s.records {
		if _, ok := remove[r.SessionId]; !ok {
			kept = append(kept, r)
		}
	}
	deleted := len(s.records) - len(kept)
	s.records = kept
	return deleted, nil
}

func (s *RepositoryStub) Cleanup() {
	s.records = nil
	s.nextId = 0
}
