package masterdata

import "context"

type RepositoryStub struct {
	masters map[string]Masters
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{masters: map[string]Masters{}}
}

func (s *RepositoryStub) Get(ctx context.Context, sessionId string) (Masters, error) {
	m := s.masters[sessionId]
	return Masters{
		Clients:  append([]Client{}, m.Clients...),
		Products: append([]Product{}, m.Products...),
	}, nil
}

func (s *RepositoryStub) Replace(ctx context.Context, sessionId string, masters Masters) error {
	s.masters[sessionId] = Masters{
		Clients:  append([]Client{}, masters.Clients...),
		Products: append([]Product{}, masters.Products...),
	}
	return nil
}

func (s *RepositoryStub) StoreClient(ctx context.Context, sessionId string, client Client) error {
	m := s.masters[sessionId]
	m.Clients = append(m.Clients, client)
	s.masters[sessionId] = m
	return nil
}

func (s *RepositoryStub) StoreProduct(ctx context.Context, sessionId string, product Product) error {
	m := s.masters[sessionId]
	m.Products = append(m.Products, product)
	s.masters[sessionId] = m
	return nil
}

func (s *RepositoryStub) Cleanup() {
	s.masters = map[string]Masters{}
}
