package masterdata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/klokku/salesbudget/internal/event_bus"
	"github.com/klokku/salesbudget/pkg/session"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidMaster = errors.New("invalid master data")
var ErrDuplicateMaster = errors.New("master data already exists")

type Service interface {
	Get(ctx context.Context) (Masters, error)
	Index(ctx context.Context) (*Index, error)
	Replace(ctx context.Context, masters Masters) (Masters, error)
	AddClient(ctx context.Context, client Client) (Masters, error)
	AddProduct(ctx context.Context, product Product) (Masters, error)
}

type ServiceImpl struct {
	repo     Repository
	eventBus *event_bus.EventBus
}

// NewService also seeds every newly created session with DefaultMasters.
func NewService(repo Repository, eventBus *event_bus.EventBus) *ServiceImpl {
	service := &ServiceImpl{repo: repo, eventBus: eventBus}
	event_bus.SubscribeTyped[event_bus.SessionCreated](
		eventBus,
		event_bus.SessionCreatedType,
		func(e event_bus.EventT[event_bus.SessionCreated]) error {
			log.Debugf("seeding master data for session %s", e.Data.SessionId)
			if err := service.repo.Replace(e.Context(), e.Data.SessionId, DefaultMasters()); err != nil {
				return fmt.Errorf("failed to seed master data: %w", err)
			}
			return nil
		},
	)
	return service
}

func (s *ServiceImpl) Get(ctx context.Context) (Masters, error) {
	sessionId, err := session.CurrentId(ctx)
	if err != nil {
		return Masters{}, fmt.Errorf("failed to get current session: %w", err)
	}
	return s.repo.Get(ctx, sessionId)
}

func (s *ServiceImpl) Index(ctx context.Context) (*Index, error) {
	masters, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return NewIndex(masters), nil
}

func (s *ServiceImpl) Replace(ctx context.Context, masters Masters) (Masters, error) {
	sessionId, err := session.CurrentId(ctx)
	if err != nil {
		return Masters{}, fmt.Errorf("failed to get current session: %w", err)
	}
	cleaned := clean(masters)
	if err := s.repo.Replace(ctx, sessionId, cleaned); err != nil {
		return Masters{}, err
	}
	s.publish(ctx, sessionId, "load_masters", cleaned)
	return s.repo.Get(ctx, sessionId)
}

func (s *ServiceImpl) AddClient(ctx context.Context, client Client) (Masters, error) {
	sessionId, err := session.CurrentId(ctx)
	if err != nil {
		return Masters{}, fmt.Errorf("failed to get current session: %w", err)
	}
	client.Name = strings.TrimSpace(client.Name)
	client.BusinessUnit = strings.TrimSpace(client.BusinessUnit)
	if client.Name == "" {
		return Masters{}, fmt.Errorf("%w: client name is required", ErrInvalidMaster)
	}
	masters, err := s.repo.Get(ctx, sessionId)
	if err != nil {
		return Masters{}, err
	}
	for _, c := range masters.Clients {
		if strings.EqualFold(c.Name, client.Name) {
			return Masters{}, fmt.Errorf("%w: client %q", ErrDuplicateMaster, client.Name)
		}
	}
	if client.BusinessUnit == "" {
		client.BusinessUnit = All
	}
	if err := s.repo.StoreClient(ctx, sessionId, client); err != nil {
		return Masters{}, err
	}
	masters.Clients = append(masters.Clients, client)
	s.publish(ctx, sessionId, "add_client", masters)
	return masters, nil
}

func (s *ServiceImpl) AddProduct(ctx context.Context, product Product) (Masters, error) {
	sessionId, err := session.CurrentId(ctx)
	if err != nil {
		return Masters{}, fmt.Errorf("failed to get current session: %w", err)
	}
	product = cleanProduct(product)
	if product.Name == "" {
		return Masters{}, fmt.Errorf("%w: product name is required", ErrInvalidMaster)
	}
	masters, err := s.repo.Get(ctx, sessionId)
	if err != nil {
		return Masters{}, err
	}
	for _, p := range masters.Products {
		if strings.EqualFold(p.Name, product.Name) {
			return Masters{}, fmt.Errorf("%w: product %q", ErrDuplicateMaster, product.Name)
		}
	}
	if err := s.repo.StoreProduct(ctx, sessionId, product); err != nil {
		return Masters{}, err
	}
	masters.Products = append(masters.Products, product)
	s.publish(ctx, sessionId, "add_product", masters)
	return masters, nil
}

func (s *ServiceImpl) publish(ctx context.Context, sessionId, action string, masters Masters) {
	err := s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.MastersChangedType, event_bus.MastersChanged{
		SessionId: sessionId,
		Action:    action,
		Clients:   len(masters.Clients),
		Products:  len(masters.Products),
	}))
	if err != nil {
		log.Warnf("failed to publish master data change: %v", err)
	}
}

// clean trims names, drops nameless rows and unusable defaults.
func clean(masters Masters) Masters {
	out := Masters{Clients: make([]Client, 0, len(masters.Clients)), Products: make([]Product, 0, len(masters.Products))}
	for _, c := range masters.Clients {
		c.Name = strings.TrimSpace(c.Name)
		c.BusinessUnit = strings.TrimSpace(c.BusinessUnit)
		if c.Name == "" {
			continue
		}
		if c.BusinessUnit == "" {
			c.BusinessUnit = All
		}
		out.Clients = append(out.Clients, c)
	}
	for _, p := range masters.Products {
		p = cleanProduct(p)
		if p.Name == "" {
			continue
		}
		out.Products = append(out.Products, p)
	}
	return out
}

func cleanProduct(p Product) Product {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	p.BusinessUnit = strings.TrimSpace(p.BusinessUnit)
	if p.BusinessUnit == "" {
		p.BusinessUnit = All
	}
	if !usable(p.DefaultUnitPrice) {
		p.DefaultUnitPrice = nil
	}
	if !usable(p.DefaultMargin) {
		p.DefaultMargin = nil
	}
	return p
}
