package entry

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/klokku/salesbudget/internal/event_bus"
	"github.com/klokku/salesbudget/internal/utils"
	"github.com/klokku/salesbudget/pkg/calculator"
	"github.com/klokku/salesbudget/pkg/masterdata"
	"github.com/klokku/salesbudget/pkg/session"
	log "github.com/sirupsen/logrus"
)

// EditableFields lists the fields a single-cell edit may change.
var EditableFields = []string{
	"business_unit", "section", "client", "product", "sector", "month",
	"qty", "pmt", "gp_percent", "profit_per_ton", "booked",
}

type Service interface {
	List(ctx context.Context) ([]BudgetEntry, error)
	Add(ctx context.Context, entry BudgetEntry) ([]BudgetEntry, error)
	// Commit applies edited rows and deletes deleteIds in one transaction.
	Commit(ctx context.Context, edited []BudgetEntry, deleteIds []string) ([]BudgetEntry, error)
	Recalculate(ctx context.Context) ([]BudgetEntry, error)
	UpdateField(ctx context.Context, id string, field string, value string) ([]BudgetEntry, error)
	Clear(ctx context.Context) error
	// ReplaceAll swaps every entry of the session for entries, e.g. after a budget upload.
	ReplaceAll(ctx context.Context, entries []BudgetEntry) ([]BudgetEntry, error)
}

// IndexProvider gives access to the master data lookups of the current session.
type IndexProvider interface {
	Index(ctx context.Context) (*masterdata.Index, error)
}

type ServiceImpl struct {
	repo     Repository
	masters  IndexProvider
	eventBus *event_bus.EventBus
	clock    utils.Clock
}

func NewService(repo Repository, masters IndexProvider, eventBus *event_bus.EventBus, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{repo: repo, masters: masters, eventBus: eventBus, clock: clock}
}

func (s *ServiceImpl) List(ctx context.Context) ([]BudgetEntry, error) {
	sessionId, err := session.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current session: %w", err)
	}
	return s.repo.List(ctx, sessionId)
}

func (s *ServiceImpl) Add(ctx context.Context, entry BudgetEntry) ([]BudgetEntry, error) {
	sessionId, err := session.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current session: %w", err)
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	idx, err := s.masters.Index(ctx)
	if err != nil {
		return nil, err
	}

	entry = entry.Recalculated(idx)
	entry.Id = uuid.NewString()
	entry.CreatedAt = s.clock.Now()
	if err := s.repo.Store(ctx, sessionId, []BudgetEntry{entry}); err != nil {
		return nil, err
	}
	s.publish(ctx, sessionId, "add", 1, fmt.Sprintf("%s / %s / %s", entry.Client, entry.Product, calculator.MonthName(entry.Month)))
	return s.repo.List(ctx, sessionId)
}

func (s *ServiceImpl) Commit(ctx context.Context, edited []BudgetEntry, deleteIds []string) ([]BudgetEntry, error) {
	sessionId, err := session.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current session: %w", err)
	}
	idx, err := s.masters.Index(ctx)
	if err != nil {
		return nil, err
	}

	var deleted int
	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		for _, e := range edited {
			if !validId(e.Id) {
				return fmt.Errorf("%w: %s", ErrEntryNotFound, e.Id)
			}
			stored, err := repo.Get(ctx, sessionId, e.Id)
			if err != nil {
				return err
			}
			updated := mergeEdit(stored, e).Recalculated(idx)
			found, err := repo.Update(ctx, sessionId, updated)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%w: %s", ErrEntryNotFound, e.Id)
			}
		}
		ids := make([]string, 0, len(deleteIds))
		for _, id := range deleteIds {
			if validId(id) {
				ids = append(ids, id)
			}
		}
		deleted, err = repo.Delete(ctx, sessionId, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	if deleted < len(deleteIds) {
		log.Warnf("requested deletion of %d entries, deleted %d", len(deleteIds), deleted)
	}
	if len(edited) > 0 {
		s.publish(ctx, sessionId, "edit", len(edited), "")
	}
	if deleted > 0 {
		s.publish(ctx, sessionId, "delete", deleted, "")
	}
	return s.repo.List(ctx, sessionId)
}

func (s *ServiceImpl) Recalculate(ctx context.Context) ([]BudgetEntry, error) {
	sessionId, err := session.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current session: %w", err)
	}
	idx, err := s.masters.Index(ctx)
	if err != nil {
		return nil, err
	}

	var updated []BudgetEntry
	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		entries, err := repo.List(ctx, sessionId)
		if err != nil {
			return err
		}
		for _, e := range entries {
			recalculated := e.Recalculated(idx)
			if _, err := repo.Update(ctx, sessionId, recalculated); err != nil {
				return err
			}
			updated = append(updated, recalculated)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, sessionId, "recalc", len(updated), "")
	return s.repo.List(ctx, sessionId)
}

func (s *ServiceImpl) UpdateField(ctx context.Context, id string, field string, value string) ([]BudgetEntry, error) {
	sessionId, err := session.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current session: %w", err)
	}
	if !validId(id) {
		return nil, ErrEntryNotFound
	}
	stored, err := s.repo.Get(ctx, sessionId, id)
	if err != nil {
		return nil, err
	}
	edited, err := setField(stored, field, value)
	if err != nil {
		return nil, err
	}
	idx, err := s.masters.Index(ctx)
	if err != nil {
		return nil, err
	}
	found, err := s.repo.Update(ctx, sessionId, edited.Recalculated(idx))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrEntryNotFound
	}
	s.publish(ctx, sessionId, "update_entry", 1, fmt.Sprintf("%s = %s", field, value))
	return s.repo.List(ctx, sessionId)
}

func (s *ServiceImpl) Clear(ctx context.Context) error {
	sessionId, err := session.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current session: %w", err)
	}
	deleted, err := s.repo.DeleteAll(ctx, sessionId)
	if err != nil {
		return err
	}
	s.publish(ctx, sessionId, "clear", deleted, "")
	return nil
}

func (s *ServiceImpl) ReplaceAll(ctx context.Context, entries []BudgetEntry) ([]BudgetEntry, error) {
	sessionId, err := session.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current session: %w", err)
	}
	idx, err := s.masters.Index(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	prepared := make([]BudgetEntry, 0, len(entries))
	for _, e := range entries {
		e = e.Recalculated(idx)
		e.Id = uuid.NewString()
		e.CreatedAt = now
		prepared = append(prepared, e)
	}
	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		if _, err := repo.DeleteAll(ctx, sessionId); err != nil {
			return err
		}
		return repo.Store(ctx, sessionId, prepared)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, sessionId, "load_budget", len(prepared), "")
	return s.repo.List(ctx, sessionId)
}

func (s *ServiceImpl) publish(ctx context.Context, sessionId, action string, count int, detail string) {
	err := s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.EntriesChangedType, event_bus.EntriesChanged{
		SessionId: sessionId,
		Action:    action,
		Count:     count,
		Detail:    detail,
	}))
	if err != nil {
		log.Warnf("failed to publish entries change: %v", err)
	}
}

// mergeEdit copies the editable fields of edit onto stored.
func mergeEdit(stored, edit BudgetEntry) BudgetEntry {
	stored.BusinessUnit = edit.BusinessUnit
	stored.Section = edit.Section
	stored.Client = edit.Client
	stored.Product = edit.Product
	stored.Sector = edit.Sector
	stored.Month = edit.Month
	stored.Quantity = edit.Quantity
	stored.UnitPrice = edit.UnitPrice
	stored.MarginPercent = edit.MarginPercent
	stored.ProfitPerTon = edit.ProfitPerTon
	stored.Booked = edit.Booked
	if edit.Category != "" {
		stored.Category = edit.Category
	}
	return stored
}

func setField(e BudgetEntry, field string, value string) (BudgetEntry, error) {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "business_unit":
		e.BusinessUnit = strings.TrimSpace(value)
	case "section":
		e.Section = strings.TrimSpace(value)
	case "client":
		e.Client = strings.TrimSpace(value)
	case "product":
		e.Product = strings.TrimSpace(value)
	case "sector":
		e.Sector = strings.TrimSpace(value)
	case "month":
		e.Month = calculator.MonthNumber(value)
	case "qty":
		e.Quantity = calculator.ParseNumber(value)
	case "pmt":
		e.UnitPrice = calculator.ParseNumber(value)
	case "gp_percent":
		e.MarginPercent = calculator.ParseNumber(value)
	case "profit_per_ton":
		e.ProfitPerTon = calculator.ParseNumber(value)
	case "booked":
		e.Booked = ParseBooked(value)
	default:
		return BudgetEntry{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return e, nil
}

func validId(id string) bool {
	return uuid.Validate(id) == nil
}
