package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/salesbudget/internal/config"
	"github.com/klokku/salesbudget/internal/event_bus"
	"github.com/klokku/salesbudget/internal/utils"
	"github.com/klokku/salesbudget/pkg/audit"
	"github.com/klokku/salesbudget/pkg/calculator"
	"github.com/klokku/salesbudget/pkg/entry"
	"github.com/klokku/salesbudget/pkg/masterdata"
	"github.com/klokku/salesbudget/pkg/session"
	"github.com/klokku/salesbudget/pkg/spreadsheet"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	EventBus *event_bus.EventBus
	Clock    utils.Clock
	Rates    calculator.ExchangeRateTable

	SessionService *session.ServiceImpl
	SessionJanitor *session.Janitor

	MasterDataService *masterdata.ServiceImpl
	MasterDataHandler *masterdata.Handler

	EntryService *entry.ServiceImpl
	EntryHandler *entry.Handler

	AuditService *audit.ServiceImpl
	AuditHandler *audit.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.EventBus = event_bus.NewEventBus()
	deps.Clock = &utils.SystemClock{}
	deps.Rates = calculator.NewExchangeRateTable(cfg.Currency.Reference, cfg.Currency.Rates)

	deps.SessionService = session.NewService(session.NewRepository(db), deps.EventBus, deps.Clock, cfg.Session.TTL)
	deps.SessionJanitor = session.NewJanitor(deps.SessionService, cfg.Session.PurgeSchedule)

	// Subscribes to new sessions to seed their master data.
	deps.MasterDataService = masterdata.NewService(masterdata.NewRepository(db), deps.EventBus)
	deps.MasterDataHandler = masterdata.NewHandler(deps.MasterDataService, spreadsheet.ReadMasters, cfg.Upload.MaxBytes)

	deps.EntryService = entry.NewService(entry.NewRepository(db), deps.MasterDataService, deps.EventBus, deps.Clock)
	deps.EntryHandler = entry.NewHandler(
		deps.EntryService,
		deps.MasterDataService,
		deps.Rates,
		spreadsheet.ReadBudget,
		spreadsheet.WriteBudget,
		deps.Clock,
		cfg.Upload.MaxBytes,
	)

	deps.AuditService = audit.NewService(audit.NewRepository(db), deps.EventBus, deps.Clock)
	deps.AuditHandler = audit.NewHandler(deps.AuditService)

	return deps
}
