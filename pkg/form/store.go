package form

import (
	"context"
	"fmt"
	"io"

	"github.com/klokku/salesbudget/pkg/calculator"
	"github.com/klokku/salesbudget/pkg/entry"
	"github.com/klokku/salesbudget/pkg/masterdata"
	log "github.com/sirupsen/logrus"
)

// API is the part of the budget API the store drives. *budgetclient.Client implements it.
type API interface {
	State(ctx context.Context) (*entry.StateResponse, error)
	Add(ctx context.Context, req entry.AddEntryRequest) (*entry.EntriesResponse, error)
	Commit(ctx context.Context, req entry.CommitRequest) (*entry.EntriesResponse, error)
	Recalculate(ctx context.Context) (*entry.EntriesResponse, error)
	UpdateEntry(ctx context.Context, req entry.UpdateEntryRequest) (*entry.EntriesResponse, error)
	ClearData(ctx context.Context) (*entry.EntriesResponse, error)
	AddMaster(ctx context.Context, req masterdata.AddMasterRequest) (*masterdata.MastersResponse, error)
	LoadMasters(ctx context.Context, fileName string, file io.Reader) (*masterdata.MastersResponse, error)
	LoadBudget(ctx context.Context, fileName string, file io.Reader, sheet string) (*entry.EntriesResponse, error)
	DownloadCurrent(ctx context.Context, w io.Writer) (string, error)
}

// Store holds the client side state of a budgeting session: entries and master data as last
// returned by the server, the lookups built from the masters, exchange rates, the active
// filter and the last draft. Every successful call replaces entries or masters wholesale; a
// failed call leaves the state as it was.
//
// A Store is not safe for concurrent use; it belongs to the goroutine driving the UI.
type Store struct {
	api API

	sessionId string
	entries   []entry.BudgetEntry
	masters   masterdata.Masters
	index     *masterdata.Index
	rates     calculator.ExchangeRateTable
	filter    entry.Filter
	draft     calculator.EntryDraft
}

func NewStore(api API) *Store {
	return &Store{api: api, index: masterdata.NewIndex(masterdata.Masters{})}
}

// Load fetches the session state from the server.
func (s *Store) Load(ctx context.Context) error {
	state, err := s.api.State(ctx)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	s.sessionId = state.SessionId
	s.rates = calculator.NewExchangeRateTable(state.ReferenceCurrency, state.Rates)
	s.setEntries(state.Entries)
	s.setMasters(state.Masters)
	return nil
}

func (s *Store) SessionId() string {
	return s.sessionId
}

func (s *Store) Entries() []entry.BudgetEntry {
	return append([]entry.BudgetEntry(nil), s.entries...)
}

func (s *Store) Masters() masterdata.Masters {
	return s.masters
}

func (s *Store) Index() *masterdata.Index {
	return s.index
}

func (s *Store) Rates() calculator.ExchangeRateTable {
	return s.rates
}

func (s *Store) Draft() calculator.EntryDraft {
	return s.draft
}

func (s *Store) Filter() entry.Filter {
	return s.filter
}

func (s *Store) SetFilter(filter entry.Filter) {
	s.filter = filter
}

// Filtered returns the entries matching the active filter.
func (s *Store) Filtered() []entry.BudgetEntry {
	return s.filter.Apply(s.entries)
}

// Summary totals the filtered entries.
func (s *Store) Summary() entry.Summary {
	return entry.Summarize(s.Filtered())
}

// Preview computes the quarterly figures and warnings of draft and remembers it as the last
// draft. Nothing is sent.
func (s *Store) Preview(draft calculator.EntryDraft) (calculator.Result, []string) {
	s.draft = draft
	return calculator.Compute(draft, s.rates), calculator.Validate(draft)
}

// SelectProduct returns draft with the category and the blank price and margin inputs taken
// from the product's master data, prices expressed in draft.Currency.
func (s *Store) SelectProduct(draft calculator.EntryDraft) calculator.EntryDraft {
	s.index.ApplyDefaults(&draft, s.rates)
	s.draft = draft
	return draft
}

// Submit sends one add request per month of draft with a quantity, in month order. A draft
// with warnings is rejected with a *ValidationError before anything is sent. The first failed
// request, or a cancelled ctx, stops the batch; the returned report lists which months made it.
func (s *Store) Submit(ctx context.Context, draft calculator.EntryDraft) (BatchReport, error) {
	if warnings := calculator.Validate(draft); len(warnings) > 0 {
		return BatchReport{}, &ValidationError{Warnings: warnings}
	}
	s.draft = draft

	lines := calculator.Expand(draft, s.rates)
	report := BatchReport{}
	for i, line := range lines {
		month := calculator.MonthName(line.Month)
		if err := ctx.Err(); err != nil {
			report.Err = err
			report.Skipped = monthNames(lines[i:])
			break
		}
		resp, err := s.api.Add(ctx, entry.EntryToAddRequest(entry.FromMonthLine(draft, line)))
		if err != nil {
			log.Warnf("adding %s failed: %v", month, err)
			report.Err = err
			report.Failed = []string{month}
			report.Skipped = monthNames(lines[i+1:])
			break
		}
		s.setEntries(resp.Entries)
		report.Succeeded = append(report.Succeeded, month)
	}
	if report.Err != nil {
		return report, fmt.Errorf("submitted %d of %d months: %w", len(report.Succeeded), len(lines), report.Err)
	}
	return report, nil
}

// SaveEdits commits edited rows and deletions in one request.
func (s *Store) SaveEdits(ctx context.Context, edited []entry.BudgetEntry, deleteIds []string) error {
	dtos := make([]entry.EntryDTO, 0, len(edited))
	for _, e := range edited {
		dtos = append(dtos, entry.EntryToDTO(e))
	}
	if deleteIds == nil {
		deleteIds = []string{}
	}
	resp, err := s.api.Commit(ctx, entry.CommitRequest{EditedRows: dtos, DeleteIds: deleteIds})
	if err != nil {
		return fmt.Errorf("failed to save changes: %w", err)
	}
	s.setEntries(resp.Entries)
	return nil
}

func (s *Store) DeleteSelected(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.SaveEdits(ctx, nil, ids)
}

func (s *Store) Recalculate(ctx context.Context) error {
	resp, err := s.api.Recalculate(ctx)
	if err != nil {
		return fmt.Errorf("failed to recalculate: %w", err)
	}
	s.setEntries(resp.Entries)
	return nil
}

// UpdateCell changes one field of one entry, e.g. field "qty" with value "120".
func (s *Store) UpdateCell(ctx context.Context, id, field string, value any) error {
	resp, err := s.api.UpdateEntry(ctx, entry.UpdateEntryRequest{EntryId: id, Field: field, Value: value})
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", field, err)
	}
	s.setEntries(resp.Entries)
	return nil
}

func (s *Store) AddClient(ctx context.Context, name, businessUnit string) error {
	return s.addMaster(ctx, masterdata.AddMasterRequest{NewClient: name, BusinessUnit: businessUnit})
}

func (s *Store) AddProduct(ctx context.Context, product masterdata.Product) error {
	dto := masterdata.ProductToDTO(product)
	return s.addMaster(ctx, masterdata.AddMasterRequest{NewProduct: &dto})
}

func (s *Store) addMaster(ctx context.Context, req masterdata.AddMasterRequest) error {
	resp, err := s.api.AddMaster(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to add master data: %w", err)
	}
	s.setMasters(resp.Masters)
	return nil
}

func (s *Store) UploadMasters(ctx context.Context, fileName string, file io.Reader) error {
	resp, err := s.api.LoadMasters(ctx, fileName, file)
	if err != nil {
		return fmt.Errorf("failed to upload master data: %w", err)
	}
	s.setMasters(resp.Masters)
	return nil
}

func (s *Store) UploadBudget(ctx context.Context, fileName string, file io.Reader, sheet string) error {
	resp, err := s.api.LoadBudget(ctx, fileName, file, sheet)
	if err != nil {
		return fmt.Errorf("failed to upload budget: %w", err)
	}
	s.setEntries(resp.Entries)
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	resp, err := s.api.ClearData(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear data: %w", err)
	}
	s.setEntries(resp.Entries)
	return nil
}

// Export writes the server's workbook of the session to w and returns its file name.
func (s *Store) Export(ctx context.Context, w io.Writer) (string, error) {
	name, err := s.api.DownloadCurrent(ctx, w)
	if err != nil {
		return "", fmt.Errorf("failed to export: %w", err)
	}
	return name, nil
}

func (s *Store) setEntries(dtos []entry.EntryDTO) {
	entries := make([]entry.BudgetEntry, 0, len(dtos))
	for _, dto := range dtos {
		entries = append(entries, entry.DTOToEntry(dto))
	}
	s.entries = entries
}

func (s *Store) setMasters(dto masterdata.MastersDTO) {
	s.masters = masterdata.DTOToMasters(dto)
	s.index.Reindex(s.masters)
}

func monthNames(lines []calculator.MonthLine) []string {
	names := make([]string, 0, len(lines))
	for _, l := range lines {
		names = append(names, calculator.MonthName(l.Month))
	}
	return names
}
