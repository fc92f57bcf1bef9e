package form

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"testing"

	"github.com/klokku/salesbudget/pkg/budgetclient"
	"github.com/klokku/salesbudget/pkg/calculator"
	"github.com/klokku/salesbudget/pkg/entry"
	"github.com/klokku/salesbudget/pkg/masterdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ API = (*budgetclient.Client)(nil)

// apiStub keeps entries in memory and can fail the n-th add request.
type apiStub struct {
	entries  []entry.EntryDTO
	masters  masterdata.MastersDTO
	added    []entry.AddEntryRequest
	failAdd  int
	failWith error
	fail     error
	nextId   int
	exported string
}

func newAPIStub() *apiStub {
	return &apiStub{masters: masterdata.MastersToDTO(masterdata.DefaultMasters())}
}

func (a *apiStub) State(ctx context.Context) (*entry.StateResponse, error) {
	if a.fail != nil {
		return nil, a.fail
	}
	return &entry.StateResponse{
		SessionId:         "session-1",
		Entries:           a.entries,
		Masters:           a.masters,
		ReferenceCurrency: "JOD",
		Rates:             map[string]float64{"JOD": 1, "USD": 1.41},
	}, nil
}

func (a *apiStub) Add(ctx context.Context, req entry.AddEntryRequest) (*entry.EntriesResponse, error) {
	a.added = append(a.added, req)
	if a.failAdd == len(a.added) {
		return nil, a.failWith
	}
	e := entry.AddRequestToEntry(req)
	a.nextId++
	e.Id = strconv.Itoa(a.nextId)
	e = e.Recalculated(masterdata.NewIndex(masterdata.DTOToMasters(a.masters)))
	a.entries = append(a.entries, entry.EntryToDTO(e))
	return a.entriesResponse()
}

func (a *apiStub) Commit(ctx context.Context, req entry.CommitRequest) (*entry.EntriesResponse, error) {
	if a.fail != nil {
		return nil, a.fail
	}
	remove := map[string]bool{}
	for _, id := range req.DeleteIds {
		remove[id] = true
	}
	kept := []entry.EntryDTO{}
	for _, e := range a.entries {
		if !remove[e.Id] {
			kept = append(kept, e)
		}
	}
	a.entries = kept
	return a.entriesResponse()
}

func (a *apiStub) Recalculate(ctx context.Context) (*entry.EntriesResponse, error) {
	return a.entriesResponse()
}

func (a *apiStub) UpdateEntry(ctx context.Context, req entry.UpdateEntryRequest) (*entry.EntriesResponse, error) {
	if a.fail != nil {
		return nil, a.fail
	}
	for i, e := range a.entries {
		if e.Id == req.EntryId && req.Field == "sector" {
			a.entries[i].Sector = req.Value.(string)
		}
	}
	return a.entriesResponse()
}

func (a *apiStub) ClearData(ctx context.Context) (*entry.EntriesResponse, error) {
	a.entries = nil
	return a.entriesResponse()
}

func (a *apiStub) AddMaster(ctx context.Context, req masterdata.AddMasterRequest) (*masterdata.MastersResponse, error) {
	if a.fail != nil {
		return nil, a.fail
	}
	if req.NewProduct != nil {
		a.masters.Products = append(a.masters.Products, *req.NewProduct)
	} else {
		a.masters.Clients = append(a.masters.Clients, masterdata.ClientDTO{Name: req.NewClient, BusinessUnit: req.BusinessUnit})
	}
	return &masterdata.MastersResponse{Status: "success", Masters: a.masters}, nil
}

func (a *apiStub) LoadMasters(ctx context.Context, fileName string, file io.Reader) (*masterdata.MastersResponse, error) {
	if a.fail != nil {
		return nil, a.fail
	}
	a.masters = masterdata.MastersDTO{Clients: []masterdata.ClientDTO{{Name: "Only Client"}}}
	return &masterdata.MastersResponse{Status: "success", Masters: a.masters}, nil
}

func (a *apiStub) LoadBudget(ctx context.Context, fileName string, file io.Reader, sheet string) (*entry.EntriesResponse, error) {
	if a.fail != nil {
		return nil, a.fail
	}
	a.entries = []entry.EntryDTO{{Id: "loaded", Client: sheet, Month: 1, Sales: 10}}
	return a.entriesResponse()
}

func (a *apiStub) DownloadCurrent(ctx context.Context, w io.Writer) (string, error) {
	_, err := w.Write([]byte(a.exported))
	return "Budget_Export_20250131_142501.xlsx", err
}

func (a *apiStub) entriesResponse() (*entry.EntriesResponse, error) {
	return &entry.EntriesResponse{Status: "success", Entries: append([]entry.EntryDTO{}, a.entries...)}, nil
}

func setupStore(t *testing.T) (*Store, *apiStub) {
	api := newAPIStub()
	store := NewStore(api)
	require.NoError(t, store.Load(context.Background()))
	return store, api
}

func sugarDraft() calculator.EntryDraft {
	d := calculator.EntryDraft{
		BusinessUnit: "Trading",
		Section:      "Distribution",
		Client:       "Cedar Trading Co",
		Product:      "Sugar",
		Currency:     "JOD",
	}
	d.Quantities[0] = 10
	d.Quantities[1] = 20
	d.Quantities[4] = 5
	return d
}

func TestStore_Load(t *testing.T) {
	t.Run("should build the index from the loaded masters", func(t *testing.T) {
		store, _ := setupStore(t)

		assert.Equal(t, "session-1", store.SessionId())
		assert.Equal(t, "JOD", store.Rates().Reference())
		category, ok := store.Index().Category("Sugar")
		assert.True(t, ok)
		assert.Equal(t, "Commodities", category)
	})

	t.Run("should keep the previous state when loading fails", func(t *testing.T) {
		// given
		store, api := setupStore(t)
		api.fail = errors.New("offline")

		// when
		err := store.Load(context.Background())

		// then
		assert.Error(t, err)
		assert.Equal(t, "session-1", store.SessionId())
		assert.Len(t, store.Masters().Products, 12)
	})
}

func TestStore_SelectProductAndPreview(t *testing.T) {
	// given
	store, _ := setupStore(t)

	// when
	draft := store.SelectProduct(sugarDraft())
	result, warnings := store.Preview(draft)

	// then
	assert.Equal(t, "Commodities", draft.Category)
	assert.Equal(t, [4]float64{720, 720, 720, 720}, draft.UnitPrices)
	assert.Equal(t, 9.5, draft.MarginPercent)
	assert.Empty(t, warnings)
	assert.InDelta(t, 30*720, result.Quarters[0].Sales, 1e-9)
	assert.InDelta(t, 5*720*0.095, result.Quarters[1].GrossProfit, 1e-9)
	assert.Equal(t, draft, store.Draft())
}

func TestStore_SelectProductInForeignCurrency(t *testing.T) {
	// given
	store, api := setupStore(t)
	draft := sugarDraft()
	draft.Currency = "USD"

	// when
	draft = store.SelectProduct(draft)
	result, _ := store.Preview(draft)
	_, err := store.Submit(context.Background(), draft)

	// then
	require.NoError(t, err)
	assert.InDelta(t, 720*1.41, draft.UnitPrices[0], 1e-9)
	assert.InDelta(t, 30*720, result.Quarters[0].Sales, 1e-6)
	require.Len(t, api.added, 3)
	assert.InDelta(t, 720, api.added[0].UnitPrice, 1e-9)
	assert.InDelta(t, 10*720, store.Entries()[0].Sales, 1e-6)
}

func TestStore_Submit(t *testing.T) {
	t.Run("should add one entry per month with a quantity", func(t *testing.T) {
		// given
		store, api := setupStore(t)
		draft := store.SelectProduct(sugarDraft())

		// when
		report, err := store.Submit(context.Background(), draft)

		// then
		require.NoError(t, err)
		assert.True(t, report.Complete())
		assert.Equal(t, []string{"Jan", "Feb", "May"}, report.Succeeded)
		require.Len(t, api.added, 3)
		assert.Equal(t, 5, api.added[2].Month)
		assert.Equal(t, 720.0, api.added[2].UnitPrice)
		assert.Len(t, store.Entries(), 3)
	})

	t.Run("should send reference currency values", func(t *testing.T) {
		// given
		store, api := setupStore(t)
		draft := sugarDraft()
		draft.Currency = "USD"
		draft.UnitPrices = [4]float64{141, 141, 141, 141}
		draft.MarginPercent = 10

		// when
		_, err := store.Submit(context.Background(), draft)

		// then
		require.NoError(t, err)
		assert.InDelta(t, 100, api.added[0].UnitPrice, 1e-9)
		assert.Equal(t, "USD", api.added[0].Currency)
	})

	t.Run("should reject invalid drafts without sending anything", func(t *testing.T) {
		// given
		store, api := setupStore(t)
		draft := sugarDraft()

		// when
		_, err := store.Submit(context.Background(), draft)

		// then
		var validationErr *ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Contains(t, validationErr.Warnings, calculator.MsgZeroMargin)
		assert.Empty(t, api.added)
	})

	t.Run("should stop at the first failure and report the rest as skipped", func(t *testing.T) {
		// given
		store, api := setupStore(t)
		api.failAdd = 2
		api.failWith = &budgetclient.APIError{StatusCode: 500, Message: "Failed to add entry"}
		draft := store.SelectProduct(sugarDraft())

		// when
		report, err := store.Submit(context.Background(), draft)

		// then
		require.Error(t, err)
		var apiErr *budgetclient.APIError
		assert.True(t, errors.As(err, &apiErr))
		assert.Equal(t, []string{"Jan"}, report.Succeeded)
		assert.Equal(t, []string{"Feb"}, report.Failed)
		assert.Equal(t, []string{"May"}, report.Skipped)
		assert.Len(t, api.added, 2)
		assert.Len(t, store.Entries(), 1)
	})

	t.Run("should skip every month when the context is cancelled", func(t *testing.T) {
		// given
		store, api := setupStore(t)
		draft := store.SelectProduct(sugarDraft())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// when
		report, err := store.Submit(ctx, draft)

		// then
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, []string{"Jan", "Feb", "May"}, report.Skipped)
		assert.Empty(t, api.added)
	})
}

func TestStore_FilterAndSummary(t *testing.T) {
	// given
	store, _ := setupStore(t)
	_, err := store.Submit(context.Background(), store.SelectProduct(sugarDraft()))
	require.NoError(t, err)
	other := store.SelectProduct(calculator.EntryDraft{Section: "Distribution", Client: "Eagle Logistics", Product: "Flour"})
	other.Quantities[2] = 1
	_, err = store.Submit(context.Background(), other)
	require.NoError(t, err)

	// when
	store.SetFilter(entry.Filter{Search: "cedar"})

	// then
	assert.Len(t, store.Filtered(), 3)
	summary := store.Summary()
	assert.Equal(t, 3, summary.Count)
	assert.InDelta(t, 35*720, summary.Sales, 1e-9)
	assert.InDelta(t, 9.5, summary.AvgMargin, 1e-9)
}

func TestStore_Mutations(t *testing.T) {
	t.Run("should delete selected entries", func(t *testing.T) {
		// given
		store, _ := setupStore(t)
		_, err := store.Submit(context.Background(), store.SelectProduct(sugarDraft()))
		require.NoError(t, err)

		// when
		err = store.DeleteSelected(context.Background(), []string{"1", "3"})

		// then
		require.NoError(t, err)
		require.Len(t, store.Entries(), 1)
		assert.Equal(t, "2", store.Entries()[0].Id)
	})

	t.Run("should update a cell", func(t *testing.T) {
		// given
		store, _ := setupStore(t)
		_, err := store.Submit(context.Background(), store.SelectProduct(sugarDraft()))
		require.NoError(t, err)

		// when
		err = store.UpdateCell(context.Background(), "1", "sector", "Food")

		// then
		require.NoError(t, err)
		assert.Equal(t, "Food", store.Entries()[0].Sector)
	})

	t.Run("should keep entries when a mutation fails", func(t *testing.T) {
		// given
		store, api := setupStore(t)
		_, err := store.Submit(context.Background(), store.SelectProduct(sugarDraft()))
		require.NoError(t, err)
		api.fail = errors.New("offline")

		// when
		errDelete := store.DeleteSelected(context.Background(), []string{"1"})
		errUpdate := store.UpdateCell(context.Background(), "1", "sector", "Food")

		// then
		assert.Error(t, errDelete)
		assert.Error(t, errUpdate)
		assert.Len(t, store.Entries(), 3)
	})

	t.Run("should reindex after adding a product", func(t *testing.T) {
		// given
		store, _ := setupStore(t)

		// when
		err := store.AddProduct(context.Background(), masterdata.Product{Name: "Copper", Category: "Metals", DefaultUnitPrice: masterdata.Float(6000)})

		// then
		require.NoError(t, err)
		price, ok := store.Index().DefaultUnitPrice("Copper")
		assert.True(t, ok)
		assert.Equal(t, 6000.0, price)
	})

	t.Run("should add a client", func(t *testing.T) {
		store, _ := setupStore(t)
		require.NoError(t, store.AddClient(context.Background(), "Nova Metals", "Mining"))
		assert.Len(t, store.Index().ClientsFor("Mining"), 10)
	})

	t.Run("should replace masters and entries from uploads", func(t *testing.T) {
		// given
		store, _ := setupStore(t)

		// when
		errMasters := store.UploadMasters(context.Background(), "m.xlsx", bytes.NewReader(nil))
		errBudget := store.UploadBudget(context.Background(), "b.xlsx", bytes.NewReader(nil), "Plan")

		// then
		require.NoError(t, errMasters)
		require.NoError(t, errBudget)
		assert.Len(t, store.Masters().Clients, 1)
		assert.False(t, store.Index().HasProduct("Sugar"))
		require.Len(t, store.Entries(), 1)
		assert.Equal(t, "Plan", store.Entries()[0].Client)
	})

	t.Run("should clear, recalculate and export", func(t *testing.T) {
		// given
		store, api := setupStore(t)
		api.exported = "xlsx"
		_, err := store.Submit(context.Background(), store.SelectProduct(sugarDraft()))
		require.NoError(t, err)
		var buf bytes.Buffer

		// when
		require.NoError(t, store.Recalculate(context.Background()))
		name, err := store.Export(context.Background(), &buf)
		require.NoError(t, err)
		require.NoError(t, store.Clear(context.Background()))

		// then
		assert.Equal(t, "Budget_Export_20250131_142501.xlsx", name)
		assert.Equal(t, "xlsx", buf.String())
		assert.Empty(t, store.Entries())
	})
}
