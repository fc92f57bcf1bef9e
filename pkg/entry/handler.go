package entry

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/klokku/salesbudget/internal/rest"
	"github.com/klokku/salesbudget/internal/utils"
	"github.com/klokku/salesbudget/pkg/calculator"
	"github.com/klokku/salesbudget/pkg/masterdata"
	"github.com/klokku/salesbudget/pkg/session"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultBudgetSheet = "Budget"
	spreadsheetMime    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type EntryDTO struct {
	Id            string  `json:"id"`
	BusinessUnit  string  `json:"business_unit"`
	Section       string  `json:"section"`
	Client        string  `json:"client"`
	Category      string  `json:"category"`
	Product       string  `json:"product"`
	Month         int     `json:"month"`
	MonthName     string  `json:"month_name,omitempty"`
	Quantity      float64 `json:"qty"`
	UnitPrice     float64 `json:"pmt"`
	MarginPercent float64 `json:"gp_percent"`
	ProfitPerTon  float64 `json:"profit_per_ton"`
	Sales         float64 `json:"sales"`
	GrossProfit   float64 `json:"gp"`
	Sector        string  `json:"sector"`
	Booked        bool    `json:"booked"`
	Currency      string  `json:"currency,omitempty"`
}

// AddEntryRequest is one month of a budget line. Month may be given as a number or by name.
type AddEntryRequest struct {
	BusinessUnit  string  `json:"business_unit"`
	Section       string  `json:"section" validate:"required"`
	Client        string  `json:"client" validate:"required"`
	Category      string  `json:"category"`
	Product       string  `json:"product" validate:"required"`
	Month         int     `json:"month" validate:"min=0,max=12"`
	MonthName     string  `json:"month_name,omitempty"`
	Quantity      float64 `json:"qty"`
	UnitPrice     float64 `json:"pmt"`
	MarginPercent float64 `json:"gp_percent"`
	ProfitPerTon  float64 `json:"profit_per_ton"`
	Sector        string  `json:"sector"`
	Booked        bool    `json:"booked"`
	Currency      string  `json:"currency,omitempty"`
}

type CommitRequest struct {
	EditedRows []EntryDTO `json:"editedRows"`
	DeleteIds  []string   `json:"deleteIds"`
}

type UpdateEntryRequest struct {
	EntryId string `json:"entry_id" validate:"required"`
	Field   string `json:"field" validate:"required"`
	Value   any    `json:"value"`
}

type EntriesResponse struct {
	Status  string     `json:"status"`
	Entries []EntryDTO `json:"entries"`
	Message string     `json:"message,omitempty"`
}

type StateResponse struct {
	SessionId         string                `json:"session_id"`
	Entries           []EntryDTO            `json:"entries"`
	Masters           masterdata.MastersDTO `json:"masters"`
	ReferenceCurrency string                `json:"reference_currency"`
	Rates             map[string]float64    `json:"rates"`
}

type RatesResponse struct {
	ReferenceCurrency string             `json:"reference_currency"`
	Currencies        []string           `json:"currencies"`
	Rates             map[string]float64 `json:"rates"`
}

// BudgetReader parses the named sheet of an uploaded budget workbook.
type BudgetReader func(r io.Reader, sheet string) ([]BudgetEntry, error)

// BudgetWriter renders entries as a budget workbook.
type BudgetWriter func(w io.Writer, entries []BudgetEntry) error

type Handler struct {
	service        Service
	masters        masterdata.Service
	rates          calculator.ExchangeRateTable
	readBudget     BudgetReader
	writeBudget    BudgetWriter
	clock          utils.Clock
	maxUploadBytes int64
}

func NewHandler(
	service Service,
	masters masterdata.Service,
	rates calculator.ExchangeRateTable,
	readBudget BudgetReader,
	writeBudget BudgetWriter,
	clock utils.Clock,
	maxUploadBytes int64,
) *Handler {
	return &Handler{
		service:        service,
		masters:        masters,
		rates:          rates,
		readBudget:     readBudget,
		writeBudget:    writeBudget,
		clock:          clock,
		maxUploadBytes: maxUploadBytes,
	}
}

// State godoc
// @Summary Get the session's entries and master data
// @Tags Entries
// @Produce json
// @Success 200 {object} StateResponse
// @Router /api/state [get]
// @Security XSessionId
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	log.Debug("Getting session state")
	sessionId, err := session.CurrentId(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to get state", err)
		return
	}
	entries, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to get entries", err)
		return
	}
	masters, err := h.masters.Get(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to get master data", err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, StateResponse{
		SessionId:         sessionId,
		Entries:           EntriesToDTO(entries),
		Masters:           masterdata.MastersToDTO(masters),
		ReferenceCurrency: h.rates.Reference(),
		Rates:             h.rates.Rates(),
	})
}

// Add godoc
// @Summary Add one month of a budget line
// @Tags Entries
// @Accept json
// @Produce json
// @Param entry body AddEntryRequest true "Entry"
// @Success 200 {object} EntriesResponse
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/add [post]
// @Security XSessionId
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	log.Debug("Adding budget entry")
	var req AddEntryRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid entry", err.Error())
		return
	}

	entries, err := h.service.Add(r.Context(), AddRequestToEntry(req))
	if err != nil {
		writeServiceError(w, "Failed to add entry", err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, EntriesResponse{Status: "success", Entries: EntriesToDTO(entries), Message: "Entry added"})
}

// Commit godoc
// @Summary Apply edited rows and deletions
// @Tags Entries
// @Accept json
// @Produce json
// @Param changes body CommitRequest true "Edited rows and ids to delete"
// @Success 200 {object} EntriesResponse
// @Failure 400 {object} rest.ErrorResponse
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/commit [post]
// @Security XSessionId
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	log.Debug("Committing budget entry changes")
	var req CommitRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid changes", err.Error())
		return
	}

	edited := make([]BudgetEntry, 0, len(req.EditedRows))
	for _, dto := range req.EditedRows {
		edited = append(edited, DTOToEntry(dto))
	}
	entries, err := h.service.Commit(r.Context(), edited, req.DeleteIds)
	if err != nil {
		writeServiceError(w, "Failed to commit changes", err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, EntriesResponse{Status: "success", Entries: EntriesToDTO(entries), Message: "Changes saved"})
}

// Recalculate godoc
// @Summary Recalculate Sales and GP of all entries
// @Tags Entries
// @Produce json
// @Success 200 {object} EntriesResponse
// @Router /api/recalc [post]
// @Security XSessionId
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	log.Debug("Recalculating budget entries")
	entries, err := h.service.Recalculate(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to recalculate", err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, EntriesResponse{Status: "success", Entries: EntriesToDTO(entries), Message: "Recalculated"})
}

// UpdateEntry godoc
// @Summary Change a single field of an entry
// @Tags Entries
// @Accept json
// @Produce json
// @Param update body UpdateEntryRequest true "Field update"
// @Success 200 {object} EntriesResponse
// @Failure 400 {object} rest.ErrorResponse
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/update_entry [post]
// @Security XSessionId
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	log.Debug("Updating budget entry field")
	var req UpdateEntryRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid update", err.Error())
		return
	}

	entries, err := h.service.UpdateField(r.Context(), req.EntryId, req.Field, valueString(req.Value))
	if err != nil {
		writeServiceError(w, "Failed to update entry", err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, EntriesResponse{Status: "success", Entries: EntriesToDTO(entries), Message: "Entry updated"})
}

// ClearData godoc
// @Summary Delete all entries of the session
// @Tags Entries
// @Produce json
// @Success 200 {object} EntriesResponse
// @Router /api/clear_data [post]
// @Security XSessionId
func (h *Handler) ClearData(w http.ResponseWriter, r *http.Request) {
	log.Debug("Clearing budget entries")
	if err := h.service.Clear(r.Context()); err != nil {
		writeServiceError(w, "Failed to clear data", err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, EntriesResponse{Status: "success", Entries: []EntryDTO{}, Message: "All entries cleared"})
}

// LoadBudget godoc
// @Summary Replace the session's entries from an uploaded workbook
// @Tags Entries
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Budget workbook"
// @Param sheet formData string false "Sheet name" default(Budget)
// @Success 200 {object} EntriesResponse
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/load_budget [post]
// @Security XSessionId
func (h *Handler) LoadBudget(w http.ResponseWriter, r *http.Request) {
	log.Debug("Loading budget from upload")
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "No file provided", err.Error())
		return
	}
	defer file.Close()

	sheet := strings.TrimSpace(r.FormValue("sheet"))
	if sheet == "" {
		sheet = DefaultBudgetSheet
	}
	parsed, err := h.readBudget(file, sheet)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Failed to load budget", err.Error())
		return
	}
	entries, err := h.service.ReplaceAll(r.Context(), parsed)
	if err != nil {
		writeServiceError(w, "Failed to load budget", err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, EntriesResponse{
		Status:  "success",
		Entries: EntriesToDTO(entries),
		Message: fmt.Sprintf("Loaded %d entries from sheet %s", len(entries), sheet),
	})
}

// DownloadCurrent godoc
// @Summary Download the session's entries as a workbook
// @Tags Entries
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /api/download_current [get]
// @Security XSessionId
func (h *Handler) DownloadCurrent(w http.ResponseWriter, r *http.Request) {
	log.Debug("Exporting budget entries")
	entries, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to export entries", err)
		return
	}

	filename := ExportFileName(h.clock)
	w.Header().Set("Content-Type", spreadsheetMime)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := h.writeBudget(w, entries); err != nil {
		log.Errorf("failed to write export %s: %v", filename, err)
	}
}

// Rates godoc
// @Summary Get the reference currency and exchange rates
// @Tags Entries
// @Produce json
// @Success 200 {object} RatesResponse
// @Router /api/rates [get]
func (h *Handler) Rates(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, RatesResponse{
		ReferenceCurrency: h.rates.Reference(),
		Currencies:        h.rates.Currencies(),
		Rates:             h.rates.Rates(),
	})
}

// ExportFileName names an export after the current time, e.g. Budget_Export_20250131_142501.xlsx.
func ExportFileName(clock utils.Clock) string {
	return "Budget_Export_" + clock.Now().Format("20060102_150405") + ".xlsx"
}

func writeServiceError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, ErrInvalidEntry), errors.Is(err, ErrUnknownField), errors.Is(err, rest.ErrInvalidRequest):
		rest.WriteError(w, http.StatusBadRequest, message, err.Error())
	case errors.Is(err, ErrEntryNotFound):
		rest.WriteError(w, http.StatusNotFound, message, err.Error())
	default:
		log.Errorf("%s: %v", message, err)
		rest.WriteError(w, http.StatusInternalServerError, message, err.Error())
	}
}

func valueString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func AddRequestToEntry(req AddEntryRequest) BudgetEntry {
	month := req.Month
	if month == 0 {
		month = calculator.MonthNumber(req.MonthName)
	}
	return BudgetEntry{
		BusinessUnit:  strings.TrimSpace(req.BusinessUnit),
		Section:       strings.TrimSpace(req.Section),
		Client:        strings.TrimSpace(req.Client),
		Category:      strings.TrimSpace(req.Category),
		Product:       strings.TrimSpace(req.Product),
		Month:         month,
		Quantity:      req.Quantity,
		UnitPrice:     req.UnitPrice,
		MarginPercent: req.MarginPercent,
		ProfitPerTon:  req.ProfitPerTon,
		Sector:        strings.TrimSpace(req.Sector),
		Booked:        req.Booked,
		Currency:      strings.ToUpper(strings.TrimSpace(req.Currency)),
	}
}

func EntryToAddRequest(e BudgetEntry) AddEntryRequest {
	return AddEntryRequest{
		BusinessUnit:  e.BusinessUnit,
		Section:       e.Section,
		Client:        e.Client,
		Category:      e.Category,
		Product:       e.Product,
		Month:         e.Month,
		MonthName:     calculator.MonthName(e.Month),
		Quantity:      e.Quantity,
		UnitPrice:     e.UnitPrice,
		MarginPercent: e.MarginPercent,
		ProfitPerTon:  e.ProfitPerTon,
		Sector:        e.Sector,
		Booked:        e.Booked,
		Currency:      e.Currency,
	}
}

func EntriesToDTO(entries []BudgetEntry) []EntryDTO {
	dtos := make([]EntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, EntryToDTO(e))
	}
	return dtos
}

func EntryToDTO(e BudgetEntry) EntryDTO {
	return EntryDTO{
		Id:            e.Id,
		BusinessUnit:  e.BusinessUnit,
		Section:       e.Section,
		Client:        e.Client,
		Category:      e.Category,
		Product:       e.Product,
		Month:         e.Month,
		MonthName:     calculator.MonthName(e.Month),
		Quantity:      e.Quantity,
		UnitPrice:     e.UnitPrice,
		MarginPercent: e.MarginPercent,
		ProfitPerTon:  e.ProfitPerTon,
		Sales:         e.Sales,
		GrossProfit:   e.GrossProfit,
		Sector:        e.Sector,
		Booked:        e.Booked,
		Currency:      e.Currency,
	}
}

func DTOToEntry(dto EntryDTO) BudgetEntry {
	month := dto.Month
	if month == 0 && dto.MonthName != "" {
		month = calculator.MonthNumber(dto.MonthName)
	}
	return BudgetEntry{
		Id:            dto.Id,
		BusinessUnit:  dto.BusinessUnit,
		Section:       dto.Section,
		Client:        dto.Client,
		Category:      dto.Category,
		Product:       dto.Product,
		Month:         month,
		Quantity:      dto.Quantity,
		UnitPrice:     dto.UnitPrice,
		MarginPercent: dto.MarginPercent,
		ProfitPerTon:  dto.ProfitPerTon,
		Sales:         dto.Sales,
		GrossProfit:   dto.GrossProfit,
		Sector:        dto.Sector,
		Booked:        dto.Booked,
		Currency:      dto.Currency,
	}
}
