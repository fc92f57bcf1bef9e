package masterdata

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/klokku/salesbudget/internal/rest"
	log "github.com/sirupsen/logrus"
)

type ClientDTO struct {
	Name         string `json:"name"`
	BusinessUnit string `json:"business_unit,omitempty"`
}

type ProductDTO struct {
	Name             string   `json:"name" validate:"required"`
	Category         string   `json:"category"`
	BusinessUnit     string   `json:"business_unit,omitempty"`
	DefaultUnitPrice *float64 `json:"default_pmt,omitempty" validate:"omitempty,gte=0"`
	DefaultMargin    *float64 `json:"default_gm_percent,omitempty"`
}

type MastersDTO struct {
	Clients  []ClientDTO  `json:"clients"`
	Products []ProductDTO `json:"products"`
}

// AddMasterRequest carries either a new client name or a new product.
type AddMasterRequest struct {
	NewClient    string      `json:"new_client,omitempty" validate:"required_without=NewProduct"`
	BusinessUnit string      `json:"business_unit,omitempty"`
	NewProduct   *ProductDTO `json:"new_product,omitempty"`
}

type MastersResponse struct {
	Status  string     `json:"status"`
	Masters MastersDTO `json:"masters"`
	Message string     `json:"message,omitempty"`
}

// MastersReader parses an uploaded masters workbook.
type MastersReader func(r io.Reader) (Masters, error)

type Handler struct {
	service        Service
	readMasters    MastersReader
	maxUploadBytes int64
}

func NewHandler(service Service, readMasters MastersReader, maxUploadBytes int64) *Handler {
	return &Handler{service: service, readMasters: readMasters, maxUploadBytes: maxUploadBytes}
}

// AddMaster godoc
// @Summary Add a client or a product to the session's master data
// @Tags MasterData
// @Accept json
// @Produce json
// @Param master body AddMasterRequest true "New client or product"
// @Success 200 {object} MastersResponse
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/add_master [post]
// @Security XSessionId
func (h *Handler) AddMaster(w http.ResponseWriter, r *http.Request) {
	log.Debug("Adding master data")
	var req AddMasterRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid master data", err.Error())
		return
	}

	var (
		masters Masters
		err     error
		message string
	)
	if req.NewProduct != nil {
		masters, err = h.service.AddProduct(r.Context(), DTOToProduct(*req.NewProduct))
		message = "Product added successfully"
	} else {
		masters, err = h.service.AddClient(r.Context(), Client{Name: req.NewClient, BusinessUnit: req.BusinessUnit})
		message = "Client added successfully"
	}
	if err != nil {
		writeServiceError(w, "Failed to add master data", err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, MastersResponse{Status: "success", Masters: MastersToDTO(masters), Message: message})
}

// LoadMasters godoc
// @Summary Replace the session's master data from an uploaded workbook
// @Description The workbook needs a Clients and a Products sheet
// @Tags MasterData
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Masters workbook"
// @Success 200 {object} MastersResponse
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/load_masters [post]
// @Security XSessionId
func (h *Handler) LoadMasters(w http.ResponseWriter, r *http.Request) {
	log.Debug("Loading master data from upload")
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "No file provided", err.Error())
		return
	}
	defer file.Close()

	parsed, err := h.readMasters(file)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Failed to load master data", err.Error())
		return
	}
	masters, err := h.service.Replace(r.Context(), parsed)
	if err != nil {
		writeServiceError(w, "Failed to load master data", err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, MastersResponse{
		Status:  "success",
		Masters: MastersToDTO(masters),
		Message: "Master data loaded successfully into your session",
	})
}

func writeServiceError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, ErrInvalidMaster), errors.Is(err, ErrDuplicateMaster):
		rest.WriteError(w, http.StatusBadRequest, message, err.Error())
	default:
		log.Errorf("%s: %v", message, err)
		rest.WriteError(w, http.StatusInternalServerError, message, err.Error())
	}
}

func MastersToDTO(m Masters) MastersDTO {
	dto := MastersDTO{
		Clients:  make([]ClientDTO, 0, len(m.Clients)),
		Products: make([]ProductDTO, 0, len(m.Products)),
	}
	for _, c := range m.Clients {
		dto.Clients = append(dto.Clients, ClientDTO{Name: c.Name, BusinessUnit: c.BusinessUnit})
	}
	for _, p := range m.Products {
		dto.Products = append(dto.Products, ProductToDTO(p))
	}
	return dto
}

func DTOToMasters(dto MastersDTO) Masters {
	m := Masters{
		Clients:  make([]Client, 0, len(dto.Clients)),
		Products: make([]Product, 0, len(dto.Products)),
	}
	for _, c := range dto.Clients {
		m.Clients = append(m.Clients, Client{Name: c.Name, BusinessUnit: c.BusinessUnit})
	}
	for _, p := range dto.Products {
		m.Products = append(m.Products, DTOToProduct(p))
	}
	return m
}

func ProductToDTO(p Product) ProductDTO {
	return ProductDTO{
		Name:             p.Name,
		Category:         p.Category,
		BusinessUnit:     p.BusinessUnit,
		DefaultUnitPrice: p.DefaultUnitPrice,
		DefaultMargin:    p.DefaultMargin,
	}
}

func DTOToProduct(dto ProductDTO) Product {
	return Product{
		Name:             strings.TrimSpace(dto.Name),
		Category:         strings.TrimSpace(dto.Category),
		BusinessUnit:     strings.TrimSpace(dto.BusinessUnit),
		DefaultUnitPrice: dto.DefaultUnitPrice,
		DefaultMargin:    dto.DefaultMargin,
	}
}
