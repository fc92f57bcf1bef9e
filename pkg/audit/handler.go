package audit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/klokku/salesbudget/internal/rest"
	log "github.com/sirupsen/logrus"
)

type RecordDTO struct {
	Action    string    `json:"action"`
	Count     int       `json:"count"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// List godoc
// @Summary List recent changes of the session, newest first
// @Tags Audit
// @Produce json
// @Param limit query int false "Maximum number of records" default(50)
// @Success 200 {array} RecordDTO
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/audit [get]
// @Security XSessionId
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log.Debug("Listing audit records")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			rest.WriteError(w, http.StatusBadRequest, "Invalid limit", raw)
			return
		}
		limit = parsed
	}

	records, err := h.service.List(r.Context(), limit)
	if err != nil {
		log.Errorf("Failed to list audit records: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Failed to list audit records", err.Error())
		return
	}
	dtos := make([]RecordDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, RecordDTO{Action: rec.Action, Count: rec.Count, Detail: rec.Detail, CreatedAt: rec.CreatedAt})
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}
