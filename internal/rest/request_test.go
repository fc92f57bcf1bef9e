package rest

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type sampleRequest struct {
	Name  string  `json:"name" validate:"required"`
	Month int     `json:"month" validate:"min=1,max=12"`
	Kind  string  `json:"kind" validate:"omitempty,oneof=client product"`
	Qty   float64 `json:"qty"`
}

func TestDecodeJSON(t *testing.T) {
	t.Run("should decode a valid body", func(t *testing.T) {
		// given
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"x","month":3,"qty":1.5}`))
		var body sampleRequest

		// when
		err := DecodeJSON(req, &body)

		// then
		assert.NoError(t, err)
		assert.Equal(t, 3, body.Month)
	})

	t.Run("should reject malformed json", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":`))
		err := DecodeJSON(req, &sampleRequest{})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("should describe every failed rule", func(t *testing.T) {
		// given
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"month":13,"kind":"other"}`))

		// when
		err := DecodeJSON(req, &sampleRequest{})

		// then
		assert.ErrorIs(t, err, ErrInvalidRequest)
		assert.Contains(t, err.Error(), "Name is required")
		assert.Contains(t, err.Error(), "Month must be at most 12")
		assert.Contains(t, err.Error(), "Kind must be one of [client product]")
	})
}
