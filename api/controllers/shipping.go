package controllers

import (
	"net/http"
	"strings"

	"github.com/beloribh/belori-backend/api/responses"
	"github.com/beloribh/belori-backend/internal/shipping"
	pkgerrors "github.com/beloribh/belori-backend/pkg/errors"
	"github.com/beloribh/belori-backend/pkg/logger"
)

// ShippingQuote returns both delivery options for a destination.
func ShippingQuote(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := strings.TrimSpace(r.URL.Query().Get("state"))
		postalCode := strings.TrimSpace(r.URL.Query().Get("postal_code"))
		if state == "" && postalCode == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "state or postal_code is required"))
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"quotes": shipping.Estimate(state, postalCode),
		})
	}
}
