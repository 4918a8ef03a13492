package controllers

import (
	"net/http"
	"strings"

	"github.com/beloribh/belori-backend/api/responses"
	"github.com/beloribh/belori-backend/api/validators"
	checkoutsvc "github.com/beloribh/belori-backend/internal/checkout"
	pkgerrors "github.com/beloribh/belori-backend/pkg/errors"
	"github.com/beloribh/belori-backend/pkg/logger"
)

// Checkout places an order and returns the Mercado Pago redirect.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutsvc.Input
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.IdempotencyKey = strings.TrimSpace(r.Header.Get("Idempotency-Key"))

		result, err := svc.Checkout(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
