package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/beloribh/belori-backend/api/responses"
	pkgerrors "github.com/beloribh/belori-backend/pkg/errors"
	"github.com/beloribh/belori-backend/pkg/logger"
	"github.com/beloribh/belori-backend/pkg/types"
)

type cepResolver interface {
	Lookup(ctx context.Context, postalCode string) (*types.Address, error)
}

// CEPLookup resolves a CEP into a street address so the checkout form can
// prefill everything but the number.
func CEPLookup(resolver cepResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resolver == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cep resolver unavailable"))
			return
		}

		cep := strings.TrimSpace(chi.URLParam(r, "cep"))
		if cep == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cep is required"))
			return
		}

		address, err := resolver.Lookup(r.Context(), cep)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, address)
	}
}
