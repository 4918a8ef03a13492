package controllers

import (
	"net/http"

	"github.com/beloribh/belori-backend/api/responses"
	"github.com/beloribh/belori-backend/api/validators"
	"github.com/beloribh/belori-backend/internal/adminauth"
	pkgerrors "github.com/beloribh/belori-backend/pkg/errors"
	"github.com/beloribh/belori-backend/pkg/logger"
)

// AdminLogin authenticates a back office user and returns a bearer token.
func AdminLogin(svc adminauth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var payload adminauth.LoginInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
