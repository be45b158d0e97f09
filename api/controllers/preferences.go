package controllers

import (
	"net/http"

	"github.com/angelmondragon/rosterhub-backend/api/responses"
	"github.com/angelmondragon/rosterhub-backend/api/validators"
	"github.com/angelmondragon/rosterhub-backend/internal/preferences"
	pkgerrors "github.com/angelmondragon/rosterhub-backend/pkg/errors"
	"github.com/angelmondragon/rosterhub-backend/pkg/logger"
)

// GetPreferences returns the caller's toggles, or the all-enabled defaults.
func GetPreferences(svc preferences.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireOwner(w, r, svc != nil, logg)
		if !ok {
			return
		}
		set, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, set)
	}
}

// UpdatePreferences merges the provided toggles into the caller's set.
func UpdatePreferences(svc preferences.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireOwner(w, r, svc != nil, logg)
		if !ok {
			return
		}

		var patch preferences.Patch
		if err := validators.DecodeJSONBody(r, &patch); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if patch.IsEmpty() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "at least one preference is required"))
			return
		}

		set, err := svc.Update(r.Context(), userID, patch)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, set)
	}
}
