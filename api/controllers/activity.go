package controllers

import (
	"net/http"

	"github.com/angelmondragon/rosterhub-backend/api/middleware"
	"github.com/angelmondragon/rosterhub-backend/api/responses"
	"github.com/angelmondragon/rosterhub-backend/api/validators"
	"github.com/angelmondragon/rosterhub-backend/internal/audit"
	pkgerrors "github.com/angelmondragon/rosterhub-backend/pkg/errors"
	"github.com/angelmondragon/rosterhub-backend/pkg/logger"
	"github.com/angelmondragon/rosterhub-backend/pkg/pagination"
)

const maxSearchLen = 200

// ListActivity returns the team's activity history, newest first.
func ListActivity(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activity service unavailable"))
			return
		}
		teamID := middleware.TeamIDFromContext(r.Context())
		if teamID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "team scope required"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		onDate, err := validators.ParseQueryDate(r, "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := audit.Filters{
			Search: validators.SanitizeString(r.URL.Query().Get("search"), maxSearchLen),
			OnDate: onDate,
		}
		resp, err := svc.ListByScope(r.Context(), teamID, filters, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}
