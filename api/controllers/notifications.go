package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/rosterhub-backend/api/middleware"
	"github.com/angelmondragon/rosterhub-backend/api/responses"
	"github.com/angelmondragon/rosterhub-backend/api/validators"
	"github.com/angelmondragon/rosterhub-backend/internal/notifications"
	pkgerrors "github.com/angelmondragon/rosterhub-backend/pkg/errors"
	"github.com/angelmondragon/rosterhub-backend/pkg/logger"
	"github.com/angelmondragon/rosterhub-backend/pkg/pagination"
	"github.com/google/uuid"
)

// ListNotifications returns the caller's notifications, newest first.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := requireOwner(w, r, svc != nil, logg)
		if !ok {
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unreadOnly")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.List(r.Context(), notifications.ListParams{
			OwnerID:    ownerID,
			Limit:      limit,
			Cursor:     r.URL.Query().Get("cursor"),
			UnreadOnly: unreadOnly,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// UnreadNotificationCount returns the badge count for the caller.
func UnreadNotificationCount(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := requireOwner(w, r, svc != nil, logg)
		if !ok {
			return
		}
		count, err := svc.UnreadCount(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"unread": count})
	}
}

// MarkNotificationRead marks one notification read. Unknown ids succeed.
func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return setNotificationRead(svc, logg, true)
}

// MarkNotificationUnread marks one notification unread. Unknown ids succeed.
func MarkNotificationUnread(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return setNotificationRead(svc, logg, false)
}

func setNotificationRead(svc notifications.Service, logg *logger.Logger, read bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := requireOwner(w, r, svc != nil, logg)
		if !ok {
			return
		}
		id, ok := notificationID(w, r, logg)
		if !ok {
			return
		}
		if err := svc.SetRead(r.Context(), ownerID, id, read); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"read": read})
	}
}

// MarkAllNotificationsRead marks every unread notification of the caller read.
func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := requireOwner(w, r, svc != nil, logg)
		if !ok {
			return
		}
		count, err := svc.SetAllRead(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": count})
	}
}

// DeleteNotification hard-deletes one notification. Unknown ids succeed.
func DeleteNotification(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := requireOwner(w, r, svc != nil, logg)
		if !ok {
			return
		}
		id, ok := notificationID(w, r, logg)
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), ownerID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func requireOwner(w http.ResponseWriter, r *http.Request, wired bool, logg *logger.Logger) (string, bool) {
	if !wired {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "service unavailable"))
		return "", false
	}
	ownerID := middleware.UserIDFromContext(r.Context())
	if ownerID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return "", false
	}
	return ownerID, true
}

func notificationID(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	id, err := validators.ParseUUID(chi.URLParam(r, "notificationId"), "notificationId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, false
	}
	return id, true
}
