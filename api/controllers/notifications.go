package controllers

import (
	"net/http"

	"github.com/shopmesh/shopmesh-backend/api/responses"
	"github.com/shopmesh/shopmesh-backend/api/validators"
	notifysvc "github.com/shopmesh/shopmesh-backend/internal/notifications"
	"github.com/shopmesh/shopmesh-backend/pkg/logger"
)

// SendNotification enqueues a notification. Acceptance means the broker has
// the message; delivery is the workers' job.
func SendNotification(svc *notifysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload notifysvc.SendInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Send(r.Context(), userID, payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "queued"})
	}
}

func ListNotifications(svc *notifysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, err := svc.History(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, records)
	}
}
