package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hartleydigital/portal-api/internal/domain"
	"github.com/hartleydigital/portal-api/internal/service"

	"go.uber.org/zap"
)

// contactHandler accepts the public marketing-site contact form.
// POST /v1/contact
func contactHandler(svc *service.ContactService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/contact")
		defer span.End()

		var sub domain.ContactSubmission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := svc.Submit(ctx, &sub); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{
			"message": "Thanks for reaching out! We'll get back to you within one business day.",
		})
	}
}
