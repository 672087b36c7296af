package handlers

import (
	"net/http"
	"strings"

	"lipsync/internal/httpkit"
	"lipsync/internal/pkg/errors"
)

type webhookPayload struct {
	SyncedVideoURL string `json:"syncedVideoUrl"`
}

type webhookResponse struct {
	Message string `json:"message"`
	Matched bool   `json:"matched"`
}

// FalWebhook records a synced video URL reported by the provider's callback
// on the newest record still missing one. The sender is not authenticated.
func (h *Handler) FalWebhook(w http.ResponseWriter, r *http.Request) error {
	limitBody(w, r)

	var p webhookPayload
	if err := httpkit.DecodeJSON(r, &p); err != nil || strings.TrimSpace(p.SyncedVideoURL) == "" {
		return errors.Validation("Missing syncedVideoUrl in webhook payload")
	}

	matched, err := h.flow.CompleteLatest(r.Context(), strings.TrimSpace(p.SyncedVideoURL))
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeInternal, "handlers.FalWebhook", "Failed to process webhook")
	}
	if !matched {
		h.log.FromContext(r.Context()).Warn("webhook matched no pending record",
			"synced_video_url", p.SyncedVideoURL,
		)
	}

	httpkit.WriteJSON(w, http.StatusOK, webhookResponse{
		Message: "Webhook processed successfully",
		Matched: matched,
	})
	return nil
}
