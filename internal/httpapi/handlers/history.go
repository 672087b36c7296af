package handlers

import (
	"net/http"

	"lipsync/internal/httpkit"
	"lipsync/internal/pkg/errors"
)

// History lists every sync record.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) error {
	records, err := h.flow.History(r.Context())
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeInternal, "handlers.History", "Failed to fetch history")
	}
	httpkit.WriteJSON(w, http.StatusOK, records)
	return nil
}
