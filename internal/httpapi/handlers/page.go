package handlers

import (
	"net/http"

	"lipsync/internal/pkg/errors"
	"lipsync/internal/web"
)

// Page serves the upload page.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) error {
	if err := web.Render(w, web.DefaultPageData(h.uploadcare)); err != nil {
		return errors.Wrap(err, "handlers.Page", "failed to render page")
	}
	return nil
}
