package handlers

import (
	"net/http"

	"lipsync/internal/adapters/mediahost"
	"lipsync/internal/httpkit"
	"lipsync/internal/pkg/errors"
	"lipsync/internal/ports"
	"lipsync/internal/syncflow"
)

const (
	msgInvalidBody = "Invalid request body"
	msgDBConnect   = "Failed to connect to database"
	msgAuthFailed  = "Authentication failed with FAL AI service. Please check your API credentials."
	msgSyncFailed  = "Failed to upload files or synchronize lipsync"
)

// UploadAndSync re-hosts the posted audio and video, runs lip-sync on them
// and records the result.
func (h *Handler) UploadAndSync(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r)

	var in syncflow.Input
	if err := httpkit.DecodeJSON(r, &in); err != nil {
		httpkit.WriteErr(w, http.StatusBadRequest, msgInvalidBody, err.Error())
		return
	}
	if err := in.Validate(); err != nil {
		var coded *errors.Error
		details := err.Error()
		if errors.As(err, &coded) {
			details = coded.Message
		}
		httpkit.WriteErr(w, http.StatusBadRequest, msgInvalidBody, details)
		return
	}

	h.log.FromContext(r.Context()).Info("upload and sync requested",
		"audio", in.AudioURL,
		"video", in.VideoURL,
	)

	res, err := h.flow.Run(r.Context(), in)
	if err != nil {
		h.writeSyncError(w, r, err)
		return
	}

	httpkit.WriteJSON(w, http.StatusOK, res)
}

// writeSyncError maps a failed step to its response. Upload failures are
// always 500; inference failures repeat the provider's status.
func (h *Handler) writeSyncError(w http.ResponseWriter, r *http.Request, err error) {
	details := err.Error()
	var coded *errors.Error
	if errors.As(err, &coded) {
		details = coded.Cause()
	}

	op := errors.GetOp(err)
	h.log.LogError(r.Context(), "upload and sync failed", err, "op", op)

	switch op {
	case syncflow.OpConnect:
		httpkit.WriteErr(w, http.StatusInternalServerError, msgDBConnect, details)

	case syncflow.OpUpload:
		httpkit.WriteErr(w, http.StatusInternalServerError,
			"Failed to upload files to "+mediahost.DisplayName(h.flow.HostName()), details)

	case syncflow.OpInference:
		var pe ports.ProviderError
		if errors.As(err, &pe) {
			if pe.AuthFailure() {
				httpkit.WriteErr(w, http.StatusForbidden, msgAuthFailed, details)
				return
			}
			status := pe.Status()
			if status < 400 || status > 599 {
				status = http.StatusInternalServerError
			}
			httpkit.WriteErrBody(w, status, httpkit.ErrorBody{Error: msgSyncFailed, Details: details, Status: status})
			return
		}
		fallthrough

	default:
		httpkit.WriteErrBody(w, http.StatusInternalServerError, httpkit.ErrorBody{
			Error:   msgSyncFailed,
			Details: details,
			Status:  http.StatusInternalServerError,
		})
	}
}
