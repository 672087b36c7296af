package falai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx answer from the queue API.
type APIError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int
	// BodyStatus is the "status" field some error bodies carry.
	BodyStatus int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fal: http %d: %s", e.StatusCode, e.Message)
}

// Status is the status to surface to clients: the HTTP status, else the
// body's, else 500.
func (e *APIError) Status() int {
	switch {
	case e.StatusCode != 0:
		return e.StatusCode
	case e.BodyStatus != 0:
		return e.BodyStatus
	default:
		return http.StatusInternalServerError
	}
}

// AuthFailure reports a 403, either as the HTTP status or nested in the body.
func (e *APIError) AuthFailure() bool {
	return e.StatusCode == http.StatusForbidden || e.BodyStatus == http.StatusForbidden
}

type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Status  int             `json:"status"`
}

type validationDetail struct {
	Msg string `json:"msg"`
	Loc []any  `json:"loc"`
}

func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		apiErr.BodyStatus = eb.Status
		apiErr.Message = detailMessage(eb.Detail)
		if apiErr.Message == "" {
			apiErr.Message = eb.Message
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
		if len(apiErr.Message) > 512 {
			apiErr.Message = apiErr.Message[:512]
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(statusCode)
	}
	return apiErr
}

// detailMessage flattens "detail", which is either a string or a list of
// validation errors.
func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var list []validationDetail
	if err := json.Unmarshal(raw, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, d := range list {
			if d.Msg == "" {
				continue
			}
			if len(d.Loc) > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", d.Loc[len(d.Loc)-1], d.Msg))
			} else {
				msgs = append(msgs, d.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return string(raw)
}
