package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "clavis/pkg/domain-errors"
	"clavis/pkg/requestcontext"
)

// errorResponse is the JSON error envelope. The description is always the
// sanitized public message; internal detail stays in the logs.
type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
	RequestID   string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError translates a domain error into its HTTP shape. Unknown errors
// collapse to 500 so nothing internal leaks by accident.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)
	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "900")
	}
	writeJSON(w, status, errorResponse{
		Error:       string(code),
		Description: publicDescription(err, code),
		RequestID:   requestcontext.RequestID(r.Context()),
	})
}

// publicDescription picks the client-facing message. Auth and internal codes
// get their fixed sanitized text; validation-style codes carry messages written
// for clients, so those pass through.
func publicDescription(err error, code dErrors.Code) string {
	if msg := dErrors.PublicMessage(code); msg != "" {
		return msg
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return ""
}
