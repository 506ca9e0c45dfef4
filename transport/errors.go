package transport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/schedulehq/go-connect/core"
)

type errorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

// writeError renders the rich envelope used on the authorization, key, and
// admin surfaces.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	mapped := core.ConnectErrorMapper(err)
	if mapped == nil {
		return
	}
	writeJSON(w, mapped.Code, map[string]any{
		"error": errorBody{
			Code:      mapped.TextCode,
			Message:   mapped.Message,
			Details:   mapped.Metadata,
			RequestID: middleware.GetReqID(r.Context()),
		},
	})
}

// writeConnectError renders the flat shape the redirect-adjacent connect
// routes keep: { "error": "<message>" } with the mapped status code.
func writeConnectError(w http.ResponseWriter, err error) {
	mapped := core.ConnectErrorMapper(err)
	if mapped == nil {
		return
	}
	writeJSON(w, mapped.Code, map[string]any{"error": mapped.Message})
}
