package response

import (
	"encoding/json"
	"net/http"
)

type envelope struct {
	Data any `json:"data"`
}

type collectionEnvelope struct {
	Data any            `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type PaginationMeta struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasNext bool `json:"has_next"`
}

func JSON(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Data: data})
}


func Collection(w http.ResponseWriter, data any, meta PaginationMeta) {
	writeJSON(w, http.StatusOK, collectionEnvelope{Data: data, Meta: meta})
}

func Error(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

// Degraded reports failed dependency checks as 503 DEGRADED, keyed by service name.
func Degraded(w http.ResponseWriter, services map[string]string) {
	Error(w, http.StatusServiceUnavailable, "DEGRADED", "One or more services degraded", services)
}

// UpstreamDetails accompany a failed call to the image API: the status text
// shown to the user and the raw response, {} when none was received.
type UpstreamDetails struct {
	Status string `json:"status"`
	Raw    any    `json:"raw"`
}

// Upstream writes a 502 for a failed call to the image API.
func Upstream(w http.ResponseWriter, code, message string, details UpstreamDetails) {
	if details.Raw == nil {
		details.Raw = map[string]any{}
	}
	Error(w, http.StatusBadGateway, code, message, details)
}

// Result URLs carry query strings, so HTML escaping stays off.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}
