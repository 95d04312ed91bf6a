package handler

import (
	"net/http"

	"github.com/kiranshivaraju/a1gen/internal/api/response"
)

// NewProfilesHandler returns an http.HandlerFunc for GET /api/v1/profiles.
// API keys are never included.
func NewProfilesHandler(profiles ProfileLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, map[string]any{
			"profiles": profiles.Names(),
			"default":  profiles.Default(),
		})
	}
}
