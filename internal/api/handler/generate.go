package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/a1gen/internal/a1"
	"github.com/kiranshivaraju/a1gen/internal/api/response"
	"github.com/kiranshivaraju/a1gen/internal/generation"
	"github.com/kiranshivaraju/a1gen/internal/media"
	"github.com/kiranshivaraju/a1gen/pkg/models"
	"github.com/rs/zerolog"
)

// maxRequestBytes bounds JSON and multipart request bodies.
const maxRequestBytes = 32 << 20

// Generator defines the interface the generate handler depends on.
type Generator interface {
	Submit(ctx context.Context, req generation.Request) (*generation.Outcome, error)
}

// ProfileLookup resolves profile names to connection profiles.
type ProfileLookup interface {
	Lookup(name string) (models.Profile, bool)
	Default() string
	Names() []string
}

// GenerateRequest is the JSON body of POST /api/v1/generate.
type GenerateRequest struct {
	Profile     string `json:"profile"`
	ImageBase64 string `json:"image_base64"`
	Image       string `json:"image"`
	Description string `json:"description"`
	UserID      string `json:"user_id"`
}

// GenerateResult is returned on success.
type GenerateResult struct {
	Status       string      `json:"status"`
	TaskID       string      `json:"task_id"`
	Images       []string    `json:"images"`
	Raw          a1.Document `json:"raw"`
	PollFailures int         `json:"poll_failures"`
}

// NewGenerateHandler returns an http.HandlerFunc for POST /api/v1/generate.
// It accepts a JSON body or a multipart form with a "file" part.
func NewGenerateHandler(svc Generator, profiles ProfileLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

		req, img, ok := parseGenerateRequest(w, r)
		if !ok {
			return
		}

		profileName := req.Profile
		if profileName == "" {
			profileName = profiles.Default()
		}
		profile, found := profiles.Lookup(profileName)
		if !found {
			response.Error(w, http.StatusBadRequest, "UNKNOWN_PROFILE",
				fmt.Sprintf("Unknown profile: %s", profileName), nil)
			return
		}

		out, err := svc.Submit(r.Context(), generation.Request{
			Image:       img,
			Description: req.Description,
			Profile:     profile,
			UserID:      historyUserID(req.UserID, profile.Name),
		})
		if err != nil && !errors.Is(err, generation.ErrHistoryWrite) {
			writeGenerateError(w, out, err)
			return
		}
		if err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Str("task_id", out.TaskID).Msg("generation succeeded without history")
		}

		images := out.ResultImages
		if images == nil {
			images = []string{}
		}
		response.JSON(w, GenerateResult{
			Status:       out.StatusText,
			TaskID:       out.TaskID,
			Images:       images,
			Raw:          out.Raw,
			PollFailures: out.PollFailures,
		})
	}
}

// historyUserID scopes history by caller and profile. Callers without their
// own id share the per-profile API history.
func historyUserID(userID, profile string) string {
	if userID == "" {
		return "api-" + profile
	}
	return userID + ":" + profile
}

func parseGenerateRequest(w http.ResponseWriter, r *http.Request) (GenerateRequest, image.Image, bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return parseMultipart(w, r)
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return req, nil, false
	}

	data := req.ImageBase64
	if data == "" {
		data = req.Image
	}
	if strings.TrimSpace(data) == "" {
		response.Error(w, http.StatusBadRequest, "IMAGE_REQUIRED", "image_base64 is required", nil)
		return req, nil, false
	}

	img, err := media.Decode(data)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_IMAGE", fmt.Sprintf("Invalid image_base64: %v", err), nil)
		return req, nil, false
	}
	return req, img, true
}

func parseMultipart(w http.ResponseWriter, r *http.Request) (GenerateRequest, image.Image, bool) {
	req := GenerateRequest{}
	if err := r.ParseMultipartForm(maxRequestBytes); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid multipart body", nil)
		return req, nil, false
	}
	req.Profile = r.FormValue("profile")
	req.Description = r.FormValue("description")
	req.UserID = r.FormValue("user_id")

	file, _, err := r.FormFile("file")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "IMAGE_REQUIRED", "file is required", nil)
		return req, nil, false
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Could not read file", nil)
		return req, nil, false
	}
	img, err := media.DecodeBytes(raw)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_IMAGE", fmt.Sprintf("Invalid file: %v", err), nil)
		return req, nil, false
	}
	return req, img, true
}

func writeGenerateError(w http.ResponseWriter, out *generation.Outcome, err error) {
	var details response.UpstreamDetails
	if out != nil {
		details.Status = out.StatusText
		if out.Raw != nil {
			details.Raw = out.Raw
		}
	}

	switch {
	case errors.Is(err, generation.ErrEmptyInput):
		response.Error(w, http.StatusBadRequest, "IMAGE_REQUIRED", generation.EmptyInputMessage, nil)
	case errors.Is(err, a1.ErrUpload):
		response.Upstream(w, "UPLOAD_FAILED", err.Error(), details)
	case errors.Is(err, a1.ErrSubmit):
		response.Upstream(w, "SUBMIT_FAILED", err.Error(), details)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Generation failed", nil)
	}
}
