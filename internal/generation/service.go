// Package generation runs one image generation end to end: upload, task
// creation, polling and history recording.
package generation

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kiranshivaraju/a1gen/internal/a1"
	"github.com/kiranshivaraju/a1gen/internal/history"
	"github.com/kiranshivaraju/a1gen/internal/media"
	"github.com/kiranshivaraju/a1gen/internal/poller"
	"github.com/kiranshivaraju/a1gen/pkg/models"
	"github.com/rs/zerolog"
)

// Request is one generation submission. It is not modified by Submit.
type Request struct {
	Image       image.Image
	Description string
	Profile     models.Profile
	UserID      string
}

// Outcome is what a caller renders after a submission.
type Outcome struct {
	StatusText   string
	TaskID       string
	ResultImages []string
	Raw          a1.Document
	Entry        *models.HistoryEntry
	PollFailures int
}

// Tracker polls a created task to completion or timeout.
type Tracker interface {
	Poll(ctx context.Context, taskID, apiKey string) poller.Outcome
}

// Service sequences the generation pipeline.
type Service struct {
	client   a1.Client
	tracker  Tracker
	store    history.Store
	defaults models.Profile
	imageDir string
	now      func() time.Time
	logger   zerolog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithImageDir sets where input images are archived, one directory per user.
// An empty dir disables archiving.
func WithImageDir(dir string) Option {
	return func(s *Service) { s.imageDir = dir }
}

// WithClock replaces the wall clock used for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service. defaults fills blank profile fields of each request.
func NewService(client a1.Client, tracker Tracker, store history.Store, defaults models.Profile, opts ...Option) *Service {
	s := &Service{
		client:   client,
		tracker:  tracker,
		store:    store,
		defaults: defaults,
		imageDir: "history",
		now:      time.Now,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit runs the pipeline for req. A non-nil Outcome is always returned,
// carrying the user-facing status text even when err is set. Polling that
// times out is not an error: a history entry is still written.
func (s *Service) Submit(ctx context.Context, req Request) (*Outcome, error) {
	if req.Image == nil {
		return &Outcome{StatusText: EmptyInputMessage, Raw: a1.Document{}}, ErrEmptyInput
	}

	log := s.logger.With().Str("user_id", req.UserID).Logger()
	profile := req.Profile.WithDefaults(s.defaults)

	started := s.now()
	timestamp := models.FormatTimestamp(started)

	png, err := media.EncodePNG(req.Image)
	if err != nil {
		return &Outcome{StatusText: err.Error(), Raw: a1.Document{}}, err
	}

	inputPath := s.archiveInput(req.UserID, timestamp, png, log)

	uploaded, err := s.client.UploadImage(ctx, png, profile.APIKey)
	if err != nil {
		log.Warn().Err(err).Msg("image upload failed")
		return &Outcome{StatusText: err.Error(), Raw: a1.Document{}}, err
	}

	payload := buildPayload(profile, s.defaults, uploaded, req.Description)
	taskID, created, err := s.client.CreateTask(ctx, payload, profile.APIKey)
	if err != nil {
		log.Warn().Err(err).Msg("task creation failed")
		raw := created
		var subErr *a1.SubmitError
		if errors.As(err, &subErr) && subErr.Response != nil {
			raw = subErr.Response
		}
		if raw == nil {
			raw = a1.Document{}
		}
		return &Outcome{StatusText: err.Error(), Raw: raw}, err
	}

	log = log.With().Str("task_id", taskID).Logger()
	log.Info().Msg("task submitted, polling")

	polled := s.tracker.Poll(ctx, taskID, profile.APIKey)

	status := polled.Status
	if status == "" {
		status = models.StatusUnknown
	}
	entry := models.HistoryEntry{
		Timestamp:    timestamp,
		TaskID:       taskID,
		Status:       status,
		InputImage:   inputPath,
		ResultImages: append([]string{}, polled.Images...),
	}

	out := &Outcome{
		TaskID:       taskID,
		Raw:          polled.Raw,
		Entry:        &entry,
		PollFailures: polled.FailedTicks,
	}
	if len(polled.Images) > 0 {
		out.ResultImages = polled.Images
		out.StatusText = fmt.Sprintf("Task %s submitted and polling completed.", taskID)
	} else {
		out.StatusText = fmt.Sprintf("Task %s submitted; no results observed, check the raw response.", taskID)
	}

	log.Info().
		Str("status", status).
		Bool("terminal", polled.Terminal).
		Int("images", len(polled.Images)).
		Int("poll_failures", polled.FailedTicks).
		Dur("elapsed", s.now().Sub(started)).
		Msg("generation finished")

	// The entry is recorded even if the caller has gone away.
	if err := s.store.Append(context.WithoutCancel(ctx), req.UserID, entry); err != nil {
		log.Error().Err(err).Msg("failed to record history entry")
		return out, fmt.Errorf("%w: %v", ErrHistoryWrite, err)
	}

	return out, nil
}

// List returns the recorded entries for userID, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]models.HistoryEntry, error) {
	return s.store.List(ctx, userID)
}

// buildPayload assembles the task creation body. The cnet path prefers the
// uploaded path, then the profile's, then the configured default.
func buildPayload(profile, defaults models.Profile, uploaded a1.UploadResult, description string) a1.TaskPayload {
	cnetPath := uploaded.Path
	if cnetPath == "" {
		cnetPath = profile.CnetPath
	}
	if cnetPath == "" {
		cnetPath = defaults.CnetPath
	}

	return a1.TaskPayload{
		AppID:     profile.AppID,
		VersionID: profile.VersionID,
		Cnet: []a1.CnetRef{{
			ID:       profile.CnetID,
			ImageURL: uploaded.ImageURL,
			Path:     cnetPath,
		}},
		Description: a1.Descriptions(description),
		GenerateNum: 1,
	}
}

// archiveInput stores the input PNG under <imageDir>/<userID>/<timestamp>.png
// and returns its path. Failures are logged only; the path is still returned
// so the history entry records where the image was meant to be.
func (s *Service) archiveInput(userID, timestamp string, png []byte, log zerolog.Logger) string {
	if s.imageDir == "" {
		return ""
	}
	dir := filepath.Join(s.imageDir, safePathSegment(userID))
	path := filepath.Join(dir, strings.ReplaceAll(timestamp, ":", "-")+".png")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not archive input image")
		return path
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not archive input image")
	}
	return path
}

// safePathSegment keeps a user id from escaping the image directory.
func safePathSegment(userID string) string {
	seg := strings.NewReplacer("/", "_", "\\", "_").Replace(userID)
	if seg == "" || seg == "." || seg == ".." {
		return "anonymous"
	}
	return seg
}
