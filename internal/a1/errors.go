package a1

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors for a1.art client failures.
var (
	ErrUpload        = errors.New("image upload failed")
	ErrSubmit        = errors.New("task creation failed")
	ErrPollTransport = errors.New("task poll unreachable")
	ErrPollNotJSON   = errors.New("task poll response is not JSON")
)

// UploadReason distinguishes the ways an upload can fail.
type UploadReason int

const (
	UploadTransport UploadReason = iota + 1
	UploadNotJSON
	UploadRejected
	UploadMissingFields
)

func (r UploadReason) String() string {
	switch r {
	case UploadTransport:
		return "transport"
	case UploadNotJSON:
		return "not_json"
	case UploadRejected:
		return "rejected"
	case UploadMissingFields:
		return "missing_fields"
	default:
		return "unknown"
	}
}

// UploadError is returned by UploadImage. Body holds the raw response text for
// UploadNotJSON; Response holds the decoded document for the other remote failures.
type UploadError struct {
	Reason   UploadReason
	Body     string
	Response Document
	Err      error
}

func (e *UploadError) Error() string {
	switch e.Reason {
	case UploadTransport:
		return fmt.Sprintf("image upload failed: %v", e.Err)
	case UploadNotJSON:
		return fmt.Sprintf("image upload response is not JSON: %s", e.Body)
	case UploadMissingFields:
		return fmt.Sprintf("upload response missing imageUrl/path: %s", e.Response)
	default:
		return fmt.Sprintf("image upload failed: %s", e.Response)
	}
}

func (e *UploadError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpload}
	}
	return []error{ErrUpload, e.Err}
}

// SubmitReason distinguishes the ways task creation can fail.
type SubmitReason int

const (
	SubmitTransport SubmitReason = iota + 1
	SubmitNotJSON
	SubmitRejected
	SubmitMissingData
	SubmitMissingTaskID
)

func (r SubmitReason) String() string {
	switch r {
	case SubmitTransport:
		return "transport"
	case SubmitNotJSON:
		return "not_json"
	case SubmitRejected:
		return "rejected"
	case SubmitMissingData:
		return "missing_data"
	case SubmitMissingTaskID:
		return "missing_task_id"
	default:
		return "unknown"
	}
}

// SubmitError is returned by CreateTask. Response carries whatever the remote
// API answered, empty for transport and non-JSON failures.
type SubmitError struct {
	Reason   SubmitReason
	Body     string
	Response Document
	Err      error
}

func (e *SubmitError) Error() string {
	switch e.Reason {
	case SubmitTransport:
		return fmt.Sprintf("API call failed: %v", e.Err)
	case SubmitNotJSON:
		return fmt.Sprintf("API call failed: response is not JSON: %s", e.Body)
	case SubmitMissingTaskID:
		return fmt.Sprintf("no taskId in response: %s", e.Response)
	default:
		return fmt.Sprintf("task creation failed: %s", e.Response)
	}
}

func (e *SubmitError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSubmit}
	}
	return []error{ErrSubmit, e.Err}
}

// Document is an untyped JSON object as returned by the remote API.
type Document map[string]any

// String renders the document as compact JSON for messages and logs.
func (d Document) String() string {
	if d == nil {
		return "{}"
	}
	b, err := json.Marshal(map[string]any(d))
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(d))
	}
	return string(b)
}
