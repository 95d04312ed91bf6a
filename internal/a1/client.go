// Package a1 is a thin client for the a1.art open API: image upload, task
// creation and task polling. It holds no credentials; every call takes the
// API key explicitly.
package a1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

// Client is the interface for talking to the a1.art API.
type Client interface {
	UploadImage(ctx context.Context, png []byte, apiKey string) (UploadResult, error)
	CreateTask(ctx context.Context, payload TaskPayload, apiKey string) (string, Document, error)
	PollTask(ctx context.Context, taskID, apiKey string) (Document, error)
}

// UploadResult is the remote location of an uploaded image.
type UploadResult struct {
	ImageURL string
	Path     string
}

// CnetRef references the uploaded control image in a generation request.
type CnetRef struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl"`
	Path     string `json:"path"`
}

// DescriptionField is one free-text form field of a generation request.
type DescriptionField struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// TaskPayload is the body of a task creation request.
type TaskPayload struct {
	AppID       string             `json:"appId"`
	VersionID   string             `json:"versionId"`
	Cnet        []CnetRef          `json:"cnet"`
	Description []DescriptionField `json:"description"`
	GenerateNum int                `json:"generateNum"`
}

// Descriptions returns the description list for text: empty when text is
// blank, otherwise a single "description" field.
func Descriptions(text string) []DescriptionField {
	if text == "" {
		return []DescriptionField{}
	}
	return []DescriptionField{{ID: "description", Value: text}}
}

// Timeouts bounds each remote call independently.
type Timeouts struct {
	Upload time.Duration
	Submit time.Duration
	Poll   time.Duration
}

// DefaultTimeouts matches the limits the a1.art API is known to tolerate.
var DefaultTimeouts = Timeouts{
	Upload: 60 * time.Second,
	Submit: 30 * time.Second,
	Poll:   30 * time.Second,
}

// HTTPClient implements Client over net/http.
type HTTPClient struct {
	baseURL  string
	timeouts Timeouts
	client   *http.Client
}

// NewHTTPClient creates a new a1.art HTTP client. Zero timeouts fall back to DefaultTimeouts.
func NewHTTPClient(baseURL string, timeouts Timeouts) *HTTPClient {
	if timeouts.Upload <= 0 {
		timeouts.Upload = DefaultTimeouts.Upload
	}
	if timeouts.Submit <= 0 {
		timeouts.Submit = DefaultTimeouts.Submit
	}
	if timeouts.Poll <= 0 {
		timeouts.Poll = DefaultTimeouts.Poll
	}
	return &HTTPClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		timeouts: timeouts,
		client:   &http.Client{},
	}
}

func (c *HTTPClient) UploadImage(ctx context.Context, png []byte, apiKey string) (UploadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Upload)
	defer cancel()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="file"; filename="upload.png"`},
		"Content-Type":        {"image/png"},
	})
	if err != nil {
		return UploadResult{}, &UploadError{Reason: UploadTransport, Err: err}
	}
	if _, err := part.Write(png); err != nil {
		return UploadResult{}, &UploadError{Reason: UploadTransport, Err: err}
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, &UploadError{Reason: UploadTransport, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/upload", &body)
	if err != nil {
		return UploadResult{}, &UploadError{Reason: UploadTransport, Err: fmt.Errorf("building request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("apiKey", apiKey)

	raw, err := c.do(httpReq)
	if err != nil {
		return UploadResult{}, &UploadError{Reason: UploadTransport, Err: err}
	}

	doc, err := decodeDocument(raw)
	if err != nil {
		return UploadResult{}, &UploadError{Reason: UploadNotJSON, Body: string(raw), Err: err}
	}

	data, hasData := doc["data"]
	if !codeIsZero(doc["code"]) || !hasData {
		return UploadResult{}, &UploadError{Reason: UploadRejected, Response: doc}
	}

	fields, _ := data.(map[string]any)
	imageURL := stringField(fields, "imageUrl")
	path := stringField(fields, "path")
	if imageURL == "" || path == "" {
		return UploadResult{}, &UploadError{Reason: UploadMissingFields, Response: doc}
	}

	return UploadResult{ImageURL: imageURL, Path: path}, nil
}

func (c *HTTPClient) CreateTask(ctx context.Context, payload TaskPayload, apiKey string) (string, Document, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Submit)
	defer cancel()

	if payload.Description == nil {
		payload.Description = []DescriptionField{}
	}
	if payload.Cnet == nil {
		payload.Cnet = []CnetRef{}
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return "", Document{}, &SubmitError{Reason: SubmitTransport, Response: Document{}, Err: fmt.Errorf("encoding payload: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generate", bytes.NewReader(reqBody))
	if err != nil {
		return "", Document{}, &SubmitError{Reason: SubmitTransport, Response: Document{}, Err: fmt.Errorf("building request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("apiKey", apiKey)

	raw, err := c.do(httpReq)
	if err != nil {
		return "", Document{}, &SubmitError{Reason: SubmitTransport, Response: Document{}, Err: err}
	}

	doc, err := decodeDocument(raw)
	if err != nil {
		return "", Document{}, &SubmitError{Reason: SubmitNotJSON, Body: string(raw), Response: Document{}, Err: err}
	}

	if !codeIsZero(doc["code"]) {
		return "", doc, &SubmitError{Reason: SubmitRejected, Response: doc}
	}
	data, hasData := doc["data"]
	if !hasData {
		return "", doc, &SubmitError{Reason: SubmitMissingData, Response: doc}
	}

	fields, _ := data.(map[string]any)
	taskID := stringField(fields, "taskId")
	if taskID == "" {
		return "", doc, &SubmitError{Reason: SubmitMissingTaskID, Response: doc}
	}

	return taskID, doc, nil
}

// PollTask fetches the current state of a task. A body that is not a JSON
// object is wrapped as {"data": <value>}; when the body is not JSON at all the
// wrapped document is returned together with an error wrapping ErrPollNotJSON,
// so callers can still inspect it.
func (c *HTTPClient) PollTask(ctx context.Context, taskID, apiKey string) (Document, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Poll)
	defer cancel()

	u := fmt.Sprintf("%s/tasks/%s", c.baseURL, url.PathEscape(taskID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrPollTransport, err)
	}
	httpReq.Header.Set("apiKey", apiKey)

	raw, err := c.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPollTransport, err)
	}

	v, err := decodeValue(raw)
	if err != nil {
		return Document{"data": string(raw)}, fmt.Errorf("%w: %v", ErrPollNotJSON, err)
	}
	if obj, ok := v.(map[string]any); ok {
		return Document(obj), nil
	}
	return Document{"data": v}, nil
}

func (c *HTTPClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyError(err)
	}
	return raw, nil
}

// Sentinel transport errors, wrapped inside UploadError, SubmitError and poll errors.
var (
	ErrUnreachable = errors.New("a1 api unreachable")
	ErrTimeout     = errors.New("a1 api timeout")
)

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

// decodeValue parses any JSON body. Numbers are kept as json.Number so ids
// and codes survive a round trip to callers unchanged.
func decodeValue(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// decodeDocument parses a body that must be a JSON object.
func decodeDocument(raw []byte) (Document, error) {
	v, err := decodeValue(raw)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("response is %T, not an object", v)
	}
	return Document(obj), nil
}

// codeIsZero reports whether the response code field is the number 0.
func codeIsZero(v any) bool {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return err == nil && f == 0
	case float64:
		return n == 0
	default:
		return false
	}
}

// stringField reads key from an object as a string. Numeric ids are rendered
// in their JSON form.
func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
