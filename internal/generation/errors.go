package generation

import "errors"

// EmptyInputMessage is shown to callers that submit without an image.
const EmptyInputMessage = "Please capture or upload an image first."

// Sentinel errors for generation runs. Upload and submit failures are
// reported as *a1.UploadError and *a1.SubmitError.
var (
	ErrEmptyInput   = errors.New("no input image")
	ErrHistoryWrite = errors.New("history write failed")
)
