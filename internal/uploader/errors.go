package uploader

import (
	"errors"
	"fmt"
)

// Stage tags an error with the pipeline step that produced it.
type Stage string

const (
	StageValidate Stage = "validate"
	StageCompress Stage = "compress"
	StagePresign  Stage = "presign"
	StageUpload   Stage = "upload"
	StageCreate   Stage = "create"
)

// ValidationError is returned synchronously by Start. No network call has
// been made when it is returned.
type ValidationError struct {
	Index  int // 1-based item index, 0 when the error concerns the batch or the metadata
	Name   string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Index > 0 {
		return fmt.Sprintf("validate: image %d (%s): %s", e.Index, e.Name, e.Reason)
	}
	return "validate: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }
func (e *ValidationError) Stage() Stage  { return StageValidate }

// CompressionError names the item the compressor rejected.
type CompressionError struct {
	Index int
	Name  string
	Err   error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("compress: image %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *CompressionError) Unwrap() error { return e.Err }
func (e *CompressionError) Stage() Stage  { return StageCompress }

// AuthOrPresignError covers a rejected presign call (401 included) and a
// grant set that does not match the submitted items.
type AuthOrPresignError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *AuthOrPresignError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("presign: status %d: %s", e.StatusCode, e.Message)
	}
	return "presign: " + e.Message
}

func (e *AuthOrPresignError) Unwrap() error { return e.Err }
func (e *AuthOrPresignError) Stage() Stage  { return StagePresign }

// Unauthorized reports whether the API rejected the credentials.
func (e *AuthOrPresignError) Unauthorized() bool { return e.StatusCode == 401 }

// UploadError names the first item whose PUT failed.
type UploadError struct {
	Index      int
	Name       string
	StatusCode int
	Err        error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload: image %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
func (e *UploadError) Stage() Stage  { return StageUpload }

// RecordCreationError carries the message returned by the questions API.
type RecordCreationError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RecordCreationError) Error() string {
	return "create: " + e.Message
}

func (e *RecordCreationError) Unwrap() error { return e.Err }
func (e *RecordCreationError) Stage() Stage  { return StageCreate }

// CancelledError ends a session whose context was cancelled. Err is the
// context error, so errors.Is(err, context.Canceled) holds after Cancel.
type CancelledError struct {
	During Stage
	Err    error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("%s: cancelled: %v", e.During, e.Err)
}

func (e *CancelledError) Unwrap() error { return e.Err }
func (e *CancelledError) Stage() Stage  { return e.During }

type staged interface {
	Stage() Stage
}

// StageOf returns the stage tag carried anywhere in err's chain.
func StageOf(err error) (Stage, bool) {
	var s staged
	if errors.As(err, &s) {
		return s.Stage(), true
	}
	return "", false
}
