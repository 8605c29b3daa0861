// Package uploader drives the client side of a question paper upload:
// compress every image, presign the batch, PUT the objects one by one and
// create the question record.
//
// A Session moves through idle, compressing, uploading, creating and
// complete; any failure ends it in failed with an error tagged by Stage.
// Progress only moves forward along 10, 20, 20+60k/n, 85, 100.
package uploader

import (
	"context"
	"time"
)

// Phase is the externally visible state of a session.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseCompressing Phase = "compressing"
	PhaseUploading   Phase = "uploading"
	PhaseCreating    Phase = "creating"
	PhaseComplete    Phase = "complete"
	PhaseFailed      Phase = "failed"
)

// Terminal reports whether no further transition can happen.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseFailed
}

// Progress checkpoints.
const (
	progressCompressing = 10
	progressCompressed  = 20
	uploadSpan          = 60
	progressCreating    = 85
	progressComplete    = 100
)

// Item is one image selected for upload.
type Item struct {
	// ClientID correlates the item with its presign grant. Generated when
	// empty.
	ClientID    string
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the payload size in bytes.
func (i Item) Size() int64 {
	return int64(len(i.Data))
}

// Metadata describes the question paper. Hashtags is the raw comma
// separated input.
type Metadata struct {
	Title      string `json:"title" validate:"required,notblank,min=5,max=200"`
	CourseCode string `json:"courseCode" validate:"required,notblank,min=2,max=20"`
	CourseName string `json:"courseName" validate:"required,notblank,min=3,max=100"`
	Level      int    `json:"level" validate:"required,min=100,max=900,hundreds"`
	Year       int    `json:"year" validate:"required,min=2000,max=2100"`
	Semester   string `json:"semester" validate:"required,semester"`
	Hashtags   string `json:"hashtags"`
}

// PresignFile is one entry of the batched presign request.
type PresignFile struct {
	ClientID    string `json:"clientId"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Grant authorizes a single PUT of one item.
type Grant struct {
	ClientID     string    `json:"clientId"`
	PresignedURL string    `json:"presignedUrl"`
	Key          string    `json:"key"`
	PublicURL    string    `json:"publicUrl"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// RecordRequest is the body of the record creation call.
type RecordRequest struct {
	Title      string   `json:"title"`
	CourseCode string   `json:"courseCode"`
	CourseName string   `json:"courseName"`
	Level      int      `json:"level"`
	Year       int      `json:"year"`
	Semester   string   `json:"semester"`
	Hashtags   []string `json:"hashtags"`
	Images     []string `json:"images"`
}

// Author attributes a record to its submitter.
type Author struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl"`
}

// Record is the created question.
type Record struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	CourseCode string    `json:"courseCode"`
	CourseName string    `json:"courseName"`
	Level      int       `json:"level"`
	Year       int       `json:"year"`
	Semester   string    `json:"semester"`
	Hashtags   []string  `json:"hashtags"`
	Images     []string  `json:"images"`
	Author     Author    `json:"author"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Compressor shrinks an image. It must not perform network I/O.
type Compressor interface {
	Compress(ctx context.Context, item Item) (Item, error)
}

// Presigner requests one grant per file in a single call.
type Presigner interface {
	PresignBatch(ctx context.Context, files []PresignFile) ([]Grant, error)
}

// ObjectStore performs the PUT against a presigned URL.
type ObjectStore interface {
	Put(ctx context.Context, url, contentType string, body []byte) error
}

// RecordCreator creates the question record.
type RecordCreator interface {
	CreateRecord(ctx context.Context, req RecordRequest) (Record, error)
}

// Compensator deletes objects uploaded by a session that did not complete.
type Compensator interface {
	Discard(ctx context.Context, keys []string) error
}

// Observer receives a snapshot after every checkpoint, on the session's
// goroutine and in order.
type Observer interface {
	OnProgress(s Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(s Snapshot)

// OnProgress calls f.
func (f ObserverFunc) OnProgress(s Snapshot) { f(s) }
