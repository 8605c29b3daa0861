package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	presignBatchPath = "/api/v1/upload/presign/batch"
	discardPath      = "/api/v1/upload/discard"
	questionsPath    = "/api/v1/questions"

	maxErrorBody = 4 << 10
)

// HTTPError is a non-2xx response from the API or the object store.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

// APIClient talks to the QApp API with a bearer token. It implements
// Presigner, RecordCreator and Compensator.
type APIClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewAPIClient creates a client for baseURL (e.g. "https://api.qapp.example.com").
// A nil httpClient selects a client with a 30 second timeout.
func NewAPIClient(baseURL, token string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

type presignBatchRequest struct {
	Files []PresignFile `json:"files"`
}

type presignBatchResponse struct {
	URLs      []Grant `json:"urls"`
	ExpiresIn int     `json:"expiresIn"`
}

// PresignBatch implements Presigner.
func (c *APIClient) PresignBatch(ctx context.Context, files []PresignFile) ([]Grant, error) {
	var resp presignBatchResponse
	if err := c.postJSON(ctx, presignBatchPath, presignBatchRequest{Files: files}, &resp); err != nil {
		return nil, err
	}
	return resp.URLs, nil
}

// CreateRecord implements RecordCreator.
func (c *APIClient) CreateRecord(ctx context.Context, req RecordRequest) (Record, error) {
	var rec Record
	if err := c.postJSON(ctx, questionsPath, req, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

type discardRequest struct {
	Keys []string `json:"keys"`
}

// Discard implements Compensator.
func (c *APIClient) Discard(ctx context.Context, keys []string) error {
	return c.postJSON(ctx, discardPath, discardRequest{Keys: keys}, nil)
}

func (c *APIClient) postJSON(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// readAPIError extracts the "error" field of the API's error body, falling
// back to the status text.
func readAPIError(resp *http.Response) *HTTPError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body struct {
		Error string `json:"error"`
	}
	msg := http.StatusText(resp.StatusCode)
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		msg = body.Error
	} else if trimmed := strings.TrimSpace(string(data)); trimmed != "" && !strings.HasPrefix(trimmed, "<") {
		msg = trimmed
	}
	return &HTTPError{StatusCode: resp.StatusCode, Message: msg}
}

// ObjectStoreClient PUTs payloads to presigned URLs. No credentials are
// sent; the URL carries the authorization.
type ObjectStoreClient struct {
	http *http.Client
}

// NewObjectStoreClient creates an object store client. A nil httpClient
// selects a client with a 2 minute timeout.
func NewObjectStoreClient(httpClient *http.Client) *ObjectStoreClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &ObjectStoreClient{http: httpClient}
}

// Put implements ObjectStore.
func (c *ObjectStoreClient) Put(ctx context.Context, url, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := http.StatusText(resp.StatusCode)
		if s3Msg := s3ErrorMessage(data); s3Msg != "" {
			msg = s3Msg
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: msg}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// s3ErrorMessage returns the message of an S3 XML error body.
func s3ErrorMessage(body []byte) string {
	var e struct {
		Code    string `xml:"Code"`
		Message string `xml:"Message"`
	}
	if xml.Unmarshal(body, &e) != nil {
		return ""
	}
	if e.Message == "" {
		return e.Code
	}
	return e.Message
}

var (
	_ Presigner     = (*APIClient)(nil)
	_ RecordCreator = (*APIClient)(nil)
	_ Compensator   = (*APIClient)(nil)
	_ ObjectStore   = (*ObjectStoreClient)(nil)
)
