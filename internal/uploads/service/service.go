// Package service implements the presign contract used by upload clients.
package service

import (
	"context"
	"time"

	"qapp_backend/internal/adapters/storage"
	"qapp_backend/internal/scheduler"
	"qapp_backend/internal/uploads/transport"
	"qapp_backend/platform/apperr"
	"qapp_backend/platform/logger"

	"github.com/google/uuid"
)

// Presigner issues presigned PUT URLs.
type Presigner interface {
	GenerateUploadURL(ctx context.Context, bucket, key, contentType string, ttl time.Duration) (*storage.PresignedURL, error)
}

// ObjectDiscarder removes uploaded objects, queued or inline.
type ObjectDiscarder interface {
	DiscardObjects(ctx context.Context, owner uuid.UUID, keys []string, reason string) error
}

// Options configures the upload limits.
type Options struct {
	Bucket        string
	PublicBaseURL string
	TTL           time.Duration
	MaxFileSize   int64
}

// Service provides the presign and discard operations.
type Service struct {
	presigner Presigner
	discarder ObjectDiscarder
	quota     Quota
	opts      Options
	log       *logger.Logger
}

// New creates a new uploads service.
func New(presigner Presigner, discarder ObjectDiscarder, quota Quota, opts Options, log *logger.Logger) *Service {
	if quota == nil {
		quota = NoopQuota{}
	}
	if opts.TTL <= 0 {
		opts.TTL = storage.PresignedURLTTL
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = storage.MaxImageSize
	}
	return &Service{presigner: presigner, discarder: discarder, quota: quota, opts: opts, log: log}
}

// Presign issues a single presigned URL.
func (s *Service) Presign(ctx context.Context, ownerID uuid.UUID, req transport.PresignRequest) (transport.PresignResponse, error) {
	resp, err := s.PresignBatch(ctx, ownerID, transport.BatchPresignRequest{
		Files: []transport.PresignFile{{
			Filename:    req.Filename,
			ContentType: req.ContentType,
			Size:        req.Size,
		}},
	})
	if err != nil {
		return transport.PresignResponse{}, err
	}

	item := resp.URLs[0]
	return transport.PresignResponse{
		PresignedURL: item.PresignedURL,
		Key:          item.Key,
		PublicURL:    item.PublicURL,
		ExpiresAt:    item.ExpiresAt,
	}, nil
}

// PresignBatch validates every file, books the quota and issues one grant per
// file in request order. Nothing is signed when any file is rejected.
func (s *Service) PresignBatch(ctx context.Context, ownerID uuid.UUID, req transport.BatchPresignRequest) (transport.BatchPresignResponse, error) {
	for i, file := range req.Files {
		if err := s.validateFile(file); err != nil {
			return transport.BatchPresignResponse{}, apperr.Validation(err.Error()).
				WithDetails(map[string]any{"index": i, "filename": file.Filename})
		}
	}

	if err := s.quota.Reserve(ctx, ownerID, len(req.Files)); err != nil {
		return transport.BatchPresignResponse{}, err
	}

	items := make([]transport.BatchPresignItem, 0, len(req.Files))
	for _, file := range req.Files {
		key := storage.ObjectKey(ownerID, file.Filename)
		presigned, err := s.presigner.GenerateUploadURL(ctx, s.opts.Bucket, key, file.ContentType, s.opts.TTL)
		if err != nil {
			return transport.BatchPresignResponse{}, apperr.Wrap(apperr.KindInternal, "failed to generate upload URL", err).WithOp("uploads.PresignBatch")
		}

		clientID := file.ClientID
		if clientID == "" {
			clientID = uuid.NewString()
		}

		items = append(items, transport.BatchPresignItem{
			ClientID:     clientID,
			PresignedURL: presigned.URL,
			Key:          presigned.FileKey,
			PublicURL:    storage.PublicURL(s.opts.PublicBaseURL, presigned.FileKey),
			ExpiresAt:    presigned.ExpiresAt,
		})
	}

	s.log.Debug("presigned upload urls issued", "owner", ownerID, "count", len(items))
	return transport.BatchPresignResponse{URLs: items, ExpiresIn: int(s.opts.TTL / time.Second)}, nil
}

// Discard schedules deletion of objects the caller uploaded but will not
// use. Every key must belong to the caller.
func (s *Service) Discard(ctx context.Context, ownerID uuid.UUID, req transport.DiscardRequest) (transport.DiscardResponse, error) {
	for _, key := range req.Keys {
		if !storage.OwnsKey(ownerID, key) {
			return transport.DiscardResponse{}, apperr.Forbidden("you can only discard your own uploads").
				WithDetails(map[string]string{"key": key})
		}
	}

	if err := s.discarder.DiscardObjects(ctx, ownerID, req.Keys, scheduler.ReasonClientDiscard); err != nil {
		return transport.DiscardResponse{}, apperr.Wrap(apperr.KindInternal, "failed to discard uploads", err).WithOp("uploads.Discard")
	}

	s.log.Info("uploads discarded", "owner", ownerID, "count", len(req.Keys))
	return transport.DiscardResponse{Discarded: len(req.Keys)}, nil
}

func (s *Service) validateFile(file transport.PresignFile) error {
	if err := storage.ValidateContentType(file.ContentType); err != nil {
		return err
	}
	if file.Size != nil {
		if err := storage.ValidateFileSize(*file.Size, s.opts.MaxFileSize); err != nil {
			return err
		}
	}
	return nil
}
