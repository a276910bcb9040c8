package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/thesis-review-api/internal/dto"
	appErrors "github.com/noah-isme/thesis-review-api/pkg/errors"
	"github.com/noah-isme/thesis-review-api/pkg/jobs"
	"github.com/noah-isme/thesis-review-api/pkg/storage"
)

// JobTypeDocumentDelete is the cleanup job that removes an orphaned document.
const JobTypeDocumentDelete = "document.delete"

// sniffLen matches the header size mimetype inspects by default.
const sniffLen = 3072

// BlobStorage is the document storage backend.
type BlobStorage interface {
	Save(ref string, r io.Reader) (int64, error)
	Open(ref string) (*os.File, error)
	Delete(ref string) error
}

// URLSigner issues and verifies signed download tokens.
type URLSigner interface {
	Generate(ownerID, ref string) (string, time.Time, error)
	Parse(token string) (ownerID, ref string, err error)
}

// CleanupQueue accepts deferred document deletions.
type CleanupQueue interface {
	Enqueue(job jobs.Job) error
}

// DocumentConfig bounds accepted uploads.
type DocumentConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	DownloadPath     string
}

// DocumentService adapts blob storage for topic and feedback documents.
type DocumentService struct {
	blobs  BlobStorage
	signer URLSigner
	queue  CleanupQueue
	cfg    DocumentConfig
	logger *zap.Logger
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(blobs BlobStorage, signer URLSigner, cfg DocumentConfig, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 20 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf"}
	}
	if cfg.DownloadPath == "" {
		cfg.DownloadPath = "/api/v1/files/download"
	}
	return &DocumentService{blobs: blobs, signer: signer, cfg: cfg, logger: logger}
}

// UseCleanupQueue routes Discard through q instead of deleting inline.
func (s *DocumentService) UseCleanupQueue(q CleanupQueue) {
	s.queue = q
}

// Store validates the upload and writes it under kind/ownerID. The returned reference is opaque to callers.
func (s *DocumentService) Store(ctx context.Context, kind, ownerID string, upload dto.DocumentUpload) (string, error) {
	if upload.Content == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "document is required")
	}
	if upload.Size > s.cfg.MaxFileSizeBytes {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("document exceeds %d bytes", s.cfg.MaxFileSizeBytes))
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(upload.Content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", appErrors.Storage(err, "failed to read document")
	}
	head = head[:n]
	if n == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "document is empty")
	}

	detected := mimetype.Detect(head)
	if !s.allowed(detected) {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("document type %s is not accepted", detected.String()))
	}

	ref := fmt.Sprintf("%s/%s/%s%s", kind, ownerID, uuid.NewString(), detected.Extension())
	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), upload.Content), s.cfg.MaxFileSizeBytes+1)
	written, err := s.blobs.Save(ref, body)
	if err != nil {
		return "", appErrors.Storage(err, "failed to store document")
	}
	if written > s.cfg.MaxFileSizeBytes {
		s.deleteNow(ref)
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("document exceeds %d bytes", s.cfg.MaxFileSizeBytes))
	}

	s.logger.Debug("document stored", zap.String("ref", ref), zap.String("mime", detected.String()), zap.Int64("bytes", written))
	return ref, nil
}

func (s *DocumentService) allowed(detected *mimetype.MIME) bool {
	for _, allowed := range s.cfg.AllowedMIMEs {
		for m := detected; m != nil; m = m.Parent() {
			if m.Is(strings.TrimSpace(allowed)) {
				return true
			}
		}
	}
	return false
}

// Discard schedules removal of a document that is no longer referenced, such as the blob of a
// rolled-back submission. It never fails the caller.
func (s *DocumentService) Discard(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: JobTypeDocumentDelete, Payload: ref})
		if err == nil {
			return
		}
		s.logger.Warn("cleanup queue unavailable, deleting inline", zap.String("ref", ref), zap.Error(err))
	}
	s.deleteNow(ref)
}

func (s *DocumentService) deleteNow(ref string) {
	if err := s.blobs.Delete(ref); err != nil {
		s.logger.Warn("document delete failed", zap.String("ref", ref), zap.Error(err))
	}
}

// HandleCleanup is the cleanup queue handler.
func (s *DocumentService) HandleCleanup(_ context.Context, job jobs.Job) error {
	if job.Type != JobTypeDocumentDelete {
		return fmt.Errorf("unexpected job type %q", job.Type)
	}
	return s.blobs.Delete(job.Payload)
}

// SignDownload issues an expiring link to ref for ownerID.
func (s *DocumentService) SignDownload(ownerID, ref string) (*dto.DownloadURLResponse, error) {
	token, expiresAt, err := s.signer.Generate(ownerID, ref)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign download")
	}
	return &dto.DownloadURLResponse{
		URL:       s.cfg.DownloadPath + "?token=" + token,
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// Open resolves a signed token to the stored document.
func (s *DocumentService) Open(token string) (*os.File, string, error) {
	_, ref, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "download link expired")
		}
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid download link")
	}
	file, err := s.blobs.Open(ref)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, "", appErrors.Storage(err, "failed to open document")
	}
	return file, ref, nil
}
