// Package ingest orchestrates the chunked upload protocol for large audio
// deliverables and production-project archives: presigned part URLs out,
// verified assembly and registry registration on completion.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"schooltone/core/apperr"
	"schooltone/core/registry"
	"schooltone/core/release"
	"schooltone/logger"
	"schooltone/model"
	"schooltone/repository"
	"schooltone/storage"

	"github.com/google/uuid"
)

const (
	// PartSizeBytes 固定分片大小 100MB
	PartSizeBytes int64 = 100 << 20
	// MaxSizeBytes 单个上传上限 2GB
	MaxSizeBytes int64 = 2 << 30
)

// allowedExtensions per track kind. Anything else is rejected before a
// multipart session is opened.
var allowedExtensions = map[model.TrackKind][]string{
	model.KindFinalMix:          {".mp3", ".wav", ".flac", ".m4a", ".aac"},
	model.KindProductionArchive: {".zip", ".rar", ".7z"},
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_\-\.]`)
var multipleSpaces = regexp.MustCompile(`\s+`)

// Controller drives one upload session per large asset.
type Controller struct {
	store    storage.Gateway
	sessions repository.UploadSessionRepository
	registry *registry.Service
	releases *release.Pipeline
}

// NewController creates an ingest controller.
func NewController(store storage.Gateway, sessions repository.UploadSessionRepository, reg *registry.Service, releases *release.Pipeline) *Controller {
	return &Controller{
		store:    store,
		sessions: sessions,
		registry: reg,
		releases: releases,
	}
}

// BeginRequest describes the upload the client intends to perform.
type BeginRequest struct {
	EventID        int64           `json:"eventId"`
	ClassID        int64           `json:"classId"`
	Kind           model.TrackKind `json:"kind"`
	SongRef        string          `json:"songRef,omitempty"`
	Filename       string          `json:"filename"`
	TotalSizeBytes int64           `json:"totalSizeBytes"`
}

// BeginResponse hands the client everything needed to upload parts on its
// own: one presigned PUT URL per part and the fixed part size so byte
// ranges can be computed client-side.
type BeginResponse struct {
	UploadID      string   `json:"uploadId"`
	StorageKey    string   `json:"storageKey"`
	PartURLs      []string `json:"partUrls"`
	PartSizeBytes int64    `json:"partSizeBytes"`
	TotalParts    int      `json:"totalParts"`
}

// Begin validates the request, opens a multipart session and persists it.
func (c *Controller) Begin(ctx context.Context, req BeginRequest) (*BeginResponse, error) {
	if err := validateUpload(req); err != nil {
		return nil, err
	}

	totalParts := int((req.TotalSizeBytes + PartSizeBytes - 1) / PartSizeBytes)
	storageKey := fmt.Sprintf("events/%d/classes/%d/%s_%s",
		req.EventID, req.ClassID, uuid.NewString(), sanitizeFilename(req.Filename))

	uploadID, err := c.store.InitiateMultipart(ctx, storageKey)
	if err != nil {
		return nil, err
	}

	partURLs, err := c.store.PartUploadURLs(ctx, storageKey, uploadID, totalParts)
	if err != nil {
		// 预签名失败时回收已开启的会话
		if abortErr := c.store.AbortMultipart(ctx, storageKey, uploadID); abortErr != nil {
			logger.Warn("清理上传会话失败",
				logger.String("uploadId", uploadID),
				logger.ErrorField(abortErr))
		}
		return nil, err
	}

	session := &model.UploadSession{
		UploadID:       uploadID,
		EventID:        req.EventID,
		ClassID:        req.ClassID,
		Kind:           req.Kind,
		SongRef:        req.SongRef,
		Filename:       req.Filename,
		StorageKey:     storageKey,
		TotalSizeBytes: req.TotalSizeBytes,
		PartSizeBytes:  PartSizeBytes,
		TotalParts:     totalParts,
		State:          model.UploadInitiated,
	}
	if err := c.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	logger.Info("开始分片上传",
		logger.String("uploadId", uploadID),
		logger.Int64("eventId", req.EventID),
		logger.Int64("sizeBytes", req.TotalSizeBytes),
		logger.Int("totalParts", totalParts))

	return &BeginResponse{
		UploadID:      uploadID,
		StorageKey:    storageKey,
		PartURLs:      partURLs,
		PartSizeBytes: PartSizeBytes,
		TotalParts:    totalParts,
	}, nil
}

// Complete verifies and assembles the uploaded parts, confirms the object
// landed, then registers the Track. Integrity failure aborts the whole
// operation — a partially verified upload never reaches the registry.
func (c *Controller) Complete(ctx context.Context, uploadID, storageKey string, parts []storage.Part) (*model.Track, error) {
	session, err := c.sessions.Get(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperr.NotFoundf("upload session %s", uploadID)
	}
	if session.State != model.UploadInitiated {
		return nil, apperr.Conflictf("upload session %s is %s", uploadID, session.State)
	}
	if session.StorageKey != storageKey {
		return nil, apperr.Validationf("storage key mismatch for upload %s", uploadID)
	}

	// 分片清单必须恰好覆盖1..TotalParts，缺片的上传不允许合并
	if len(parts) != session.TotalParts {
		return nil, fmt.Errorf("upload %s supplied %d of %d parts: %w",
			uploadID, len(parts), session.TotalParts, apperr.ErrIntegrityMismatch)
	}
	seen := make(map[int]bool, len(parts))
	for _, p := range parts {
		if p.Index < 1 || p.Index > session.TotalParts {
			return nil, fmt.Errorf("upload %s part index %d out of range 1..%d: %w",
				uploadID, p.Index, session.TotalParts, apperr.ErrIntegrityMismatch)
		}
		if seen[p.Index] {
			return nil, fmt.Errorf("upload %s part index %d supplied twice: %w",
				uploadID, p.Index, apperr.ErrIntegrityMismatch)
		}
		seen[p.Index] = true
	}

	if err := c.store.CompleteMultipart(ctx, storageKey, uploadID, parts); err != nil {
		return nil, err
	}

	exists, err := c.store.Exists(ctx, storageKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("assembled object %s not found: %w", storageKey, apperr.ErrStorageUnavailable)
	}

	track, err := c.registry.RegisterAsset(ctx, session.EventID, session.ClassID,
		session.Kind, session.SongRef, storageKey, session.TotalSizeBytes)
	if err != nil {
		return nil, err
	}

	// A fresh schoolsong upload restarts its approval flow from zero.
	if err := c.releases.HandleNewUpload(ctx, session.EventID, session.SongRef, track.ID); err != nil {
		return nil, err
	}

	if err := c.sessions.SetState(ctx, uploadID, model.UploadCompleted); err != nil {
		return nil, err
	}

	logger.Info("分片上传完成",
		logger.String("uploadId", uploadID),
		logger.Int64("trackId", track.ID),
		logger.String("storageKey", storageKey))
	return track, nil
}

// Abort releases the storage held by a session. Always safe to call,
// including after a failed Complete or a second time.
func (c *Controller) Abort(ctx context.Context, uploadID, storageKey string) error {
	if err := c.store.AbortMultipart(ctx, storageKey, uploadID); err != nil {
		return err
	}

	session, err := c.sessions.Get(ctx, uploadID)
	if err != nil {
		return err
	}
	if session != nil && session.State == model.UploadInitiated {
		if err := c.sessions.SetState(ctx, uploadID, model.UploadAborted); err != nil {
			return err
		}
	}

	logger.Info("分片上传已中止", logger.String("uploadId", uploadID))
	return nil
}

// validateUpload enforces the extension allow-list and the size bounds.
func validateUpload(req BeginRequest) error {
	if req.Filename == "" {
		return apperr.Validationf("filename required")
	}
	if req.TotalSizeBytes <= 0 {
		return apperr.Validationf("size must be positive, got %d", req.TotalSizeBytes)
	}
	if req.TotalSizeBytes > MaxSizeBytes {
		return apperr.Validationf("size %d exceeds the 2GB limit", req.TotalSizeBytes)
	}

	allowed, ok := allowedExtensions[req.Kind]
	if !ok {
		return apperr.Validationf("unknown track kind %q", req.Kind)
	}
	ext := strings.ToLower(filepath.Ext(req.Filename))
	for _, a := range allowed {
		if ext == a {
			return nil
		}
	}
	return apperr.Validationf("extension %q not allowed for kind %s", ext, req.Kind)
}

// sanitizeFilename strips characters that have no business in an object key.
func sanitizeFilename(name string) string {
	base := strings.TrimSpace(name)
	base = multipleSpaces.ReplaceAllString(base, "_")
	base = unsafeFilenameChars.ReplaceAllString(base, "")

	maxLength := 100
	if len(base) > maxLength {
		ext := filepath.Ext(base)
		base = base[:maxLength-len(ext)] + ext
	}
	if base == "" || base == filepath.Ext(base) {
		base = "upload" + filepath.Ext(base)
	}
	return base
}
