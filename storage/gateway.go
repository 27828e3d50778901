package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"schooltone/core/apperr"
	"schooltone/logger"

	"github.com/minio/minio-go/v7"
)

// Part is one uploaded chunk as reported back by the client.
type Part struct {
	Index int    `json:"index"`
	ETag  string `json:"eTag"`
}

// Gateway is the thin object-store wrapper the rest of the system depends
// on. Implementations must map backend faults onto the apperr taxonomy.
type Gateway interface {
	// Exists checks whether an object is present. A missing object is
	// (false, nil); only transport faults return an error.
	Exists(ctx context.Context, key string) (bool, error)

	// SignedURL issues a time-limited GET URL. A non-empty downloadFilename
	// adds a content-disposition attachment header. TTL policy belongs to
	// the caller.
	SignedURL(ctx context.Context, key string, ttl time.Duration, downloadFilename string) (string, error)

	// InitiateMultipart opens a multipart session for key.
	InitiateMultipart(ctx context.Context, key string) (string, error)

	// PartUploadURLs issues one pre-signed PUT URL per part index 1..totalParts.
	PartUploadURLs(ctx context.Context, key, uploadID string, totalParts int) ([]string, error)

	// CompleteMultipart assembles the object after verifying that every
	// supplied part is present in the store and its ETag agrees.
	CompleteMultipart(ctx context.Context, key, uploadID string, parts []Part) error

	// AbortMultipart discards a session. Idempotent: aborting twice or after
	// completion is a no-op success.
	AbortMultipart(ctx context.Context, key, uploadID string) error
}

// partURLExpiry 分片上传链接有效期
const partURLExpiry = 24 * time.Hour

// MinioGateway MinIO对象存储网关
type MinioGateway struct {
	client *minio.Client
	core   *minio.Core
	bucket string
}

// NewMinioGateway 创建对象存储网关
func NewMinioGateway(client *minio.Client, bucket string) *MinioGateway {
	return &MinioGateway{
		client: client,
		core:   &minio.Core{Client: client},
		bucket: bucket,
	}
}

// validateKey 校验对象键是否合法
func validateKey(key string) error {
	if key == "" || len(key) > 1024 {
		return apperr.Validationf("invalid object key %q", key)
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return apperr.Validationf("invalid object key %q", key)
	}
	return nil
}

// Exists 检查对象是否存在
func (g *MinioGateway) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.client.StatObject(ctx, g.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
			return false, nil
		}
		// 传输错误必须单独记录，不能静默降级为"不存在"
		logger.Error("对象存储访问失败",
			logger.String("key", key),
			logger.ErrorField(err))
		return false, fmt.Errorf("stat object %s: %w", key, apperr.ErrStorageUnavailable)
	}
	return true, nil
}

// SignedURL 生成带有效期的下载链接
func (g *MinioGateway) SignedURL(ctx context.Context, key string, ttl time.Duration, downloadFilename string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	reqParams := make(url.Values)
	if downloadFilename != "" {
		reqParams.Set("response-content-disposition",
			fmt.Sprintf("attachment; filename=%q", downloadFilename))
	}

	signed, err := g.client.PresignedGetObject(ctx, g.bucket, key, ttl, reqParams)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, apperr.ErrStorageUnavailable)
	}
	return signed.String(), nil
}

// InitiateMultipart 开启分片上传会话
func (g *MinioGateway) InitiateMultipart(ctx context.Context, key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	uploadID, err := g.core.NewMultipartUpload(ctx, g.bucket, key, minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("initiate multipart for %s: %w", key, apperr.ErrStorageUnavailable)
	}
	return uploadID, nil
}

// PartUploadURLs 为每个分片生成预签名PUT链接
func (g *MinioGateway) PartUploadURLs(ctx context.Context, key, uploadID string, totalParts int) ([]string, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if totalParts < 1 {
		return nil, apperr.Validationf("totalParts must be positive, got %d", totalParts)
	}

	urls := make([]string, 0, totalParts)
	for partNumber := 1; partNumber <= totalParts; partNumber++ {
		reqParams := make(url.Values)
		reqParams.Set("uploadId", uploadID)
		reqParams.Set("partNumber", fmt.Sprintf("%d", partNumber))

		signed, err := g.client.Presign(ctx, "PUT", g.bucket, key, partURLExpiry, reqParams)
		if err != nil {
			return nil, fmt.Errorf("presign part %d of %s: %w", partNumber, key, apperr.ErrStorageUnavailable)
		}
		urls = append(urls, signed.String())
	}
	return urls, nil
}

// CompleteMultipart 校验分片完整性并合并对象
func (g *MinioGateway) CompleteMultipart(ctx context.Context, key, uploadID string, parts []Part) error {
	if len(parts) == 0 {
		return apperr.Validationf("no parts supplied for %s", key)
	}

	recorded, err := g.listRecordedParts(ctx, key, uploadID)
	if err != nil {
		return err
	}

	completeParts, err := matchRecordedParts(key, recorded, parts)
	if err != nil {
		return err
	}

	_, err = g.core.CompleteMultipartUpload(ctx, g.bucket, key, uploadID, completeParts, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("complete multipart for %s: %w", key, apperr.ErrStorageUnavailable)
	}
	return nil
}

// AbortMultipart 终止分片上传会话。会话不存在时视为成功，容忍客户端重试。
func (g *MinioGateway) AbortMultipart(ctx context.Context, key, uploadID string) error {
	err := g.core.AbortMultipartUpload(ctx, g.bucket, key, uploadID)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchUpload" || resp.StatusCode == 404 {
			return nil
		}
		return fmt.Errorf("abort multipart for %s: %w", key, apperr.ErrStorageUnavailable)
	}
	return nil
}

// matchRecordedParts 校验客户端报告的分片清单与存储端记录完全一致：
// 每个分片都已上传、ETag一致、索引不重复且无遗漏。
func matchRecordedParts(key string, recorded map[int]string, parts []Part) ([]minio.CompletePart, error) {
	seen := make(map[int]bool, len(parts))
	completeParts := make([]minio.CompletePart, 0, len(parts))
	for _, p := range parts {
		if seen[p.Index] {
			return nil, fmt.Errorf("part %d of %s supplied twice: %w", p.Index, key, apperr.ErrIntegrityMismatch)
		}
		seen[p.Index] = true

		etag, ok := recorded[p.Index]
		if !ok {
			return nil, fmt.Errorf("part %d of %s missing in store: %w", p.Index, key, apperr.ErrIntegrityMismatch)
		}
		if etag != trimETag(p.ETag) {
			return nil, fmt.Errorf("part %d of %s etag mismatch: %w", p.Index, key, apperr.ErrIntegrityMismatch)
		}
		completeParts = append(completeParts, minio.CompletePart{
			PartNumber: p.Index,
			ETag:       etag,
		})
	}
	if len(seen) < len(recorded) {
		return nil, fmt.Errorf("only %d of %d recorded parts supplied for %s: %w",
			len(seen), len(recorded), key, apperr.ErrIntegrityMismatch)
	}
	return completeParts, nil
}

// listRecordedParts 获取存储端记录的所有分片
func (g *MinioGateway) listRecordedParts(ctx context.Context, key, uploadID string) (map[int]string, error) {
	recorded := make(map[int]string)
	marker := 0
	for {
		result, err := g.core.ListObjectParts(ctx, g.bucket, key, uploadID, marker, 1000)
		if err != nil {
			resp := minio.ToErrorResponse(err)
			if resp.Code == "NoSuchUpload" {
				return nil, fmt.Errorf("upload session %s not found: %w", uploadID, apperr.ErrNotFound)
			}
			return nil, fmt.Errorf("list parts for %s: %w", key, apperr.ErrStorageUnavailable)
		}
		for _, p := range result.ObjectParts {
			recorded[p.PartNumber] = trimETag(p.ETag)
		}
		if !result.IsTruncated {
			return recorded, nil
		}
		marker = result.NextPartNumberMarker
	}
}

// trimETag 去除存储端返回ETag两侧的引号
func trimETag(etag string) string {
	return strings.Trim(etag, `"`)
}
