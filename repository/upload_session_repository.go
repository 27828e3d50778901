package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"schooltone/model"

	"github.com/redis/go-redis/v9"
)

// sessionTTL 上传会话在Redis中的有效期
const sessionTTL = 24 * time.Hour

// UploadSessionRepository defines the interface for upload session storage.
// Sessions are short-lived protocol state, kept in Redis with a TTL rather
// than in MySQL.
type UploadSessionRepository interface {
	Save(ctx context.Context, session *model.UploadSession) error
	Get(ctx context.Context, uploadID string) (*model.UploadSession, error)
	SetState(ctx context.Context, uploadID string, state model.UploadState) error
}

// redisUploadSessionRepository implements UploadSessionRepository on Redis.
type redisUploadSessionRepository struct {
	client *redis.Client
}

// NewRedisUploadSessionRepository creates a new instance of redisUploadSessionRepository.
func NewRedisUploadSessionRepository(client *redis.Client) UploadSessionRepository {
	return &redisUploadSessionRepository{client: client}
}

// sessionKey 根据uploadID生成Redis键
func sessionKey(uploadID string) string {
	return fmt.Sprintf("upload:%s", uploadID)
}

func (r *redisUploadSessionRepository) Save(ctx context.Context, session *model.UploadSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal upload session: %w", err)
	}

	if err := r.client.Set(ctx, sessionKey(session.UploadID), data, sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to save upload session %s: %w", session.UploadID, err)
	}
	return nil
}

func (r *redisUploadSessionRepository) Get(ctx context.Context, uploadID string) (*model.UploadSession, error) {
	data, err := r.client.Get(ctx, sessionKey(uploadID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Session not found or expired
		}
		return nil, fmt.Errorf("failed to get upload session %s: %w", uploadID, err)
	}

	session := &model.UploadSession{}
	if err := json.Unmarshal([]byte(data), session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal upload session %s: %w", uploadID, err)
	}
	return session, nil
}

func (r *redisUploadSessionRepository) SetState(ctx context.Context, uploadID string, state model.UploadState) error {
	session, err := r.Get(ctx, uploadID)
	if err != nil {
		return err
	}
	if session == nil {
		return nil // Expired session, nothing to update
	}

	session.State = state
	return r.Save(ctx, session)
}
