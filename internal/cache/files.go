package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"lite-drive/internal/config"
	"lite-drive/internal/models"
)

const keyPrefix = "litedrive:files:"

func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// FileLists caches each owner's file listing. Cache errors are logged and
// treated as misses; the database stays the source of truth.
//
// Entries are keyed by a per-owner generation that Invalidate bumps. A
// listing read before an invalidation is stored under the old generation
// and is never served afterwards.
type FileLists struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewFileLists(client *redis.Client, ttl time.Duration, logger *slog.Logger) *FileLists {
	return &FileLists{client: client, ttl: ttl, logger: logger}
}

func generationKey(ownerID int64) string {
	return fmt.Sprintf("%s%d:gen", keyPrefix, ownerID)
}

func key(ownerID, generation int64) string {
	return fmt.Sprintf("%s%d:%d", keyPrefix, ownerID, generation)
}

// Get returns the cached listing and the generation it was looked up under.
// The generation is negative when it could not be read; Set ignores such
// listings.
func (c *FileLists) Get(ctx context.Context, ownerID int64) ([]models.File, int64, bool) {
	generation, err := c.client.Get(ctx, generationKey(ownerID)).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("file list generation read failed", "user_id", ownerID, "error", err)
			return nil, -1, false
		}
		generation = 0
	}

	data, err := c.client.Get(ctx, key(ownerID, generation)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("file list cache read failed", "user_id", ownerID, "error", err)
		}
		return nil, generation, false
	}

	var list []cachedFile
	if err := json.Unmarshal(data, &list); err != nil {
		c.logger.Warn("file list cache entry is corrupt", "user_id", ownerID, "error", err)
		return nil, generation, false
	}

	files := make([]models.File, len(list))
	for i, f := range list {
		files[i] = f.model()
	}
	return files, generation, true
}

func (c *FileLists) Set(ctx context.Context, ownerID, generation int64, files []models.File) {
	if generation < 0 {
		return
	}
	list := make([]cachedFile, len(files))
	for i, f := range files {
		list[i] = fromModel(f)
	}
	data, err := json.Marshal(list)
	if err != nil {
		c.logger.Warn("file list cache encode failed", "user_id", ownerID, "error", err)
		return
	}
	if err := c.client.Set(ctx, key(ownerID, generation), data, c.ttl).Err(); err != nil {
		c.logger.Warn("file list cache write failed", "user_id", ownerID, "error", err)
	}
}

func (c *FileLists) Invalidate(ctx context.Context, ownerID int64) {
	if err := c.client.Incr(ctx, generationKey(ownerID)).Err(); err != nil {
		c.logger.Warn("file list cache invalidation failed", "user_id", ownerID, "error", err)
	}
}

// cachedFile keeps the physical paths that models.File hides from JSON.
type cachedFile struct {
	models.File
	Path        string  `json:"path"`
	PreviewPath *string `json:"preview_path,omitempty"`
}

func fromModel(f models.File) cachedFile {
	return cachedFile{File: f, Path: f.Path, PreviewPath: f.PreviewPath}
}

func (c cachedFile) model() models.File {
	f := c.File
	f.Path = c.Path
	f.PreviewPath = c.PreviewPath
	return f
}
