package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ds124wfegd/imgenhance/config"
	"github.com/ds124wfegd/imgenhance/internal/entity"
	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"
)

const (
	resultPrefix = "enhance:"
	jobPrefix    = "job:"
)

// CacheRepository stores enhance responses and job snapshots. Responses carry
// a base64 PNG and are zstd-compressed before they reach redis.
type CacheRepository struct {
	client  *redis.Client
	ttl     time.Duration
	jobTTL  time.Duration
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func NewCacheRepository(client *redis.Client, ttl, jobTTL time.Duration) (*CacheRepository, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &CacheRepository{
		client:  client,
		ttl:     ttl,
		jobTTL:  jobTTL,
		encoder: encoder,
		decoder: decoder,
	}, nil
}

func (r *CacheRepository) GetResult(ctx context.Context, key string) (*entity.EnhanceResponse, bool, error) {
	data, err := r.client.Get(ctx, resultPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var resp entity.EnhanceResponse
	if err := r.unpack(data, &resp); err != nil {
		return nil, false, err
	}
	return &resp, true, nil
}

func (r *CacheRepository) SetResult(ctx context.Context, key string, resp *entity.EnhanceResponse) error {
	data, err := r.pack(resp)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, resultPrefix+key, data, r.ttl).Err()
}

func (r *CacheRepository) GetJob(ctx context.Context, id string) (*entity.Job, bool, error) {
	data, err := r.client.Get(ctx, jobPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var job entity.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, false, err
	}
	return &job, true, nil
}

func (r *CacheRepository) SetJob(ctx context.Context, job *entity.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, jobPrefix+job.ID, data, r.jobTTL).Err()
}

func (r *CacheRepository) DeleteJob(ctx context.Context, id string) error {
	return r.client.Del(ctx, jobPrefix+id).Err()
}

func (r *CacheRepository) pack(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return r.encoder.EncodeAll(data, make([]byte, 0, len(data)/4)), nil
}

func (r *CacheRepository) unpack(data []byte, v interface{}) error {
	raw, err := r.decoder.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("decompress cache entry: %w", err)
	}
	return json.Unmarshal(raw, v)
}

// Close releases the codec state. The redis client is owned by the caller.
func (r *CacheRepository) Close() error {
	r.decoder.Close()
	return r.encoder.Close()
}
