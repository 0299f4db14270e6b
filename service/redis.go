package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/j031nich0145/noBG/config"
)

const cachePrefix = "nobg:"

// RedisService 缓存处理结果，同图同参数的重复请求直接命中
type RedisService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisService(cfg *config.RedisConfig) *RedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisService{
		client: client,
		ttl:    cfg.TTL,
	}
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// GetResult 读取缓存的PNG结果，未命中返回nil
func (s *RedisService) GetResult(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, cachePrefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // 缓存未命中
		}
		return nil, err
	}
	return data, nil
}

// SetResult 写入处理结果
func (s *RedisService) SetResult(ctx context.Context, key string, png []byte) error {
	return s.client.Set(ctx, cachePrefix+key, png, s.ttl).Err()
}

func (s *RedisService) Close() error {
	return s.client.Close()
}
