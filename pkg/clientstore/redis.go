package clientstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/textgen/pkg/session"
	"github.com/redis/go-redis/v9"
)

// defaultRedisPrefix はクライアントごとのハッシュキーの接頭辞。
const defaultRedisPrefix = "textgen:client:"

// Redis はクライアントごとに1つのRedisハッシュへ保持するストア。有効期限は設定しない。
type Redis struct {
	// client はRedisクライアント。
	client redis.UniversalClient
	// prefix はハッシュキーの接頭辞。
	prefix string
}

// NewRedis はRedisストアを生成する。prefix が空の場合は既定の接頭辞を使う。
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// Open はクライアントIDに対応するストアを返す。
func (r *Redis) Open(clientID string) session.Store {
	return &redisStore{client: r.client, clientID: clientID, hashKey: r.prefix + clientID}
}

type redisStore struct {
	client   redis.UniversalClient
	clientID string
	hashKey  string
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := validate(s.clientID, key); err != nil {
		return "", false, err
	}
	value, err := s.client.HGet(ctx, s.hashKey, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("Redisからの取得に失敗: %w", err)
	}
	return value, true, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string) error {
	if err := validate(s.clientID, key); err != nil {
		return err
	}
	if err := s.client.HSet(ctx, s.hashKey, key, value).Err(); err != nil {
		return fmt.Errorf("Redisへの保存に失敗: %w", err)
	}
	return nil
}

func (s *redisStore) Remove(ctx context.Context, key string) error {
	if err := validate(s.clientID, key); err != nil {
		return err
	}
	if err := s.client.HDel(ctx, s.hashKey, key).Err(); err != nil {
		return fmt.Errorf("Redisからの削除に失敗: %w", err)
	}
	return nil
}
