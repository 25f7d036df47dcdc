// Package clientstore はクライアントごとに分離された文字列キー・値ストアを提供する。
//
// ブラウザのオリジン単位のローカルストレージに相当し、再読み込みをまたいで残り、
// 自動では消去されない。バックエンドはメモリ、SQLite、Redisから選べる。
package clientstore

import (
	"errors"
	"fmt"

	"github.com/nao1215/textgen/pkg/session"
)

// Factory はクライアントIDに対応するストアを開く。
type Factory interface {
	Open(clientID string) session.Store
}

// ErrEmptyClientID はクライアントIDが空の場合のエラー。
var ErrEmptyClientID = errors.New("クライアントIDが空です")

// ErrEmptyKey はキーが空の場合のエラー。
var ErrEmptyKey = errors.New("キーが空です")

// Backend はストアの実装の種類。
type Backend string

const (
	// BackendMemory はプロセス内メモリ。
	BackendMemory Backend = "memory"
	// BackendSQLite はSQLiteデータベース。
	BackendSQLite Backend = "sqlite"
	// BackendRedis はRedisサーバー。
	BackendRedis Backend = "redis"
)

// ParseBackend は文字列をバックエンドの種類に変換する。
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendMemory, BackendSQLite, BackendRedis:
		return b, nil
	default:
		return "", fmt.Errorf("不明なストアバックエンドです: %q", s)
	}
}

// validate はクライアントIDとキーを検証する。
func validate(clientID, key string) error {
	if clientID == "" {
		return ErrEmptyClientID
	}
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}
