package clientstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nao1215/textgen/pkg/session"
)

// スキーマ定義。client_storage はクライアントごとのキー・値を保持する。
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS client_storage (
    -- クライアントの識別子（Cookieで配布したUUID）
    client_id TEXT NOT NULL,
    -- 値のキー（token, lang など）
    item_key TEXT NOT NULL,
    -- 値
    item_value TEXT NOT NULL,
    -- 最終更新日時
    updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (client_id, item_key)
);
`

// SQLite はSQLiteデータベースに保持するストア。
type SQLite struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// NewSQLite はSQLiteストアを生成し、必要なテーブルを作成する。
func NewSQLite(ctx context.Context, db *sql.DB) (*SQLite, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("client_storageテーブルの作成に失敗: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Open はクライアントIDに対応するストアを返す。
func (s *SQLite) Open(clientID string) session.Store {
	return &sqliteStore{db: s.db, clientID: clientID}
}

type sqliteStore struct {
	db       *sql.DB
	clientID string
}

func (s *sqliteStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := validate(s.clientID, key); err != nil {
		return "", false, err
	}
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT item_value FROM client_storage WHERE client_id = ? AND item_key = ?",
		s.clientID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("値の取得に失敗: %w", err)
	}
	return value, true, nil
}

func (s *sqliteStore) Set(ctx context.Context, key, value string) error {
	if err := validate(s.clientID, key); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO client_storage (client_id, item_key, item_value) VALUES (?, ?, ?)
		ON CONFLICT (client_id, item_key) DO UPDATE SET item_value = excluded.item_value, updated_at = datetime('now')`,
		s.clientID, key, value,
	)
	if err != nil {
		return fmt.Errorf("値の保存に失敗: %w", err)
	}
	return nil
}

func (s *sqliteStore) Remove(ctx context.Context, key string) error {
	if err := validate(s.clientID, key); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM client_storage WHERE client_id = ? AND item_key = ?",
		s.clientID, key,
	); err != nil {
		return fmt.Errorf("値の削除に失敗: %w", err)
	}
	return nil
}
