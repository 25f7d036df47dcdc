package db

import (
	"database/sql"
	"time"
)

// User は users テーブルの1行。
type User struct {
	ID             string
	Username       string
	Email          string
	HashedPassword string
	Disabled       bool
	CreatedAt      time.Time
	LastLoginAt    sql.NullTime
}

// SessionEvent は session_events テーブルの1行。
type SessionEvent struct {
	ID        string
	ClientID  string
	UserID    string
	EventType string
	Data      string
	CreatedAt time.Time
}
