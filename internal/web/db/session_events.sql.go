package db

import (
	"context"
	"time"
)

const appendSessionEvent = `
INSERT INTO session_events (id, client_id, user_id, event_type, data, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`

// AppendSessionEventParams は AppendSessionEvent の引数。
type AppendSessionEventParams struct {
	ID        string
	ClientID  string
	UserID    string
	EventType string
	Data      string
	CreatedAt time.Time
}

// AppendSessionEvent はセッションイベントを追記する。
func (q *Queries) AppendSessionEvent(ctx context.Context, arg AppendSessionEventParams) error {
	_, err := q.db.ExecContext(ctx, appendSessionEvent,
		arg.ID,
		arg.ClientID,
		arg.UserID,
		arg.EventType,
		arg.Data,
		arg.CreatedAt,
	)
	return err
}

const listSessionEventsByUserID = `
SELECT id, client_id, user_id, event_type, data, created_at
FROM session_events
WHERE user_id = ?
ORDER BY created_at DESC, rowid DESC
LIMIT ?
`

// ListSessionEventsByUserIDParams は ListSessionEventsByUserID の引数。
type ListSessionEventsByUserIDParams struct {
	UserID string
	Limit  int64
}

// ListSessionEventsByUserID はユーザーのセッションイベントを新しい順に取得する。
func (q *Queries) ListSessionEventsByUserID(ctx context.Context, arg ListSessionEventsByUserIDParams) ([]SessionEvent, error) {
	rows, err := q.db.QueryContext(ctx, listSessionEventsByUserID, arg.UserID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []SessionEvent{}
	for rows.Next() {
		var i SessionEvent
		if err := rows.Scan(
			&i.ID,
			&i.ClientID,
			&i.UserID,
			&i.EventType,
			&i.Data,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countSessionEventsByClientID = `
SELECT COUNT(*) FROM session_events WHERE client_id = ? AND event_type = ?
`

// CountSessionEventsByClientIDParams は CountSessionEventsByClientID の引数。
type CountSessionEventsByClientIDParams struct {
	ClientID  string
	EventType string
}

// CountSessionEventsByClientID はクライアントで発生した指定種別のイベント数を返す。
func (q *Queries) CountSessionEventsByClientID(ctx context.Context, arg CountSessionEventsByClientIDParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, countSessionEventsByClientID, arg.ClientID, arg.EventType)
	var count int64
	err := row.Scan(&count)
	return count, err
}
