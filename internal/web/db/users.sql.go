package db

import (
	"context"
)

const createUser = `
INSERT INTO users (id, username, email, hashed_password)
VALUES (?, ?, ?, ?)
`

// CreateUserParams は CreateUser の引数。
type CreateUserParams struct {
	ID             string
	Username       string
	Email          string
	HashedPassword string
}

// CreateUser はユーザーを作成する。
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) error {
	_, err := q.db.ExecContext(ctx, createUser,
		arg.ID,
		arg.Username,
		arg.Email,
		arg.HashedPassword,
	)
	return err
}

const userColumns = `id, username, email, hashed_password, disabled, created_at, last_login_at`

const getUserByUsername = `SELECT ` + userColumns + ` FROM users WHERE username = ?`

// GetUserByUsername はユーザー名でユーザーを取得する。
func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByUsername, username)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.HashedPassword,
		&i.Disabled,
		&i.CreatedAt,
		&i.LastLoginAt,
	)
	return i, err
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

// GetUserByID はIDでユーザーを取得する。
func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByID, id)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.HashedPassword,
		&i.Disabled,
		&i.CreatedAt,
		&i.LastLoginAt,
	)
	return i, err
}

const userExists = `
SELECT EXISTS (SELECT 1 FROM users WHERE username = ? OR email = ?)
`

// UserExistsParams は UserExists の引数。
type UserExistsParams struct {
	Username string
	Email    string
}

// UserExists はユーザー名またはメールアドレスが登録済みかどうかを返す。
func (q *Queries) UserExists(ctx context.Context, arg UserExistsParams) (bool, error) {
	row := q.db.QueryRowContext(ctx, userExists, arg.Username, arg.Email)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const updateLastLogin = `UPDATE users SET last_login_at = CURRENT_TIMESTAMP WHERE id = ?`

// UpdateLastLogin は最終サインイン日時を更新する。
func (q *Queries) UpdateLastLogin(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, updateLastLogin, id)
	return err
}

const setUserDisabled = `UPDATE users SET disabled = ? WHERE id = ?`

// SetUserDisabledParams は SetUserDisabled の引数。
type SetUserDisabledParams struct {
	Disabled bool
	ID       string
}

// SetUserDisabled はユーザーの無効化フラグを更新する。
func (q *Queries) SetUserDisabled(ctx context.Context, arg SetUserDisabledParams) error {
	_, err := q.db.ExecContext(ctx, setUserDisabled, arg.Disabled, arg.ID)
	return err
}
