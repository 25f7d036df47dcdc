package event

import (
	"encoding/json"
	"time"
)

// Type はセッションイベントの種類を表す。
type Type string

const (
	// TypeSignedUp はユーザーが登録されたことを表す。
	TypeSignedUp Type = "SignedUp"
	// TypeSignedIn はサインインに成功しトークンが保存されたことを表す。
	TypeSignedIn Type = "SignedIn"
	// TypeSignedOut はログアウトが実行されたことを表す。明示的なログアウトと強制ログアウトの両方を含む。
	TypeSignedOut Type = "SignedOut"
	// TypeSessionRejected は保存されていたトークンが無効と判定されたことを表す。
	TypeSessionRejected Type = "SessionRejected"
	// TypeAccessDenied はセッションのないクライアントが保護されたルートへアクセスしたことを表す。
	TypeAccessDenied Type = "AccessDenied"
)

// Valid は既知のイベント種別かどうかを返す。
func (t Type) Valid() bool {
	switch t {
	case TypeSignedUp, TypeSignedIn, TypeSignedOut, TypeSessionRejected, TypeAccessDenied:
		return true
	}
	return false
}

// Event はセッションのライフサイクルで発生した不変のイベントレコードを表す。
// 監査ログとしてsession_eventsテーブルに追記され、更新・削除はされない。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// ClientID はイベントを発生させたクライアントの識別子。
	ClientID string `json:"client_id"`
	// UserID は対象ユーザーのID。匿名クライアントの場合は空。
	UserID string `json:"user_id,omitempty"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"created_at"`
}

// SignedUpData はSignedUpイベントのデータ。
type SignedUpData struct {
	// Username は登録されたユーザー名。
	Username string `json:"username"`
	// Email は登録されたメールアドレス。
	Email string `json:"email"`
}

// SignedInData はSignedInイベントのデータ。
type SignedInData struct {
	// Username はサインインしたユーザー名。
	Username string `json:"username"`
	// ExpiresAt は発行したトークンの有効期限。
	ExpiresAt time.Time `json:"expires_at"`
}

// SignedOutData はSignedOutイベントのデータ。
type SignedOutData struct {
	// Reason はログアウトの理由（"user", "invalid_token", "backend_unauthorized"）。
	Reason string `json:"reason"`
	// HadSession はログアウト時点でトークンが存在したかどうか。
	HadSession bool `json:"had_session"`
}

// SessionRejectedData はSessionRejectedイベントのデータ。
type SessionRejectedData struct {
	// Path は拒否されたリクエストのパス。
	Path string `json:"path"`
	// Reason は拒否の理由。
	Reason string `json:"reason"`
}

// AccessDeniedData はAccessDeniedイベントのデータ。
type AccessDeniedData struct {
	// Path はアクセスしようとしたルートのパス。
	Path string `json:"path"`
	// Target はリダイレクト先。
	Target string `json:"target"`
}
