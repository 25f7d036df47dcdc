package toast

import (
	"fmt"
	"strings"
	"time"
)

// Level は通知の重要度を表す。
type Level string

const (
	// LevelInfo は情報通知を表す。
	LevelInfo Level = "info"
	// LevelSuccess は成功通知を表す。
	LevelSuccess Level = "success"
	// LevelWarning は警告通知を表す。セッション終了時に使用する。
	LevelWarning Level = "warning"
	// LevelError はエラー通知を表す。
	LevelError Level = "error"
)

// Valid は重要度が既知の値かどうかを返す。
func (l Level) Valid() bool {
	switch l {
	case LevelInfo, LevelSuccess, LevelWarning, LevelError:
		return true
	default:
		return false
	}
}

// Position は通知の表示位置を表す。
type Position string

const (
	// PositionTopRight は画面右上。
	PositionTopRight Position = "top-right"
	// PositionTopCenter は画面上部中央。
	PositionTopCenter Position = "top-center"
	// PositionTopLeft は画面左上。
	PositionTopLeft Position = "top-left"
	// PositionBottomRight は画面右下。
	PositionBottomRight Position = "bottom-right"
	// PositionBottomCenter は画面下部中央。
	PositionBottomCenter Position = "bottom-center"
	// PositionBottomLeft は画面左下。
	PositionBottomLeft Position = "bottom-left"
)

// ParsePosition は文字列を表示位置に変換する。
func ParsePosition(s string) (Position, error) {
	p := Position(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PositionTopRight, PositionTopCenter, PositionTopLeft,
		PositionBottomRight, PositionBottomCenter, PositionBottomLeft:
		return p, nil
	default:
		return "", fmt.Errorf("不明な表示位置です: %q", s)
	}
}

const (
	// DefaultTimeout は通知が自動的に閉じるまでの時間。
	DefaultTimeout = 3 * time.Second
	// DefaultPosition は通知の既定の表示位置。
	DefaultPosition = PositionTopRight
)

// Options は表示面の設定。全通知で共通の固定値を持つ。
type Options struct {
	// Timeout は表示時間。
	Timeout time.Duration
	// Position は表示位置。
	Position Position
}

// DefaultOptions は既定の表示設定（3秒、右上）を返す。
func DefaultOptions() Options {
	return Options{Timeout: DefaultTimeout, Position: DefaultPosition}
}

// Event は1件の通知を表す。
type Event struct {
	// Level は通知の重要度。
	Level Level `json:"level"`
	// Text は翻訳済みの表示テキスト。
	Text string `json:"text"`
}

// Display は表示面に渡す通知の形式。
type Display struct {
	// Level は通知の重要度。
	Level Level `json:"level"`
	// Text は表示テキスト。
	Text string `json:"text"`
	// TimeoutMS は表示時間（ミリ秒）。
	TimeoutMS int64 `json:"timeout_ms"`
	// Position は表示位置。
	Position Position `json:"position"`
}

// Render は通知の列を表示設定付きの形式に変換する。
// 通知が無い場合も空スライスを返す。
func (o Options) Render(events []Event) []Display {
	out := make([]Display, 0, len(events))
	for _, e := range events {
		out = append(out, Display{
			Level:     e.Level,
			Text:      e.Text,
			TimeoutMS: o.Timeout.Milliseconds(),
			Position:  o.Position,
		})
	}
	return out
}
