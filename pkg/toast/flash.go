package toast

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

// CookieName は未表示の通知を運ぶCookie名。
const CookieName = "tg_toast"

// maxPending はCookieに保持する通知の上限。超えた分は古いものから捨てる。
const maxPending = 5

// FlashSink は1回のHTTPリクエスト/レスポンスに紐づく通知の送り先。
// 通知はレスポンスのCookieに積まれ、次の画面表示で Drain により取り出される。
type FlashSink struct {
	// w はCookieを書き込むレスポンス。
	w http.ResponseWriter
	// secure はCookieにSecure属性を付けるかどうか。
	secure bool
	// pending はまだ表示されていない通知。
	pending []Event
}

// NewFlashSink はリクエストに残っている未表示の通知を引き継いだ送り先を生成する。
func NewFlashSink(w http.ResponseWriter, r *http.Request, secure bool) *FlashSink {
	s := &FlashSink{w: w, secure: secure}
	if r != nil {
		if cookie, err := r.Cookie(CookieName); err == nil {
			s.pending = decode(cookie.Value)
		}
	}
	return s
}

// Notify は通知を積み、Cookieを書き直す。不明な重要度や空のテキストは無視する。
func (s *FlashSink) Notify(level Level, text string) {
	text = strings.TrimSpace(text)
	if !level.Valid() || text == "" {
		return
	}
	s.pending = append(s.pending, Event{Level: level, Text: text})
	if len(s.pending) > maxPending {
		s.pending = s.pending[len(s.pending)-maxPending:]
	}
	s.write()
}

// Pending は積まれている通知のコピーを返す。
func (s *FlashSink) Pending() []Event {
	out := make([]Event, len(s.pending))
	copy(out, s.pending)
	return out
}

func (s *FlashSink) write() {
	if s.w == nil {
		return
	}
	payload, err := json.Marshal(s.pending)
	if err != nil {
		return
	}
	http.SetCookie(s.w, &http.Cookie{
		Name:     CookieName,
		Value:    base64.RawURLEncoding.EncodeToString(payload),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Drain は未表示の通知を読み出し、Cookieを失効させる。
func Drain(w http.ResponseWriter, r *http.Request, secure bool) []Event {
	if r == nil {
		return nil
	}
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}
	if w != nil {
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
	return decode(cookie.Value)
}

// decode はCookie値を通知の列に戻す。壊れた値や不正な通知は捨てる。
func decode(raw string) []Event {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil
	}
	valid := events[:0]
	for _, e := range events {
		if e.Level.Valid() && strings.TrimSpace(e.Text) != "" {
			valid = append(valid, e)
		}
	}
	if len(valid) > maxPending {
		valid = valid[len(valid)-maxPending:]
	}
	return valid
}
