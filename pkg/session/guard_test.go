package session

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/textgen/pkg/i18n"
	"github.com/nao1215/textgen/pkg/route"
	"github.com/nao1215/textgen/pkg/toast"
	"golang.org/x/text/language"
)

// recorder は各協調オブジェクトの呼び出しを順に記録する。
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

// fakeStore はテスト用のインメモリストア。Removeを記録する。
type fakeStore struct {
	mu   sync.Mutex
	data map[string]string
	rec  *recorder
	// getErr が設定されている場合、Getはこのエラーを返す。
	getErr error
	// removeErr が設定されている場合、Removeはこのエラーを返す。
	removeErr error
}

func newFakeStore(rec *recorder) *fakeStore {
	return &fakeStore{data: map[string]string{}, rec: rec}
}

func (s *fakeStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", false, s.getErr
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *fakeStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *fakeStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec != nil {
		s.rec.add("remove:" + key)
	}
	if s.removeErr != nil {
		return s.removeErr
	}
	delete(s.data, key)
	return nil
}

func (s *fakeStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

// notification は記録された通知。
type notification struct {
	level toast.Level
	text  string
}

// harness はGuardと記録用の協調オブジェクトの組。
type harness struct {
	guard         *Guard
	store         *fakeStore
	rec           *recorder
	notifications []notification
	navigations   []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{rec: &recorder{}}
	h.store = newFakeStore(h.rec)
	h.guard = NewGuard(h.store, NavigatorFunc(func(path string) {
		h.rec.add("navigate:" + path)
		h.navigations = append(h.navigations, path)
	}), WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	return h
}

func (h *harness) notifier() Notifier {
	return NotifierFunc(func(level toast.Level, text string) {
		h.rec.add("notify:" + string(level))
		h.notifications = append(h.notifications, notification{level: level, text: text})
	})
}

func loadBundle(t *testing.T) *i18n.Bundle {
	t.Helper()
	b, err := i18n.Load()
	if err != nil {
		t.Fatalf("カタログの読み込みに失敗: %v", err)
	}
	return b
}

// TestGuardHasSession はHasSessionの判定を検証する。
func TestGuardHasSession(t *testing.T) {
	t.Parallel()

	t.Run("トークンがある場合trueを返すこと", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.store.data[TokenKey] = "abc123"

		if !h.guard.HasSession(t.Context()) {
			t.Error("HasSession() = false, want true")
		}
		if h.guard.State(t.Context()) != StateAuthenticated {
			t.Errorf("State() = %v, want Authenticated", h.guard.State(t.Context()))
		}
		if len(h.rec.list()) != 0 {
			t.Errorf("HasSessionが副作用を起こした: %v", h.rec.list())
		}
	})

	t.Run("ストアが空の場合falseを返すこと", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		if h.guard.HasSession(t.Context()) {
			t.Error("HasSession() = true, want false")
		}
		if h.guard.State(t.Context()) != StateAnonymous {
			t.Errorf("State() = %v, want Anonymous", h.guard.State(t.Context()))
		}
	})

	t.Run("空文字列のトークンはセッション無しとして扱うこと", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.store.data[TokenKey] = ""
		if h.guard.HasSession(t.Context()) {
			t.Error("HasSession() = true, want false")
		}
	})

	t.Run("ストアの読み取りに失敗した場合falseを返すこと", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.store.data[TokenKey] = "abc123"
		h.store.getErr = errors.New("ストア障害")
		if h.guard.HasSession(t.Context()) {
			t.Error("HasSession() = true, want false")
		}
	})

	t.Run("状態はキャッシュされずストアから毎回導出されること", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		if h.guard.HasSession(t.Context()) {
			t.Fatal("初期状態でセッションがある")
		}
		if err := h.store.Set(t.Context(), TokenKey, "abc123"); err != nil {
			t.Fatal(err)
		}
		if !h.guard.HasSession(t.Context()) {
			t.Error("外部で保存されたトークンが反映されていない")
		}
	})
}

// TestGuardCheck は遷移判定を検証する。
func TestGuardCheck(t *testing.T) {
	t.Parallel()

	protected := route.Route{Path: "/generation", Name: "TextPage", Protected: true}
	open := route.Route{Path: "/", Name: "HomePage"}

	tests := []struct {
		name       string
		r          route.Route
		token      string
		wantAllow  bool
		wantTarget string
	}{
		{name: "保護ルートでセッション無しは転送", r: protected, wantTarget: "/signin"},
		{name: "保護ルートでセッション有りは許可", r: protected, token: "abc123", wantAllow: true},
		{name: "公開ルートでセッション無しは許可", r: open, wantAllow: true},
		{name: "公開ルートでセッション有りは許可", r: open, token: "abc123", wantAllow: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			if tt.token != "" {
				h.store.data[TokenKey] = tt.token
			}

			got := h.guard.Check(t.Context(), tt.r)
			if got.Allowed() != tt.wantAllow {
				t.Errorf("Allowed() = %v, want %v", got.Allowed(), tt.wantAllow)
			}
			if got.Target != tt.wantTarget {
				t.Errorf("Target = %q, want %q", got.Target, tt.wantTarget)
			}
		})
	}

	t.Run("標準テーブルのすべてのルートで性質が成り立つこと", func(t *testing.T) {
		t.Parallel()

		for _, r := range route.Default().Routes() {
			anon := newHarness(t)
			if d := anon.guard.Check(t.Context(), r); d.Allowed() == r.Protected {
				t.Errorf("%s: セッション無しの判定 = %+v", r.Path, d)
			}

			authed := newHarness(t)
			authed.store.data[TokenKey] = "abc123"
			if d := authed.guard.Check(t.Context(), r); !d.Allowed() {
				t.Errorf("%s: セッション有りの判定 = %+v", r.Path, d)
			}
		}
	})

	t.Run("サインイン画面のパスを変更できること", func(t *testing.T) {
		t.Parallel()

		g := NewGuard(newFakeStore(nil), nil, WithSignInPath("/login"))
		if d := g.Check(t.Context(), protected); d.Target != "/login" {
			t.Errorf("Target = %q, want %q", d.Target, "/login")
		}
	})
}

// TestGuardLogout はログアウトの副作用を検証する。
func TestGuardLogout(t *testing.T) {
	t.Parallel()

	t.Run("通知、削除、遷移の順に実行されること", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.store.data[TokenKey] = "abc123"

		h.guard.Logout(t.Context(), h.notifier(), func(key string) string { return key })

		want := []string{"notify:warning", "remove:token", "navigate:/signin"}
		got := h.rec.list()
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("呼び出し順 = %v, want %v", got, want)
		}
		if h.guard.HasSession(t.Context()) {
			t.Error("ログアウト後もセッションが残っている")
		}
	})

	t.Run("2回続けて呼んでも両方が最後まで実行されること", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.store.data[TokenKey] = "abc123"

		h.guard.Logout(t.Context(), h.notifier(), nil)
		if h.store.has(TokenKey) {
			t.Error("1回目の後にトークンが残っている")
		}
		h.guard.Logout(t.Context(), h.notifier(), nil)
		if h.store.has(TokenKey) {
			t.Error("2回目の後にトークンが残っている")
		}

		if len(h.notifications) != 2 {
			t.Errorf("通知回数 = %d, want 2", len(h.notifications))
		}
		if len(h.navigations) != 2 {
			t.Errorf("遷移回数 = %d, want 2", len(h.navigations))
		}
	})

	t.Run("セッションが無い状態でもエラー無く完了すること", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.guard.Logout(t.Context(), h.notifier(), nil)

		if len(h.notifications) != 1 || len(h.navigations) != 1 {
			t.Errorf("通知 = %d, 遷移 = %d, want 1, 1", len(h.notifications), len(h.navigations))
		}
	})

	t.Run("ストアの削除に失敗しても遷移まで実行されること", func(t *testing.T) {
		t.Parallel()

		var logs bytes.Buffer
		rec := &recorder{}
		store := newFakeStore(rec)
		store.removeErr = errors.New("ストア障害")
		var navigated string
		g := NewGuard(store, NavigatorFunc(func(path string) { navigated = path }), WithLogger(log.New(&logs, "", 0)))

		g.Logout(t.Context(), nil, nil)

		if navigated != "/signin" {
			t.Errorf("遷移先 = %q, want /signin", navigated)
		}
		if !strings.Contains(logs.String(), "トークンの削除に失敗") {
			t.Errorf("削除失敗がログに出力されていない: %q", logs.String())
		}
	})

	t.Run("翻訳関数が無い場合は翻訳キーをそのまま通知すること", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.guard.Logout(t.Context(), h.notifier(), nil)

		if h.notifications[0].text != MessageKeySession {
			t.Errorf("通知テキスト = %q, want %q", h.notifications[0].text, MessageKeySession)
		}
	})
}

// TestGuardScenarios は代表的な利用シナリオを検証する。
func TestGuardScenarios(t *testing.T) {
	t.Parallel()

	bundle := loadBundle(t)

	t.Run("トークンabc123がある場合セッション有りと判定されること", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.store.data[TokenKey] = "abc123"
		if !h.guard.HasSession(t.Context()) {
			t.Error("HasSession() = false, want true")
		}
	})

	t.Run("ストアが空の場合保護ルートはサインイン画面へ転送されること", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		d := h.guard.Check(t.Context(), route.Route{Path: "/profile", Name: "UserProfile", Protected: true})
		if d.Outcome != OutcomeRedirect || d.Target != "/signin" {
			t.Errorf("Check() = %+v, want Redirect(/signin)", d)
		}
	})

	for _, tc := range []struct {
		name string
		tag  language.Tag
	}{
		{name: "英語", tag: language.English},
		{name: "ロシア語", tag: language.Russian},
	} {
		t.Run(tc.name+"ロケールでログアウトすると翻訳済みの警告が通知されること", func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			h.store.data[TokenKey] = "abc123"

			h.guard.Logout(t.Context(), h.notifier(), bundle.Localizer(tc.tag))

			want := bundle.Localize(tc.tag, "session")
			if len(h.notifications) != 1 {
				t.Fatalf("通知回数 = %d, want 1", len(h.notifications))
			}
			if h.notifications[0].level != toast.LevelWarning {
				t.Errorf("通知レベル = %q, want warning", h.notifications[0].level)
			}
			if h.notifications[0].text != want {
				t.Errorf("通知テキスト = %q, want %q", h.notifications[0].text, want)
			}
			if h.store.has(TokenKey) {
				t.Error("ストアにトークンが残っている")
			}
			if len(h.navigations) != 1 || h.navigations[0] != "/signin" {
				t.Errorf("遷移 = %v, want [/signin]", h.navigations)
			}
		})
	}
}

// TestStateString は状態名を検証する。
func TestStateString(t *testing.T) {
	t.Parallel()

	if StateAnonymous.String() != "Anonymous" {
		t.Errorf("StateAnonymous = %q", StateAnonymous.String())
	}
	if StateAuthenticated.String() != "Authenticated" {
		t.Errorf("StateAuthenticated = %q", StateAuthenticated.String())
	}
}
