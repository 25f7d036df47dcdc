package web

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/nao1215/textgen/internal/config"
	webdb "github.com/nao1215/textgen/internal/web/db"
	"github.com/nao1215/textgen/pkg/event"
	"github.com/nao1215/textgen/pkg/middleware"
	"github.com/nao1215/textgen/pkg/session"
	"github.com/nao1215/textgen/pkg/toast"
)

// TestSignUp はサインアップを検証する。
func TestSignUp(t *testing.T) {
	t.Parallel()

	t.Run("登録に成功するとサインイン画面へ遷移しユーザーが作成されること", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		tc := newTestClient(t, s)
		tc.get("/")
		tc.signUp("alice", "Alice@Example.com")

		user, err := s.queries.GetUserByUsername(t.Context(), "alice")
		if err != nil {
			t.Fatalf("ユーザーが作成されていない: %v", err)
		}
		if user.Email != "alice@example.com" {
			t.Errorf("Email = %q, want 小文字に正規化された値", user.Email)
		}
		if user.HashedPassword == testPassword {
			t.Error("パスワードが平文で保存されている")
		}
		if got := countEvents(t, s, tc.clientID(), event.TypeSignedUp); got != 1 {
			t.Errorf("SignedUp = %d, want 1", got)
		}

		v := tc.view("/signin")
		if len(v.Toasts) != 1 || v.Toasts[0].Level != toast.LevelSuccess {
			t.Errorf("toasts = %+v", v.Toasts)
		}
	})

	t.Run("JSONでも登録できること", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		tc := newTestClient(t, s)
		w := tc.postJSON("/signup", `{"username":"carol","email":"carol@example.com","password":"`+testPassword+`"}`)
		if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/signin" {
			t.Fatalf("status=%d, location=%s", w.Code, w.Header().Get("Location"))
		}
	})

	invalid := []struct {
		name   string
		values url.Values
	}{
		{name: "短いパスワード", values: url.Values{"username": {"dave"}, "email": {"dave@example.com"}, "password": {"short"}}},
		{name: "不正なメールアドレス", values: url.Values{"username": {"dave"}, "email": {"not-an-email"}, "password": {testPassword}}},
		{name: "記号を含むユーザー名", values: url.Values{"username": {"da ve!"}, "email": {"dave@example.com"}, "password": {testPassword}}},
		{name: "ユーザー名なし", values: url.Values{"email": {"dave@example.com"}, "password": {testPassword}}},
	}
	for _, tt := range invalid {
		t.Run(tt.name+"は登録できずサインアップ画面へ戻ること", func(t *testing.T) {
			t.Parallel()

			s := newTestServer(t)
			tc := newTestClient(t, s)
			w := tc.postForm("/signup", tt.values)
			if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/signup" {
				t.Fatalf("status=%d, location=%s", w.Code, w.Header().Get("Location"))
			}
			v := tc.view("/signup")
			if len(v.Toasts) != 1 || v.Toasts[0].Level != toast.LevelError {
				t.Fatalf("toasts = %+v", v.Toasts)
			}
			if v.Toasts[0].Text != "Registration failed. Check the entered data." {
				t.Errorf("text = %q", v.Toasts[0].Text)
			}
		})
	}

	t.Run("登録済みのユーザー名とメールアドレスは拒否されること", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		tc := newTestClient(t, s)
		tc.get("/")
		tc.signUp("erin", "erin@example.com")
		tc.view("/signin")

		for _, values := range []url.Values{
			{"username": {"erin"}, "email": {"other@example.com"}, "password": {testPassword}},
			{"username": {"other"}, "email": {"ERIN@example.com"}, "password": {testPassword}},
		} {
			w := tc.postForm("/signup", values)
			if w.Header().Get("Location") != "/signup" {
				t.Errorf("location = %s, want /signup", w.Header().Get("Location"))
			}
			v := tc.view("/signup")
			if len(v.Toasts) != 1 || v.Toasts[0].Text != "A user with this username or email already exists." {
				t.Errorf("toasts = %+v", v.Toasts)
			}
		}
	})
}

// TestSignIn はサインインを検証する。
func TestSignIn(t *testing.T) {
	t.Parallel()

	t.Run("サインインに成功するとトークンが保存されること", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		tc := newSignedInClient(t, s, "alice")

		token, ok := tc.token()
		if !ok {
			t.Fatal("トークンが保存されていない")
		}
		claims, err := middleware.ParseJWT(testJWTSecret, token)
		if err != nil {
			t.Fatalf("保存されたトークンが無効: %v", err)
		}
		if claims.Username != "alice" {
			t.Errorf("Username = %q, want alice", claims.Username)
		}
		user, err := s.queries.GetUserByUsername(t.Context(), "alice")
		if err != nil {
			t.Fatal(err)
		}
		if claims.UserID != user.ID {
			t.Errorf("UserID = %q, want %q", claims.UserID, user.ID)
		}
		if !user.LastLoginAt.Valid {
			t.Error("最終サインイン日時が更新されていない")
		}
		if got := countEvents(t, s, tc.clientID(), event.TypeSignedIn); got != 1 {
			t.Errorf("SignedIn = %d, want 1", got)
		}
	})

	failures := []struct {
		name     string
		username string
		password string
	}{
		{name: "誤ったパスワード", username: "alice", password: "wrong-password"},
		{name: "存在しないユーザー", username: "nobody", password: testPassword},
		{name: "空のパスワード", username: "alice", password: ""},
	}
	for _, tt := range failures {
		t.Run(tt.name+"ではサインインできないこと", func(t *testing.T) {
			t.Parallel()

			s := newTestServer(t)
			tc := newTestClient(t, s)
			tc.get("/")
			tc.signUp("alice", "alice@example.com")
			tc.view("/signin")

			w := tc.postForm("/signin", url.Values{"username": {tt.username}, "password": {tt.password}})
			if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/signin" {
				t.Fatalf("status=%d, location=%s", w.Code, w.Header().Get("Location"))
			}
			if _, ok := tc.token(); ok {
				t.Error("失敗したサインインでトークンが保存された")
			}
			v := tc.view("/signin")
			if len(v.Toasts) != 1 || v.Toasts[0].Text != "Invalid username or password." {
				t.Errorf("toasts = %+v", v.Toasts)
			}
		})
	}

	t.Run("無効化されたユーザーはサインインできないこと", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		tc := newTestClient(t, s)
		tc.get("/")
		tc.signUp("frank", "frank@example.com")
		user, err := s.queries.GetUserByUsername(t.Context(), "frank")
		if err != nil {
			t.Fatal(err)
		}
		if err := s.queries.SetUserDisabled(t.Context(), webdb.SetUserDisabledParams{Disabled: true, ID: user.ID}); err != nil {
			t.Fatal(err)
		}

		w := tc.postForm("/signin", url.Values{"username": {"frank"}, "password": {testPassword}})
		if w.Header().Get("Location") != "/signin" {
			t.Errorf("location = %s, want /signin", w.Header().Get("Location"))
		}
		if _, ok := tc.token(); ok {
			t.Error("無効化されたユーザーのトークンが保存された")
		}
	})
}

// TestLogout はログアウトを検証する。
func TestLogout(t *testing.T) {
	t.Parallel()

	t.Run("セッションありのログアウトで警告・トークン削除・サインイン画面への遷移が行われること", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		tc := newSignedInClient(t, s, "alice")

		w := tc.postForm("/logout", nil)
		if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/signin" {
			t.Fatalf("status=%d, location=%s", w.Code, w.Header().Get("Location"))
		}
		if _, ok := tc.token(); ok {
			t.Error("ログアウト後にトークンが残っている")
		}

		v := tc.view("/signin")
		if len(v.Toasts) != 1 {
			t.Fatalf("toasts = %+v, want 1", v.Toasts)
		}
		if v.Toasts[0].Level != toast.LevelWarning || v.Toasts[0].Text != sessionEndedEN {
			t.Errorf("toast = %+v", v.Toasts[0])
		}
		if v.Authenticated {
			t.Error("ログアウト後もauthenticated = true")
		}
		if w := tc.get("/generation"); w.Code != http.StatusFound {
			t.Errorf("ログアウト後の保護画面: ステータスコード = %d, want %d", w.Code, http.StatusFound)
		}
	})

	t.Run("ロシア語ではロシア語の警告が表示されること", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		tc := newTestClient(t, s)
		tc.view("/?lang=ru")
		tc.signUp("boris", "boris@example.com")
		tc.signIn("boris")

		tc.postForm("/logout", nil)
		v := tc.view("/signin")
		if len(v.Toasts) != 1 || v.Toasts[0].Text != sessionEndedRU {
			t.Errorf("toasts = %+v", v.Toasts)
		}
		if v.Lang != "ru" {
			t.Errorf("lang = %q, ログアウト後も言語設定は残るべき", v.Lang)
		}
	})

	t.Run("セッションなしでもログアウトが完了すること", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		tc := newTestClient(t, s)
		tc.get("/")

		w := tc.postForm("/logout", nil)
		if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/signin" {
			t.Fatalf("status=%d, location=%s", w.Code, w.Header().Get("Location"))
		}
		v := tc.view("/signin")
		if len(v.Toasts) != 1 || v.Toasts[0].Text != sessionEndedEN {
			t.Errorf("toasts = %+v", v.Toasts)
		}
	})

	t.Run("2回続けてログアウトしても通知と遷移が2回行われること", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		tc := newSignedInClient(t, s, "alice")

		for i := range 2 {
			w := tc.postForm("/logout", nil)
			if w.Header().Get("Location") != "/signin" {
				t.Errorf("%d回目: location = %s", i+1, w.Header().Get("Location"))
			}
			if _, ok := tc.token(); ok {
				t.Errorf("%d回目: トークンが残っている", i+1)
			}
		}

		v := tc.view("/signin")
		if len(v.Toasts) != 2 {
			t.Fatalf("toasts = %+v, want 2", v.Toasts)
		}
		for _, d := range v.Toasts {
			if d.Level != toast.LevelWarning || d.Text != sessionEndedEN {
				t.Errorf("toast = %+v", d)
			}
		}
		if got := countEvents(t, s, tc.clientID(), event.TypeSignedOut); got != 2 {
			t.Errorf("SignedOut = %d, want 2", got)
		}
	})

	t.Run("トークン以外の値はログアウトで消えないこと", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		tc := newTestClient(t, s)
		tc.view("/?lang=ru")
		if err := tc.store().Set(t.Context(), session.TokenKey, "abc123"); err != nil {
			t.Fatal(err)
		}

		tc.postForm("/logout", nil)
		if _, ok := tc.token(); ok {
			t.Error("トークンが残っている")
		}
		if lang, ok, _ := tc.store().Get(t.Context(), session.LangKey); !ok || lang != "ru" {
			t.Errorf("lang = %q, %v, want ru", lang, ok)
		}
	})
}

// TestStoreBackends はすべてのクライアントストアでサインインとログアウトが動作することを検証する。
func TestStoreBackends(t *testing.T) {
	t.Parallel()

	backends := map[string]func(t *testing.T, cfg *config.Config){
		"sqlite": func(_ *testing.T, cfg *config.Config) {
			cfg.StoreBackend = "sqlite"
		},
		"redis": func(t *testing.T, cfg *config.Config) {
			mr := miniredis.RunT(t)
			cfg.StoreBackend = "redis"
			cfg.RedisAddr = mr.Addr()
		},
	}
	for name, configure := range backends {
		t.Run(name+"でサインインとログアウトができること", func(t *testing.T) {
			t.Parallel()

			s := newTestServer(t, func(cfg *config.Config) { configure(t, cfg) })
			tc := newSignedInClient(t, s, "alice")
			if _, ok := tc.token(); !ok {
				t.Fatal("トークンが保存されていない")
			}

			tc.postForm("/logout", nil)
			if _, ok := tc.token(); ok {
				t.Error("ログアウト後にトークンが残っている")
			}
			if w := tc.get("/generation"); w.Code != http.StatusFound {
				t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusFound)
			}
		})
	}
}
