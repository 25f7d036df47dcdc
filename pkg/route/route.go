// Package route はパスと画面の対応表（ルートテーブル）を提供する。
// テーブルは起動時に一度だけ構築され、以後は変更されない。
package route

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// PathHome はトップ画面のパス。
	PathHome = "/"
	// PathGeneration はテキスト生成画面のパス。
	PathGeneration = "/generation"
	// PathSignUp はユーザー登録画面のパス。
	PathSignUp = "/signup"
	// PathSignIn はサインイン画面のパス。
	PathSignIn = "/signin"
	// PathProfile はプロフィール画面のパス。
	PathProfile = "/profile"
)

// Route はパスから画面への1件の対応を表す。
type Route struct {
	// Path はリクエストパス。
	Path string `json:"path"`
	// Name は画面の識別子。
	Name string `json:"name"`
	// Protected が true の画面はセッションが無いと表示できない。
	Protected bool `json:"protected"`
}

// Table は宣言順を保持した不変のルートテーブル。
type Table struct {
	routes []Route
	byPath map[string]Route
	signIn string
}

// ErrInvalidRoute はルート定義が不正な場合のエラー。
var ErrInvalidRoute = errors.New("ルート定義が不正です")

// NewTable はルートテーブルを生成する。signInPath はテーブル内の公開ルートである必要がある。
func NewTable(signInPath string, routes ...Route) (*Table, error) {
	t := &Table{
		routes: make([]Route, 0, len(routes)),
		byPath: make(map[string]Route, len(routes)),
		signIn: signInPath,
	}
	for _, r := range routes {
		if !strings.HasPrefix(r.Path, "/") {
			return nil, fmt.Errorf("%w: パスは/で始まる必要があります: %q", ErrInvalidRoute, r.Path)
		}
		if strings.TrimSpace(r.Name) == "" {
			return nil, fmt.Errorf("%w: 画面名が空です: %q", ErrInvalidRoute, r.Path)
		}
		if _, dup := t.byPath[r.Path]; dup {
			return nil, fmt.Errorf("%w: パスが重複しています: %q", ErrInvalidRoute, r.Path)
		}
		t.routes = append(t.routes, r)
		t.byPath[r.Path] = r
	}

	signIn, ok := t.byPath[signInPath]
	if !ok {
		return nil, fmt.Errorf("%w: サインイン画面 %q が定義されていません", ErrInvalidRoute, signInPath)
	}
	if signIn.Protected {
		// 保護されたサインイン画面はリダイレクトが無限に続く
		return nil, fmt.Errorf("%w: サインイン画面 %q は保護できません", ErrInvalidRoute, signInPath)
	}
	return t, nil
}

// Default はアプリケーションの標準ルートテーブルを返す。
// テキスト生成画面とプロフィール画面をセッション必須とする。
func Default() *Table {
	t, err := NewTable(PathSignIn,
		Route{Path: PathHome, Name: "HomePage"},
		Route{Path: PathGeneration, Name: "TextPage", Protected: true},
		Route{Path: PathSignUp, Name: "SignUp"},
		Route{Path: PathSignIn, Name: "SignIn"},
		Route{Path: PathProfile, Name: "UserProfile", Protected: true},
	)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup はパスに対応するルートを返す。
func (t *Table) Lookup(path string) (Route, bool) {
	r, ok := t.byPath[path]
	return r, ok
}

// Routes は宣言順のルート一覧のコピーを返す。
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// SignIn はサインイン画面のパスを返す。
func (t *Table) SignIn() string {
	return t.signIn
}
