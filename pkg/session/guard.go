package session

import (
	"context"
	"log"

	"github.com/nao1215/textgen/pkg/route"
	"github.com/nao1215/textgen/pkg/toast"
)

const (
	// TokenKey はセッショントークンを保持するストアのキー。
	TokenKey = "token"
	// LangKey は表示言語の設定を保持するストアのキー。
	LangKey = "lang"
	// DefaultSignInPath はサインイン画面のパス。
	DefaultSignInPath = route.PathSignIn
	// MessageKeySession はセッション終了時の通知に使う翻訳キー。
	MessageKeySession = "session"
)

// Store は文字列キーと文字列値の永続ストア。クライアント単位で分離されている。
// 存在しないキーの Remove はエラーにしない。
type Store interface {
	// Get はキーの値を返す。キーが無ければ ok は false。
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set はキーに値を保存する。
	Set(ctx context.Context, key, value string) error
	// Remove はキーを削除する。
	Remove(ctx context.Context, key string) error
}

// Notifier は通知の送り先。
type Notifier interface {
	Notify(level toast.Level, text string)
}

// NotifierFunc は関数を Notifier として扱うためのアダプタ。
type NotifierFunc func(level toast.Level, text string)

// Notify は f(level, text) を呼ぶ。
func (f NotifierFunc) Notify(level toast.Level, text string) { f(level, text) }

// Navigator は画面遷移を起動する。遷移は起動した時点でルーティング側の責務になる。
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc は関数を Navigator として扱うためのアダプタ。
type NavigatorFunc func(path string)

// Navigate は f(path) を呼ぶ。
func (f NavigatorFunc) Navigate(path string) { f(path) }

// Localizer は翻訳キーを表示テキストに変換する。
type Localizer func(key string) string

// State はクライアントのセッション状態。
type State int

const (
	// StateAnonymous はトークンを持たない状態。
	StateAnonymous State = iota
	// StateAuthenticated は空でないトークンを持つ状態。
	StateAuthenticated
)

// String は状態名を返す。
func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "Authenticated"
	default:
		return "Anonymous"
	}
}

// Outcome は遷移判定の結果の種類。
type Outcome int

const (
	// OutcomeAllow は遷移を許可する。
	OutcomeAllow Outcome = iota
	// OutcomeRedirect はサインイン画面へ転送する。
	OutcomeRedirect
)

// Decision は遷移判定の結果。
type Decision struct {
	// Outcome は判定の種類。
	Outcome Outcome
	// Target は転送先のパス。Allow の場合は空。
	Target string
}

// Allowed は遷移が許可されたかどうかを返す。
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllow
}

// Guard はセッションの有無に基づいて遷移を判定し、ログアウトを実行する。
type Guard struct {
	// store はトークンを保持するクライアントストア。
	store Store
	// nav はログアウト後の遷移を起動する。
	nav Navigator
	// signInPath はサインイン画面のパス。
	signInPath string
	// logger はストアのエラーを記録する。
	logger *log.Logger
}

// Option は Guard の設定を変更する。
type Option func(*Guard)

// WithSignInPath はサインイン画面のパスを変更する。
func WithSignInPath(path string) Option {
	return func(g *Guard) {
		if path != "" {
			g.signInPath = path
		}
	}
}

// WithLogger はストアのエラーを記録するロガーを設定する。
func WithLogger(logger *log.Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGuard は新しい Guard を生成する。
func NewGuard(store Store, nav Navigator, opts ...Option) *Guard {
	g := &Guard{
		store:      store,
		nav:        nav,
		signInPath: DefaultSignInPath,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Token はストアに保存されたトークンを返す。空のトークンは存在しないものとして扱う。
func (g *Guard) Token(ctx context.Context) (string, bool) {
	token, ok, err := g.store.Get(ctx, TokenKey)
	if err != nil {
		g.logger.Printf("[Session] トークンの読み取りに失敗: %v", err)
		return "", false
	}
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// HasSession は空でないトークンがストアにある場合のみ true を返す。副作用は無い。
func (g *Guard) HasSession(ctx context.Context) bool {
	_, ok := g.Token(ctx)
	return ok
}

// State は現在のセッション状態をストアから導出する。
func (g *Guard) State(ctx context.Context) State {
	if g.HasSession(ctx) {
		return StateAuthenticated
	}
	return StateAnonymous
}

// Check は遷移先のルートを表示してよいかを判定する。
// 保護されたルートでセッションが無い場合のみサインイン画面へ転送する。
func (g *Guard) Check(ctx context.Context, r route.Route) Decision {
	if r.Protected && !g.HasSession(ctx) {
		return Decision{Outcome: OutcomeRedirect, Target: g.signInPath}
	}
	return Decision{Outcome: OutcomeAllow}
}

// Logout はセッションを終了する。
// 警告通知、トークン削除、サインイン画面への遷移をこの順に必ず実行する。
// トークンが無い場合やストアが失敗した場合もエラーは返さず、遷移まで実行する。
func (g *Guard) Logout(ctx context.Context, notifier Notifier, localize Localizer) {
	text := MessageKeySession
	if localize != nil {
		text = localize(MessageKeySession)
	}
	if notifier != nil {
		notifier.Notify(toast.LevelWarning, text)
	}

	if err := g.store.Remove(ctx, TokenKey); err != nil {
		g.logger.Printf("[Session] トークンの削除に失敗: %v", err)
	}

	if g.nav != nil {
		g.nav.Navigate(g.signInPath)
	}
}
