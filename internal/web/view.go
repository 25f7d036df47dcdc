package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/textgen/pkg/event"
	"github.com/nao1215/textgen/pkg/route"
	"github.com/nao1215/textgen/pkg/toast"
)

// titleKeys は画面パスから画面タイトルの翻訳キーへの対応。
var titleKeys = map[string]string{
	route.PathHome:       "home",
	route.PathGeneration: "generation",
	route.PathSignUp:     "signup",
	route.PathSignIn:     "signin",
	route.PathProfile:    "profile",
}

// viewState はフロントエンドが画面を描画するための状態。
type viewState struct {
	// View は表示する画面の名前。
	View string `json:"view"`
	// Path は画面のパス。
	Path string `json:"path"`
	// Lang は表示言語のタグ。
	Lang string `json:"lang"`
	// Authenticated はセッションがあるかどうか。
	Authenticated bool `json:"authenticated"`
	// Title は翻訳済みの画面タイトル。
	Title string `json:"title"`
	// Nav はナビゲーションに表示する項目。
	Nav []navItem `json:"nav"`
	// Toasts は表示待ちのトースト。
	Toasts []toast.Display `json:"toasts"`
}

// navItem はナビゲーションの1項目。
type navItem struct {
	// Path は遷移先。
	Path string `json:"path"`
	// Title は翻訳済みの表示名。
	Title string `json:"title"`
	// Method はPOSTで送信する項目（ログアウト）の場合のみ設定する。
	Method string `json:"method,omitempty"`
}

// handleView は画面遷移のハンドラを返す。
// セッションガードの判定が転送の場合は表示せずにサインイン画面へリダイレクトする。
func (s *Server) handleView(r route.Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		guard := s.guard(c, nil)

		decision := guard.Check(ctx, r)
		if !decision.Allowed() {
			s.record(c, "", event.TypeAccessDenied, event.AccessDeniedData{
				Path:   r.Path,
				Target: decision.Target,
			})
			c.Redirect(http.StatusFound, decision.Target)
			return
		}

		authenticated := guard.HasSession(ctx)
		c.JSON(http.StatusOK, viewState{
			View:          r.Name,
			Path:          r.Path,
			Lang:          languageOf(c, s.defaultLang).String(),
			Authenticated: authenticated,
			Title:         s.title(c, r),
			Nav:           s.navigation(c, authenticated),
			Toasts:        s.toastOptions.Render(toast.Drain(c.Writer, c.Request, s.cookieSecure)),
		})
	}
}

// title は画面タイトルを翻訳する。翻訳キーが無い画面は画面名を使う。
func (s *Server) title(c *gin.Context, r route.Route) string {
	key, ok := titleKeys[r.Path]
	if !ok {
		return r.Name
	}
	return s.t(c, key)
}

// navigation はセッションの有無に応じたナビゲーション項目を返す。
// セッションがある場合は保護された画面とログアウトを、無い場合はサインアップとサインインを表示する。
func (s *Server) navigation(c *gin.Context, authenticated bool) []navItem {
	items := []navItem{}
	for _, r := range s.routes.Routes() {
		switch {
		case r.Protected && !authenticated:
			continue
		case authenticated && (r.Path == route.PathSignIn || r.Path == route.PathSignUp):
			continue
		}
		items = append(items, navItem{Path: r.Path, Title: s.title(c, r)})
	}
	if authenticated {
		items = append(items, navItem{Path: "/logout", Title: s.t(c, "logout"), Method: http.MethodPost})
	}
	return items
}
