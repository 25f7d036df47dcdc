package web

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nao1215/textgen/pkg/session"
	"golang.org/x/text/language"
)

const (
	// clientCookieName はクライアントIDを保持するCookie名。
	clientCookieName = "tg_client"
	// clientCookieMaxAge はクライアントIDのCookieの有効期間（1年）。
	clientCookieMaxAge = 365 * 24 * 60 * 60

	contextKeyClientID = "client_id"
	contextKeyLanguage = "language"
	contextKeyToken    = "access_token"
)

// clientIdentity はリクエスト元のクライアントを識別するミドルウェアを返す。
// Cookieに有効なUUIDが無い場合は新しいIDを発行する。
func (s *Server) clientIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := ""
		if cookie, err := c.Request.Cookie(clientCookieName); err == nil {
			if parsed, err := uuid.Parse(cookie.Value); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = uuid.New().String()
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     clientCookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   clientCookieMaxAge,
				HttpOnly: true,
				Secure:   s.cookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		c.Set(contextKeyClientID, id)
		c.Next()
	}
}

// clientID はリクエスト元のクライアントIDを返す。
func clientID(c *gin.Context) string {
	return c.GetString(contextKeyClientID)
}

// resolveLocale は表示言語を決めるミドルウェアを返す。
// 優先順位は ?lang= の明示指定（ストアに保存する）、保存済みの言語、Accept-Language、既定言語の順。
func (s *Server) resolveLocale() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		store := s.store(c)
		tag := s.defaultLang

		if requested := c.Query("lang"); requested != "" {
			if supported, ok := s.bundle.Supports(requested); ok {
				if err := store.Set(ctx, session.LangKey, supported.String()); err != nil {
					log.Printf("[Web] 表示言語の保存に失敗: client=%s, error=%v", clientID(c), err)
				}
				c.Set(contextKeyLanguage, supported)
				c.Next()
				return
			}
		}

		if saved, ok, err := store.Get(ctx, session.LangKey); err != nil {
			log.Printf("[Web] 表示言語の読み取りに失敗: client=%s, error=%v", clientID(c), err)
		} else if ok {
			if supported, ok := s.bundle.Supports(saved); ok {
				c.Set(contextKeyLanguage, supported)
				c.Next()
				return
			}
		}

		if header := c.GetHeader("Accept-Language"); header != "" {
			tag = s.bundle.Match(header)
		}
		c.Set(contextKeyLanguage, tag)
		c.Next()
	}
}

// languageOf はリクエストの表示言語を返す。
func languageOf(c *gin.Context, fallback language.Tag) language.Tag {
	if v, ok := c.Get(contextKeyLanguage); ok {
		if tag, ok := v.(language.Tag); ok {
			return tag
		}
	}
	return fallback
}

// store はリクエスト元のクライアントストアを返す。
func (s *Server) store(c *gin.Context) session.Store {
	return s.stores.Open(clientID(c))
}

// localizer はリクエストの表示言語に固定した変換関数を返す。
func (s *Server) localizer(c *gin.Context) session.Localizer {
	return s.bundle.Localizer(languageOf(c, s.defaultLang))
}

// guard はリクエスト元のクライアントストアに対するセッションガードを生成する。
func (s *Server) guard(c *gin.Context, nav session.Navigator) *session.Guard {
	return session.NewGuard(s.store(c), nav, session.WithSignInPath(s.routes.SignIn()))
}

// redirectNavigator は遷移先へのリダイレクトを書き込むナビゲーターを返す。
func redirectNavigator(c *gin.Context, status int) session.Navigator {
	return session.NavigatorFunc(func(path string) {
		c.Redirect(status, path)
	})
}

// apiNavigator はAPIリクエストに対して401と遷移先を返すナビゲーターを返す。
func (s *Server) apiNavigator(c *gin.Context) session.Navigator {
	return session.NavigatorFunc(func(path string) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":    s.t(c, "session"),
			"redirect": path,
		})
	})
}
