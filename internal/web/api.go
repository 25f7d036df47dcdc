package web

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	webdb "github.com/nao1215/textgen/internal/web/db"
	"github.com/nao1215/textgen/pkg/event"
	"github.com/nao1215/textgen/pkg/httpclient"
	"github.com/nao1215/textgen/pkg/middleware"
	"github.com/nao1215/textgen/pkg/toast"
)

// coreGeneratePath はテキスト生成バックエンドの生成エンドポイント。
const coreGeneratePath = "/api/v1/generate"

// 強制ログアウトの理由。SignedOut と SessionRejected イベントに記録する。
const (
	reasonInvalidToken        = "invalid_token"
	reasonUnknownUser         = "unknown_user"
	reasonDisabledUser        = "disabled_user"
	reasonBackendUnauthorized = "backend_unauthorized"
)

// eventsQuery はイベント一覧のクエリパラメータ。
type eventsQuery struct {
	// Limit は取得件数。省略時は50件。
	Limit int64 `form:"limit" binding:"omitempty,min=1,max=200"`
}

// userResponse は /api/v1/me のレスポンス。
type userResponse struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// lookupToken はクライアントストアに保存されたトークンを優先し、無ければ Bearer ヘッダーを使う。
func (s *Server) lookupToken(c *gin.Context) string {
	token, ok := s.guard(c, nil).Token(c.Request.Context())
	if !ok {
		token = middleware.BearerToken(c)
	}
	c.Set(contextKeyToken, token)
	return token
}

// rejectSession はトークンの検証に失敗したAPIリクエストを処理する。
// トークンが無い場合は401を返すだけで、無効なトークンの場合は強制ログアウトする。
func (s *Server) rejectSession(c *gin.Context, err error) {
	if errors.Is(err, middleware.ErrMissingToken) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":    s.t(c, "session"),
			"redirect": s.routes.SignIn(),
		})
		return
	}
	s.forceLogout(c, "", reasonInvalidToken)
}

// forceLogout はセッションを強制的に終了し、401とサインイン画面への遷移先を返す。
func (s *Server) forceLogout(c *gin.Context, userID, reason string) {
	ctx := c.Request.Context()
	guard := s.guard(c, s.apiNavigator(c))
	hadSession := guard.HasSession(ctx)

	s.record(c, userID, event.TypeSessionRejected, event.SessionRejectedData{
		Path:   c.Request.URL.Path,
		Reason: reason,
	})

	guard.Logout(ctx, toast.NewFlashSink(c.Writer, c.Request, s.cookieSecure), s.localizer(c))

	s.record(c, userID, event.TypeSignedOut, event.SignedOutData{
		Reason:     reason,
		HadSession: hadSession,
	})
}

// currentUser は検証済みトークンのユーザーを取得する。
// ユーザーが存在しないか無効化されている場合は強制ログアウトして false を返す。
func (s *Server) currentUser(c *gin.Context) (webdb.User, bool) {
	userID := middleware.GetUserID(c)
	user, err := s.queries.GetUserByID(c.Request.Context(), userID)
	if errors.Is(err, sql.ErrNoRows) {
		s.forceLogout(c, userID, reasonUnknownUser)
		return webdb.User{}, false
	}
	if err != nil {
		log.Printf("[Web] ユーザー取得に失敗: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": s.t(c, "internal_error")})
		return webdb.User{}, false
	}
	if user.Disabled {
		s.forceLogout(c, userID, reasonDisabledUser)
		return webdb.User{}, false
	}
	return user, true
}

// handleGetCurrentUser はサインイン中のユーザー情報を返すハンドラを返す。
func (s *Server) handleGetCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := s.currentUser(c)
		if !ok {
			return
		}
		resp := userResponse{
			ID:        user.ID,
			Username:  user.Username,
			Email:     user.Email,
			CreatedAt: user.CreatedAt,
		}
		if user.LastLoginAt.Valid {
			resp.LastLoginAt = &user.LastLoginAt.Time
		}
		c.JSON(http.StatusOK, resp)
	}
}

// handleListEvents はサインイン中のユーザーのセッションイベントを新しい順に返すハンドラを返す。
func (s *Server) handleListEvents() gin.HandlerFunc {
	return func(c *gin.Context) {
		var q eventsQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if q.Limit == 0 {
			q.Limit = 50
		}

		rows, err := s.queries.ListSessionEventsByUserID(c.Request.Context(), webdb.ListSessionEventsByUserIDParams{
			UserID: middleware.GetUserID(c),
			Limit:  q.Limit,
		})
		if err != nil {
			log.Printf("[Web] イベント一覧の取得に失敗: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": s.t(c, "internal_error")})
			return
		}

		events := make([]event.Event, 0, len(rows))
		for _, row := range rows {
			events = append(events, toEvent(row))
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	}
}

// handleGeneration はテキスト生成リクエストをバックエンドへ中継するハンドラを返す。
// バックエンドが401を返した場合はトークンが失効したものとして強制ログアウトする。
func (s *Server) handleGeneration() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.core == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": s.t(c, "backend_unavailable")})
			return
		}

		userID := middleware.GetUserID(c)
		ctx := httpclient.WithToken(c.Request.Context(), c.GetString(contextKeyToken))
		ctx = httpclient.WithUserID(ctx, userID)
		ctx = httpclient.WithLanguage(ctx, languageOf(c, s.defaultLang).String())

		resp, err := s.core.Forward(ctx, http.MethodPost, coreGeneratePath, c.ContentType(), c.Request.Body)
		if errors.Is(err, httpclient.ErrUnavailable) {
			log.Printf("[Web] テキスト生成バックエンドに接続できません: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": s.t(c, "backend_unavailable")})
			return
		}
		if errors.Is(err, httpclient.ErrResponseTooLarge) {
			log.Printf("[Web] テキスト生成バックエンドの応答が大きすぎます: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": s.t(c, "backend_unavailable")})
			return
		}
		if err != nil {
			log.Printf("[Web] プロキシエラー: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": s.t(c, "backend_unavailable")})
			return
		}

		if resp.StatusCode == http.StatusUnauthorized {
			s.forceLogout(c, userID, reasonBackendUnauthorized)
			return
		}

		contentType := resp.ContentType
		if contentType == "" {
			contentType = "application/json"
		}
		c.Data(resp.StatusCode, contentType, resp.Body)
	}
}
