package web

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	webdb "github.com/nao1215/textgen/internal/web/db"
	"github.com/nao1215/textgen/pkg/event"
	"github.com/nao1215/textgen/pkg/middleware"
	"github.com/nao1215/textgen/pkg/route"
	"github.com/nao1215/textgen/pkg/session"
	"github.com/nao1215/textgen/pkg/toast"
	"golang.org/x/crypto/bcrypt"
)

// signUpForm はサインアップフォームの入力。
type signUpForm struct {
	// Username はユーザー名。英数字3〜32文字。
	Username string `form:"username" json:"username" binding:"required,alphanum,min=3,max=32"`
	// Email はメールアドレス。
	Email string `form:"email" json:"email" binding:"required,email,max=254"`
	// Password はパスワード。bcryptの制約により72バイトまで。
	Password string `form:"password" json:"password" binding:"required,min=8,max=72"`
}

// signInForm はサインインフォームの入力。
type signInForm struct {
	// Username はユーザー名。
	Username string `form:"username" json:"username" binding:"required"`
	// Password はパスワード。
	Password string `form:"password" json:"password" binding:"required"`
}

// handleSignUp はサインアップのハンドラを返す。
// 成功時はサインイン画面へ、失敗時はサインアップ画面へ戻す。いずれもトーストで結果を伝える。
func (s *Server) handleSignUp() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		sink := toast.NewFlashSink(c.Writer, c.Request, s.cookieSecure)
		fail := func(key string) {
			sink.Notify(toast.LevelError, s.t(c, key))
			c.Redirect(http.StatusSeeOther, route.PathSignUp)
		}

		var form signUpForm
		if err := c.ShouldBind(&form); err != nil {
			fail("signup_failed")
			return
		}
		form.Username = strings.TrimSpace(form.Username)
		form.Email = strings.ToLower(strings.TrimSpace(form.Email))

		exists, err := s.queries.UserExists(ctx, webdb.UserExistsParams{
			Username: form.Username,
			Email:    form.Email,
		})
		if err != nil {
			log.Printf("[Web] ユーザーの存在確認に失敗: %v", err)
			fail("internal_error")
			return
		}
		if exists {
			fail("user_exists")
			return
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(form.Password), s.bcryptCost)
		if err != nil {
			log.Printf("[Web] パスワードのハッシュ化に失敗: %v", err)
			fail("internal_error")
			return
		}

		userID := uuid.New().String()
		if err := s.queries.CreateUser(ctx, webdb.CreateUserParams{
			ID:             userID,
			Username:       form.Username,
			Email:          form.Email,
			HashedPassword: string(hashed),
		}); err != nil {
			// 存在確認と作成の間に同じ名前で登録された場合も一意制約で失敗する
			log.Printf("[Web] ユーザー作成に失敗: %v", err)
			fail("user_exists")
			return
		}

		s.record(c, userID, event.TypeSignedUp, event.SignedUpData{
			Username: form.Username,
			Email:    form.Email,
		})
		sink.Notify(toast.LevelSuccess, s.t(c, "signup_success"))
		c.Redirect(http.StatusSeeOther, s.routes.SignIn())
	}
}

// handleSignIn はサインインのハンドラを返す。
// 認証に成功したらアクセストークンをクライアントストアに保存し、テキスト生成画面へ遷移させる。
func (s *Server) handleSignIn() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		sink := toast.NewFlashSink(c.Writer, c.Request, s.cookieSecure)
		fail := func(key string) {
			sink.Notify(toast.LevelError, s.t(c, key))
			c.Redirect(http.StatusSeeOther, s.routes.SignIn())
		}

		var form signInForm
		if err := c.ShouldBind(&form); err != nil {
			fail("signin_failed")
			return
		}

		user, err := s.queries.GetUserByUsername(ctx, strings.TrimSpace(form.Username))
		if errors.Is(err, sql.ErrNoRows) {
			fail("signin_failed")
			return
		}
		if err != nil {
			log.Printf("[Web] ユーザー取得に失敗: %v", err)
			fail("internal_error")
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(form.Password)); err != nil {
			fail("signin_failed")
			return
		}
		if user.Disabled {
			fail("signin_failed")
			return
		}

		token, err := middleware.GenerateJWT(s.jwtSecret, user.ID, user.Username, s.tokenTTL)
		if err != nil {
			log.Printf("[Web] JWT生成エラー: %v", err)
			fail("internal_error")
			return
		}
		if err := s.store(c).Set(ctx, session.TokenKey, token); err != nil {
			log.Printf("[Web] トークンの保存に失敗: client=%s, error=%v", clientID(c), err)
			fail("internal_error")
			return
		}
		if err := s.queries.UpdateLastLogin(ctx, user.ID); err != nil {
			log.Printf("[Web] 最終サインイン日時の更新に失敗: %v", err)
		}

		s.record(c, user.ID, event.TypeSignedIn, event.SignedInData{
			Username:  user.Username,
			ExpiresAt: time.Now().Add(s.tokenTTL).UTC(),
		})

		sink.Notify(toast.LevelSuccess, s.t(c, "signin_success"))
		c.Redirect(http.StatusSeeOther, route.PathGeneration)
	}
}

// handleLogout はログアウトのハンドラを返す。
// トークンの有無にかかわらず、警告トースト・トークン削除・サインイン画面への遷移を実行する。
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		guard := s.guard(c, redirectNavigator(c, http.StatusSeeOther))

		token, hadSession := guard.Token(ctx)
		userID := ""
		if hadSession {
			if claims, err := middleware.ParseJWT(s.jwtSecret, token); err == nil {
				userID = claims.UserID
			}
		}

		guard.Logout(ctx, toast.NewFlashSink(c.Writer, c.Request, s.cookieSecure), s.localizer(c))

		s.record(c, userID, event.TypeSignedOut, event.SignedOutData{
			Reason:     "user",
			HadSession: hadSession,
		})
	}
}
