package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Issuer はこのアプリケーションが発行するアクセストークンの発行者名。
const Issuer = "textgen-web"

// コンテキストキー。TokenAuth が検証済みのクレームを格納する。
const (
	contextKeyUserID   = "user_id"
	contextKeyUsername = "username"
)

// headerKeyUserID は下流サービスへユーザーIDを伝播するためのHTTPヘッダーキー。
const headerKeyUserID = "X-User-ID"

var (
	// ErrMissingToken はリクエストにアクセストークンが含まれていない場合のエラー。
	ErrMissingToken = errors.New("アクセストークンがありません")
	// ErrInvalidToken はアクセストークンの署名・有効期限・発行者のいずれかが不正な場合のエラー。
	ErrInvalidToken = errors.New("アクセストークンが無効です")
)

// Claims はアクセストークンのクレーム（ペイロード）を表す。
type Claims struct {
	jwt.RegisteredClaims
	// UserID は認証済みユーザーの一意識別子。
	UserID string `json:"user_id"`
	// Username はサインインに使ったユーザー名。
	Username string `json:"username"`
}

// GenerateJWT はユーザー情報から有効期限 ttl のアクセストークンを生成する。
// サインイン成功時に呼び出され、結果はクライアントストアの "token" に保存される。
func GenerateJWT(secret, userID, username string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("JWTシークレットが空です")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    Issuer,
		},
		UserID:   userID,
		Username: username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// ParseJWT はアクセストークンを検証してクレームを返す。
// HS256以外の署名方式、期限切れ、発行者違いはすべて ErrInvalidToken になる。
func ParseJWT(secret, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: user_id がありません", ErrInvalidToken)
	}
	return claims, nil
}

// TokenLookup はリクエストからアクセストークンを取り出す関数。
// 見つからない場合は空文字列を返す。
type TokenLookup func(c *gin.Context) string

// RejectFunc はトークンの検証に失敗したリクエストを処理する関数。
// 応答を書き込んでリクエストを中断する責務を持つ。
type RejectFunc func(c *gin.Context, err error)

// TokenAuth はアクセストークンを検証するGinミドルウェアを返す。
// 検証に成功した場合、コンテキストに "user_id" と "username" を設定する。
// lookup が nil の場合は Authorization ヘッダーの Bearer トークンを使い、
// reject が nil の場合は 401 とエラーメッセージを返す。
func TokenAuth(secret string, lookup TokenLookup, reject RejectFunc) gin.HandlerFunc {
	if lookup == nil {
		lookup = BearerToken
	}
	if reject == nil {
		reject = func(c *gin.Context, err error) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
			})
		}
	}

	return func(c *gin.Context) {
		tokenString := lookup(c)
		if tokenString == "" {
			reject(c, ErrMissingToken)
			c.Abort()
			return
		}

		claims, err := ParseJWT(secret, tokenString)
		if err != nil {
			reject(c, ErrInvalidToken)
			c.Abort()
			return
		}

		c.Set(contextKeyUserID, claims.UserID)
		c.Set(contextKeyUsername, claims.Username)
		c.Header(headerKeyUserID, claims.UserID)
		c.Next()
	}
}

// BearerToken は Authorization ヘッダーから Bearer トークンを取り出す。
func BearerToken(c *gin.Context) string {
	tokenString, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(tokenString)
}

// GetUserID はGinコンテキストからユーザーIDを取得する。
// TokenAuthミドルウェアが事前に適用されている必要がある。
func GetUserID(c *gin.Context) string {
	return c.GetString(contextKeyUserID)
}

// GetUsername はGinコンテキストからユーザー名を取得する。
func GetUsername(c *gin.Context) string {
	return c.GetString(contextKeyUsername)
}
