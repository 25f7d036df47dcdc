package web

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/textgen/internal/config"
	webdb "github.com/nao1215/textgen/internal/web/db"
	"github.com/nao1215/textgen/pkg/clientstore"
	"github.com/nao1215/textgen/pkg/httpclient"
	"github.com/nao1215/textgen/pkg/i18n"
	"github.com/nao1215/textgen/pkg/middleware"
	"github.com/nao1215/textgen/pkg/route"
	"github.com/nao1215/textgen/pkg/toast"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/language"
	_ "modernc.org/sqlite"
)

// Server はテキスト生成Webシェルの HTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// queries はユーザーとセッションイベントのクエリ実行オブジェクト。
	queries *webdb.Queries
	// db はSQLiteデータベース接続。
	db *sql.DB
	// stores はクライアントごとのストアを開くファクトリ。
	stores clientstore.Factory
	// routes は画面のルートテーブル。
	routes *route.Table
	// bundle は翻訳カタログ。
	bundle *i18n.Bundle
	// defaultLang は言語が決まらない場合の表示言語。
	defaultLang language.Tag
	// core はテキスト生成バックエンドのクライアント。未設定の場合は nil。
	core *httpclient.Client
	// jwtSecret はアクセストークンの署名鍵。
	jwtSecret string
	// tokenTTL はアクセストークンの有効期間。
	tokenTTL time.Duration
	// toastOptions はトーストの表示設定。
	toastOptions toast.Options
	// cookieSecure はCookieにSecure属性を付けるかどうか。
	cookieSecure bool
	// bcryptCost はパスワードハッシュのコスト。
	bcryptCost int
	// closers は Close で解放するリソース。
	closers []func() error
}

// NewServer は設定から新しいWebサーバーを生成する。
// データベースのマイグレーションとクライアントストアの初期化もここで行う。
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sqlDB, err := openDatabase(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	s := &Server{
		port:         cfg.Port,
		db:           sqlDB,
		queries:      webdb.New(sqlDB),
		routes:       route.Default(),
		jwtSecret:    cfg.JWTSecret,
		tokenTTL:     cfg.AccessTokenTTL,
		toastOptions: cfg.ToastOptions(),
		cookieSecure: cfg.CookieSecure,
		bcryptCost:   bcrypt.DefaultCost,
		closers:      []func() error{sqlDB.Close},
	}

	if err := initSchema(ctx, sqlDB); err != nil {
		s.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	s.stores, err = s.openStores(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.bundle, err = i18n.Load()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("翻訳カタログの読み込みに失敗: %w", err)
	}
	s.defaultLang = s.bundle.Match(cfg.DefaultLang)

	if cfg.CoreAPIURL != "" {
		s.core = httpclient.New(cfg.CoreAPIURL, cfg.CoreAPITimeout)
	} else {
		log.Printf("[Web] CORE_API_URL が未設定のため、テキスト生成APIは503を返します")
	}

	router := gin.New()
	router.Use(middleware.Recovery(func(c *gin.Context) string {
		return s.t(c, "internal_error")
	}))
	router.Use(gin.Logger())
	router.Use(middleware.CORS(cfg.FrontendURL))
	router.Use(s.clientIdentity())
	router.Use(s.resolveLocale())
	s.router = router
	s.setupRoutes()

	return s, nil
}

// openDatabase はSQLiteデータベースを開く。
func openDatabase(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if path == ":memory:" {
		// :memory: は接続ごとに別のDBになるため接続を1本に固定する
		sqlDB.SetMaxOpenConns(1)
	}
	return sqlDB, nil
}

// openStores は設定されたバックエンドのクライアントストアを開く。
func (s *Server) openStores(ctx context.Context, cfg *config.Config) (clientstore.Factory, error) {
	switch cfg.Backend() {
	case clientstore.BackendMemory:
		return clientstore.NewMemory(), nil
	case clientstore.BackendSQLite:
		store, err := clientstore.NewSQLite(ctx, s.db)
		if err != nil {
			return nil, fmt.Errorf("SQLiteクライアントストアの初期化に失敗: %w", err)
		}
		return store, nil
	case clientstore.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("Redisへの接続に失敗: %w", err)
		}
		s.closers = append(s.closers, client.Close)
		return clientstore.NewRedis(client, ""), nil
	}
	return nil, fmt.Errorf("未対応のストアバックエンド: %q", cfg.StoreBackend)
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// ServeHTTP はルーターにリクエストを委譲する。
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close はデータベース接続などのリソースを解放する。
func (s *Server) Close() error {
	var errs []error
	// 後から開いたものから閉じる
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// setupRoutes はルーティングを設定する。
func (s *Server) setupRoutes() {
	// 画面遷移（ルートテーブルの全画面）
	for _, r := range s.routes.Routes() {
		s.router.GET(r.Path, s.handleView(r))
	}

	// フォーム送信
	s.router.POST(route.PathSignUp, s.handleSignUp())
	s.router.POST(route.PathSignIn, s.handleSignIn())
	s.router.POST("/logout", s.handleLogout())

	// セッション必須のAPI
	api := s.router.Group("/api/v1")
	api.Use(middleware.TokenAuth(s.jwtSecret, s.lookupToken, s.rejectSession))
	{
		api.GET("/me", s.handleGetCurrentUser())
		api.GET("/events", s.handleListEvents())
		api.POST("/generation", s.handleGeneration())
	}

	// ヘルスチェック
	s.router.GET("/health", s.handleHealth())
}

// handleHealth はヘルスチェックのハンドラを返す。
// テキスト生成バックエンドの状態も合わせて返すが、ステータスコードには影響させない。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		core := "disabled"
		if s.core != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			core = "ok"
			if err := s.core.GetJSON(ctx, "/health", nil); err != nil {
				core = "unavailable"
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "textgen-web", "core": core})
	}
}

// t はリクエストの表示言語で翻訳キーを変換する。
func (s *Server) t(c *gin.Context, key string) string {
	return s.bundle.Localize(languageOf(c, s.defaultLang), key)
}
