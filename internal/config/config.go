// Package config はWebサーバーの設定を環境変数と .env ファイルから読み込む。
//
// 値の優先順位は プロセスの環境変数 > .env ファイル > 既定値 となる。
// 読み込み後に Validate で値の整合性を検証する。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/nao1215/textgen/pkg/clientstore"
	"github.com/nao1215/textgen/pkg/toast"
)

// Config はWebサーバーの設定。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string `env:"PORT" envDefault:"8080"`
	// JWTSecret はアクセストークンの署名鍵。
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret-key"`
	// AccessTokenTTL はアクセストークンの有効期間。
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"30m"`
	// DatabasePath はSQLiteデータベースのパス。":memory:" も指定できる。
	DatabasePath string `env:"DATABASE_PATH" envDefault:"/data/textgen.db"`
	// StoreBackend はクライアントストアのバックエンド（memory, sqlite, redis）。
	StoreBackend string `env:"STORE_BACKEND" envDefault:"sqlite"`
	// RedisAddr はRedisの接続先。STORE_BACKEND=redis の場合に使う。
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	// RedisPassword はRedisのパスワード。
	RedisPassword string `env:"REDIS_PASSWORD"`
	// RedisDB はRedisのデータベース番号。
	RedisDB int `env:"REDIS_DB" envDefault:"0"`
	// FrontendURL はCORSで許可するフロントエンドのオリジン。カンマ区切りで複数指定できる。
	FrontendURL []string `env:"FRONTEND_URL" envDefault:"http://localhost:3000" envSeparator:","`
	// CoreAPIURL はテキスト生成バックエンドのベースURL。空の場合は生成APIが503を返す。
	CoreAPIURL string `env:"CORE_API_URL"`
	// CoreAPITimeout はテキスト生成バックエンドへのリクエストのタイムアウト。
	CoreAPITimeout time.Duration `env:"CORE_API_TIMEOUT" envDefault:"60s"`
	// DefaultLang は言語が決まらない場合の表示言語。
	DefaultLang string `env:"DEFAULT_LANG" envDefault:"en"`
	// ToastTimeout はトーストの表示時間。
	ToastTimeout time.Duration `env:"TOAST_TIMEOUT" envDefault:"3s"`
	// ToastPosition はトーストの表示位置。
	ToastPosition string `env:"TOAST_POSITION" envDefault:"top-right"`
	// CookieSecure はCookieにSecure属性を付けるかどうか。
	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"false"`
}

// Load は .env ファイル（存在する場合）とプロセスの環境変数から設定を読み込む。
// files を省略した場合はカレントディレクトリの .env を読む。
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	return load(os.Environ(), files)
}

// load は環境変数の一覧と .env ファイルをマージして設定を解析する。
// プロセスの環境を書き換えないため、テストから並行に呼び出せる。
func load(environ []string, files []string) (*Config, error) {
	merged := make(map[string]string)
	for _, file := range files {
		values, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("%s の読み込みに失敗: %w", file, err)
		}
		for k, v := range values {
			// 先に読んだファイルを優先する
			if _, ok := merged[k]; !ok {
				merged[k] = v
			}
		}
	}
	for k, v := range env.ToMap(environ) {
		merged[k] = v
	}

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: merged}); err != nil {
		return nil, fmt.Errorf("環境変数の解析に失敗: %w", err)
	}
	cfg.DefaultLang = strings.ToLower(strings.TrimSpace(cfg.DefaultLang))
	cfg.FrontendURL = trimOrigins(cfg.FrontendURL)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// trimOrigins はオリジンの前後の空白を取り除き、空の要素を捨てる。
func trimOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate は設定値の整合性を検証する。
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT が空です"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET が空です"))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("ACCESS_TOKEN_TTL は正の値である必要があります: %s", c.AccessTokenTTL))
	}
	if c.CoreAPITimeout <= 0 {
		errs = append(errs, fmt.Errorf("CORE_API_TIMEOUT は正の値である必要があります: %s", c.CoreAPITimeout))
	}
	if c.ToastTimeout <= 0 {
		errs = append(errs, fmt.Errorf("TOAST_TIMEOUT は正の値である必要があります: %s", c.ToastTimeout))
	}
	backend, err := clientstore.ParseBackend(c.StoreBackend)
	if err != nil {
		errs = append(errs, err)
	}
	if backend == clientstore.BackendRedis && c.RedisAddr == "" {
		errs = append(errs, errors.New("STORE_BACKEND=redis には REDIS_ADDR が必要です"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("DATABASE_PATH が空です"))
	}
	if _, err := toast.ParsePosition(c.ToastPosition); err != nil {
		errs = append(errs, err)
	}
	if c.DefaultLang == "" {
		errs = append(errs, errors.New("DEFAULT_LANG が空です"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("設定が不正です: %w", errors.Join(errs...))
	}
	return nil
}

// Backend はクライアントストアのバックエンドを返す。Validate 済みであることを前提とする。
func (c *Config) Backend() clientstore.Backend {
	backend, _ := clientstore.ParseBackend(c.StoreBackend)
	return backend
}

// ToastOptions はトーストの表示設定を返す。
func (c *Config) ToastOptions() toast.Options {
	position, err := toast.ParsePosition(c.ToastPosition)
	if err != nil {
		position = toast.DefaultPosition
	}
	return toast.Options{Timeout: c.ToastTimeout, Position: position}
}
