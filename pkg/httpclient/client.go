package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout はタイムアウトが指定されなかった場合の既定値。
const DefaultTimeout = 30 * time.Second

// maxResponseBytes は中継するレスポンスボディの上限（4MiB）。
const maxResponseBytes = 4 << 20

var (
	// ErrUnavailable はバックエンドに到達できなかった場合のエラー。
	ErrUnavailable = errors.New("バックエンドに接続できません")
	// ErrResponseTooLarge はレスポンスボディが上限を超えた場合のエラー。
	ErrResponseTooLarge = errors.New("レスポンスボディが大きすぎます")
)

// Client はテキスト生成バックエンド（Core API）と通信するHTTPクライアント。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先のベースURL。
	baseURL string
}

// Response はバックエンドから受け取った応答。
// 2xx以外のステータスもエラーにせずそのまま返す。
type Response struct {
	// StatusCode はHTTPステータスコード。
	StatusCode int
	// ContentType はContent-Typeヘッダーの値。
	ContentType string
	// Body はレスポンスボディ。
	Body []byte
}

// New は新しいHTTPクライアントを生成する。
// baseURLには接続先のベースURL（例: "http://core:8000"）を指定する。
// timeout が0以下の場合は DefaultTimeout を使う。
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Forward は指定パスへリクエストを中継し、応答をそのまま返す。
// コンテキストに設定されたアクセストークンとユーザーIDをヘッダーとして伝播する。
// 接続自体に失敗した場合は ErrUnavailable をラップしたエラーを返す。
// ボディが上限を超えた場合は切り詰めずに ErrResponseTooLarge を返す。
func (c *Client) Forward(ctx context.Context, method, path, contentType string, body io.Reader) (*Response, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗: %w", err)
	}
	if len(respBody) > maxResponseBytes {
		return nil, fmt.Errorf("%w: status=%d, 上限=%dバイト", ErrResponseTooLarge, resp.StatusCode, maxResponseBytes)
	}
	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
	}, nil
}

// GetJSON は指定パスにGETリクエストを送信する。
// レスポンスボディをresultにデシリアライズする。2xx以外はエラーになる。
func (c *Client) GetJSON(ctx context.Context, path string, result any) error {
	resp, err := c.Forward(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTPエラー: status=%d, body=%s", resp.StatusCode, string(resp.Body))
	}
	if result != nil {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return fmt.Errorf("レスポンスボディのデシリアライズに失敗: %w", err)
		}
	}
	return nil
}

// newRequest はコンテキストの値を反映したHTTPリクエストを作成する。
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: ベースURLが未設定です", ErrUnavailable)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if token, ok := ctx.Value(contextKeyToken).(string); ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if userID, ok := ctx.Value(contextKeyUserID).(string); ok && userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if lang, ok := ctx.Value(contextKeyLanguage).(string); ok && lang != "" {
		req.Header.Set("Accept-Language", lang)
	}
	return req, nil
}

// contextKey はコンテキストキーの型。
type contextKey string

const (
	// contextKeyToken はコンテキストにアクセストークンを格納するためのキー。
	contextKeyToken contextKey = "token"
	// contextKeyUserID はコンテキストにユーザーIDを格納するためのキー。
	contextKeyUserID contextKey = "user_id"
	// contextKeyLanguage はコンテキストに表示言語を格納するためのキー。
	contextKeyLanguage contextKey = "language"
)

// WithToken はコンテキストにアクセストークンを設定する。
// バックエンドには Authorization: Bearer ヘッダーとして渡される。
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, contextKeyToken, token)
}

// WithUserID はコンテキストにユーザーIDを設定する。
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKeyUserID, userID)
}

// WithLanguage はコンテキストに表示言語を設定する。
func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, contextKeyLanguage, lang)
}
