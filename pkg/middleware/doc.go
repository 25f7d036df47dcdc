// Package middleware はGinベースのHTTPサーバーで使用する共通ミドルウェアを提供する。
//
// アクセストークン（JWT）の発行と検証、パニックリカバリ、
// フロントエンド向けのCORS設定を含む。
// トークンの取り出し方と検証失敗時の応答は呼び出し側が差し替えられるため、
// Cookieで識別されるクライアントストアに保存したトークンにも、Bearer ヘッダーにも対応できる。
package middleware
