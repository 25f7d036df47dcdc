// Package httpclient はテキスト生成バックエンド（Core API）とのHTTP通信を行うクライアントを提供する。
//
// Webサーバーは生成リクエストをバックエンドへ中継する際にこのクライアントを使う。
// アクセストークン・ユーザーID・表示言語はコンテキスト経由で渡され、ヘッダーとして伝播される。
// バックエンドが401を返した場合の強制ログアウトは呼び出し側の責務であり、
// このパッケージはステータスコードを加工せずに返す。
package httpclient
