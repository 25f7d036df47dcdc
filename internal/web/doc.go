// Package web はテキスト生成Webシェルのサーバー実装を提供する。
//
// 画面遷移ごとにセッションガードを通し、保護された画面へのセッションなしのアクセスを
// サインイン画面へ転送する。サインアップ・サインイン・ログアウトのフォームを受け付け、
// 発行したアクセストークンはCookieで識別するクライアントストアの "token" に保存する。
// /api/v1 配下ではトークンを検証し、無効なトークンや生成バックエンドの401を受けた場合は
// 警告トーストを出してトークンを削除し、サインイン画面へ誘導する（強制ログアウト）。
// 画面の描画はフロントエンドの責務であり、このパッケージは画面の状態をJSONで返す。
package web
