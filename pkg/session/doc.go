// Package session はクライアントが保持する認証トークンのライフサイクルを扱う。
//
// Guard は画面遷移のたびに遷移先を表示してよいかを判定し、
// セッションを強制的に終了させる唯一の操作 Logout を提供する。
// 状態はメモリに保持せず、毎回ストアから導出する。そのため再読み込み後も
// ストアの内容だけで現在の状態が再構築される。
//
// ストア、通知先、遷移先はすべて外部から注入する。
package session
