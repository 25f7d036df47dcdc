// Package toast は画面右上などに一定時間表示されるトースト通知を扱う。
//
// 通知は永続化されない一過性のイベントであり、リダイレクトをまたいで
// 次の画面表示まで運ぶためにワンタイムCookieへ積まれる。
// 表示側は Drain で取り出した時点で通知を破棄する。
package toast
