package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery はパニックからの回復を行うGinミドルウェアを返す。
// パニック発生時にスタックトレースをログに出力し、500エラーを返す。
// message は応答に含めるエラーメッセージを返す関数で、リクエストの表示言語に合わせて翻訳できる。
// nil の場合は固定の日本語メッセージを使う。
func Recovery(message func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[PANIC] %s %s: %v\n%s", c.Request.Method, c.Request.URL.Path, r, debug.Stack())
				text := "内部サーバーエラーが発生しました"
				if message != nil {
					text = message(c)
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": text,
				})
			}
		}()
		c.Next()
	}
}
