// テキスト生成Webシェルのエントリポイント。
// 画面遷移のセッションガード、サインアップ・サインイン・ログアウト、
// テキスト生成バックエンドへの中継を担当する。
package main

import (
	"context"
	"log"

	"github.com/nao1215/textgen/internal/config"
	"github.com/nao1215/textgen/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	server, err := web.NewServer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Webサーバーの初期化に失敗: %v", err)
	}

	log.Printf("Webサービスを起動します: :%s (store=%s)", cfg.Port, cfg.StoreBackend)
	if err := server.Run(); err != nil {
		_ = server.Close()
		log.Fatalf("Webサービスの起動に失敗: %v", err)
	}
}
