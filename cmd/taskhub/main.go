// Command taskhub はタスク・バグレポート・ノートを管理するAPIサーバーを起動する。
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hitoshi/taskhub/internal/app"
)

func main() {
	if err := app.Run(context.Background(), os.Stdout, os.Args[1:]); err != nil {
		slog.Error("taskhub exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
