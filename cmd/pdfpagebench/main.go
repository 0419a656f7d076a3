package main

import (
	"log/slog"
	"os"

	"github.com/pyhub-apps/pdfpagebench/internal/commands"
)

func main() {
	app := commands.NewApp()
	if err := app.Run(os.Args); err != nil {
		slog.Error("pdfpagebench failed", "error", err)
		os.Exit(1)
	}
}
