//go:build wails

package main

import (
	"embed"
	"log/slog"
	"os"

	"github.com/yuta-ueno/markreview-oss/internal/app"
	"github.com/yuta-ueno/markreview-oss/internal/config"
	"github.com/yuta-ueno/markreview-oss/internal/desktop"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	cfg := config.FromEnv()
	slog.SetDefault(cfg.Logger())

	application := app.NewWithConfig(cfg, os.Args)
	bridge := desktop.NewWailsBridge(application)

	if err := wails.Run(&options.App{
		Title:      "MarkReview",
		Width:      1200,
		Height:     800,
		MinWidth:   800,
		MinHeight:  600,
		OnStartup:  bridge.Startup,
		OnDomReady: bridge.DomReady,
		OnShutdown: bridge.Shutdown,
		Bind: []interface{}{
			bridge,
		},
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		DragAndDrop: &options.DragAndDrop{
			EnableFileDrop: true,
		},
		Mac: &mac.Options{
			OnFileOpen: func(filePath string) {
				if err := bridge.OpenDocumentFromSystem(filePath); err != nil {
					slog.Warn("system document open rejected", "path", filePath, "error", err)
				}
			},
		},
	}); err != nil {
		slog.Error("wails runtime failed", "error", err)
		os.Exit(1)
	}
}
