//go:build !darwin

package desktop

import (
	"context"

	"github.com/yuta-ueno/markreview-oss/internal/document"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

func openMarkdownFileDialog(ctx context.Context) (string, error) {
	return runtime.OpenFileDialog(ctx, runtime.OpenDialogOptions{
		Title: "Open Markdown File",
		Filters: []runtime.FileFilter{
			{DisplayName: "Markdown Files", Pattern: document.DialogPattern()},
		},
	})
}
