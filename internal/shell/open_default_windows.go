//go:build windows

package shell

import (
	"context"
	"os/exec"
)

func openWithDefaultApp(ctx context.Context, path string) error {
	return exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", path).Run()
}
