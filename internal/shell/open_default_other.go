//go:build !darwin && !windows

package shell

import (
	"context"
	"os/exec"
)

func openWithDefaultApp(ctx context.Context, path string) error {
	return exec.CommandContext(ctx, "xdg-open", path).Run()
}
