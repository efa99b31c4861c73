//go:build darwin

package shell

import (
	"context"
	"os/exec"
)

func openWithDefaultApp(ctx context.Context, path string) error {
	return exec.CommandContext(ctx, "open", path).Run()
}
