package factorio

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// RunGame starts the game executable with the given arguments and returns
// its LF-normalized standard output. A non-zero exit status is not an
// error: the engine exits unhappily after a scenario script stops it, and
// the payload markers decide whether the run produced usable output.
func RunGame(ctx context.Context, paths Paths, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, paths.Executable, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if _, exited := err.(*exec.ExitError); !exited {
			return "", err
		}
	}

	return strings.ReplaceAll(stdout.String(), "\r\n", "\n"), nil
}
