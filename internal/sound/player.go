package sound

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// CommandPlayer plays a file by running an external command. The file path
// replaces a "{file}" argument, or is appended when there is none.
type CommandPlayer struct {
	Command []string
}

// DefaultCommand returns the stock audio player of the platform.
func DefaultCommand() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"afplay"}
	case "windows":
		return []string{"powershell", "-NoProfile", "-Command", "(New-Object Media.SoundPlayer '{file}').PlaySync()"}
	default:
		return []string{"aplay", "-q"}
	}
}

// NewCommandPlayer uses command, or DefaultCommand when it is empty.
func NewCommandPlayer(command []string) *CommandPlayer {
	if len(command) == 0 {
		command = DefaultCommand()
	}
	return &CommandPlayer{Command: command}
}

func (p *CommandPlayer) Play(ctx context.Context, path string) error {
	args := make([]string, 0, len(p.Command)+1)
	substituted := false
	for _, a := range p.Command[1:] {
		if strings.Contains(a, "{file}") {
			a = strings.ReplaceAll(a, "{file}", path)
			substituted = true
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, path)
	}
	cmd := exec.CommandContext(ctx, p.Command[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", p.Command[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}
