package segment

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandRemover runs the rembg command line tool once per image:
//
//	rembg i <input.png> <output.png>
//
// Input and output live in a temporary directory that is removed afterwards.
type CommandRemover struct {
	// Command is the executable name or path, usually "rembg".
	Command string

	// Args are inserted between the "i" subcommand and the file paths,
	// e.g. []string{"-m", "u2net"}.
	Args []string
}

// NewCommandRemover creates a remover that invokes the given executable.
func NewCommandRemover(command string, args ...string) *CommandRemover {
	return &CommandRemover{Command: command, Args: args}
}

// Remove implements Remover.
func (c *CommandRemover) Remove(ctx context.Context, png []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "silhouette-rembg-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	if err := os.WriteFile(in, png, 0600); err != nil {
		return nil, fmt.Errorf("failed to write oracle input: %w", err)
	}

	args := append([]string{"i"}, c.Args...)
	args = append(args, in, out)

	cmd := exec.CommandContext(ctx, c.Command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s failed: %w: %s", c.Command, err, msg)
		}
		return nil, fmt.Errorf("%s failed: %w", c.Command, err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("failed to read oracle output: %w", err)
	}
	return data, nil
}
