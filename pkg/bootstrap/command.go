package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// Command describes one subprocess invocation.
type Command struct {
	Path   string
	Args   []string
	Dir    string
	Env    []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// CommandRunner executes subprocesses.
type CommandRunner interface {
	// Run starts the command and waits for it to exit. Cancelling ctx interrupts the child.
	Run(ctx context.Context, cmd Command) error
	// Output runs the command and returns its combined stdout and stderr.
	Output(ctx context.Context, cmd Command) ([]byte, error)
}

const interruptGracePeriod = 10 * time.Second

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

var _ CommandRunner = ExecRunner{}

func (ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := newExecCmd(ctx, c)
	cmd.Stdin = c.Stdin
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	slog.Debug("running command", "path", c.Path, "args", c.Args)
	return cmd.Run()
}

func (ExecRunner) Output(ctx context.Context, c Command) ([]byte, error) {
	slog.Debug("running command for output", "path", c.Path, "args", c.Args)
	return newExecCmd(ctx, c).CombinedOutput()
}

func newExecCmd(ctx context.Context, c Command) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = interruptGracePeriod
	return cmd
}
