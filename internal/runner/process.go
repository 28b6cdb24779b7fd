package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// Process is a started child whose stdout and stderr arrive interleaved on
// one stream
type Process interface {
	// Output must be read to EOF before Wait is called
	Output() io.Reader

	// Wait returns the exit code; err is set only when the process could not
	// be waited for at all
	Wait() (int, error)
}

// Command describes one child process
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

// Starter launches child processes
type Starter interface {
	// Start runs cmd with its output piped back
	Start(ctx context.Context, cmd Command) (Process, error)

	// Launch runs cmd detached from texwatch, as viewers are
	Launch(ctx context.Context, cmd Command) error
}

// ExecStarter is the Starter backed by os/exec
type ExecStarter struct {
	// WaitDelay bounds how long Wait blocks on output after cancellation
	WaitDelay time.Duration
}

// Start implements Starter
func (s ExecStarter) Start(ctx context.Context, c Command) (Process, error) {
	cmd := s.command(ctx, c)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("piping %s: %w", c.Name, err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", c.Name, err)
	}
	return &execProcess{cmd: cmd, out: out}, nil
}

// Launch implements Starter
func (s ExecStarter) Launch(ctx context.Context, c Command) error {
	cmd := exec.Command(c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launching %s: %w", c.Name, err)
	}
	// reap in the background so no zombie is left behind
	go func() { _ = cmd.Wait() }()
	return nil
}

func (s ExecStarter) command(ctx context.Context, c Command) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.WaitDelay = s.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 2 * time.Second
	}
	configureProcessGroup(cmd)
	return cmd
}

type execProcess struct {
	cmd *exec.Cmd
	out io.Reader
}

func (p *execProcess) Output() io.Reader {
	return p.out
}

func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
