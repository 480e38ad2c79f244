package kdeconnect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/hyprconnect/hyprconnect/internal/failure"
)

const (
	defaultCommandTimeout = 10 * time.Second
	pipeDrainDelay        = time.Second
)

// Runner invokes kdeconnect-cli and a few desktop helpers as child processes.
// Every invocation is bounded by Timeout; the child is killed when the
// deadline passes or the caller's context ends.
type Runner struct {
	CLI        string // kdeconnect-cli
	Fusermount string // fusermount
	Umount     string // umount
	Opener     string // xdg-open
	Timeout    time.Duration
}

// NewRunner returns a Runner using the standard binary names.
func NewRunner(timeout time.Duration) *Runner {
	return &Runner{
		CLI:        "kdeconnect-cli",
		Fusermount: "fusermount",
		Umount:     "umount",
		Opener:     "xdg-open",
		Timeout:    timeout,
	}
}

// Invoke runs the named command. A non-zero exit is an ActionFailed error, a
// deadline an ActionTimeout; the Result is populated in both cases.
func (r *Runner) Invoke(ctx context.Context, cmd Command) (Result, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch cmd.Name {
	case CmdUnmount:
		path, err := firstArg(cmd)
		if err != nil {
			return Result{}, err
		}
		res, err := r.run(ctx, r.Fusermount, "-u", path)
		if err == nil || failure.Is(err, failure.ActionTimeout) {
			return res, err
		}
		return r.run(ctx, r.Umount, path)
	case CmdOpen:
		path, err := firstArg(cmd)
		if err != nil {
			return Result{}, err
		}
		return r.start(r.Opener, path)
	}

	args, err := cliArgs(cmd)
	if err != nil {
		return Result{}, err
	}
	return r.run(ctx, r.CLI, args...)
}

// cliArgs maps a Command onto kdeconnect-cli arguments.
func cliArgs(cmd Command) ([]string, error) {
	if cmd.Name == CmdRefresh {
		return []string{"--refresh"}, nil
	}
	if strings.TrimSpace(cmd.Device) == "" {
		return nil, failure.New(failure.InvalidArgument, "%s requires a device", cmd.Name)
	}
	base := []string{"--device", cmd.Device}

	switch cmd.Name {
	case CmdPair:
		return append(base, "--pair"), nil
	case CmdUnpair:
		return append(base, "--unpair"), nil
	case CmdRing:
		return append(base, "--ring"), nil
	case CmdMount:
		return append(base, "--mount"), nil
	case CmdMountPoint:
		return append(base, "--get-mount-point"), nil
	case CmdShare:
		v, err := firstArg(cmd)
		if err != nil {
			return nil, err
		}
		return append(base, "--share", v), nil
	case CmdPing:
		v, err := firstArg(cmd)
		if err != nil {
			return nil, err
		}
		return append(base, "--ping-msg", v), nil
	}
	return nil, failure.New(failure.InvalidArgument, "unknown backend command %q", cmd.Name)
}

func firstArg(cmd Command) (string, error) {
	if len(cmd.Args) == 0 || strings.TrimSpace(cmd.Args[0]) == "" {
		return "", failure.New(failure.InvalidArgument, "%s requires an argument", cmd.Name)
	}
	return cmd.Args[0], nil
}

func (r *Runner) run(ctx context.Context, name string, args ...string) (Result, error) {
	c := exec.CommandContext(ctx, name, args...)
	c.WaitDelay = pipeDrainDelay
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := Result{ExitCode: -1, Stdout: stdout.String(), Stderr: stderr.String()}
	if c.ProcessState != nil {
		res.ExitCode = c.ProcessState.ExitCode()
	}
	if err == nil {
		return res, nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return res, failure.Wrap(failure.ActionTimeout, ctx.Err(), "%s timed out", name)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("%s exited with status %d", name, res.ExitCode)
		}
		return res, &failure.Error{Kind: failure.ActionFailed, Message: msg, Err: err}
	}
	return res, failure.Wrap(failure.BackendUnavailable, err, "execute %s", name)
}

// start launches a detached helper and reaps it in the background.
func (r *Runner) start(name string, args ...string) (Result, error) {
	c := exec.Command(name, args...)
	if err := c.Start(); err != nil {
		return Result{ExitCode: -1}, failure.Wrap(failure.ActionFailed, err, "spawn %s", name)
	}
	go func() { _ = c.Wait() }()
	return Result{}, nil
}
