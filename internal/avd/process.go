// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/containerd/errdefs"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel/attribute"
)

// IOMode picks how the child's standard streams are wired.
type IOMode int

const (
	// IOInherit hands the terminal to the child (installers asking for a password).
	IOInherit IOMode = iota
	// IOPipe captures stdout/stderr into the log and, with a Prompt, feeds stdin.
	IOPipe
)

// Invocation describes one run of an external tool: Path Command Args...
type Invocation struct {
	Path    string
	Command string
	Args    []string
	Mode    IOMode
	Prompt  *Prompt
	Dir     string
}

func (inv Invocation) argv() []string {
	return append([]string{inv.Command}, inv.Args...)
}

func (inv Invocation) String() string {
	return strings.Join(append([]string{inv.Path}, inv.argv()...), " ")
}

// ProcessSpawnError reports a tool that could not be started at all.
type ProcessSpawnError struct {
	Path string
	Err  error
}

func (e *ProcessSpawnError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Path, e.Err)
}

func (e *ProcessSpawnError) Unwrap() error { return e.Err }

// ProcessExitError reports a tool that ran and exited with a nonzero status.
type ProcessExitError struct {
	Path    string
	Command string
	Code    int
}

func (e *ProcessExitError) Error() string {
	return fmt.Sprintf("%s %s exited with status %d", e.Path, e.Command, e.Code)
}

// outcome is settled exactly once; later settle calls are ignored.
type outcome struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newOutcome() *outcome {
	return &outcome{done: make(chan struct{})}
}

func (o *outcome) settle(err error) bool {
	settled := false
	o.once.Do(func() {
		o.err = err
		close(o.done)
		settled = true
	})
	return settled
}

func (o *outcome) wait() error {
	<-o.done
	return o.err
}

// Process is a started tool invocation.
type Process struct {
	env      Env
	inv      Invocation
	cmd      *exec.Cmd
	answerer *Answerer
	result   *outcome
}

// StartProcess spawns inv. Prompts can only be answered when output is piped.
func StartProcess(env Env, inv Invocation) (*Process, error) {
	if inv.Prompt != nil && inv.Mode != IOPipe {
		return nil, fmt.Errorf("answering %q needs piped output: %w", inv.Prompt.Question, errdefs.ErrInvalidArgument)
	}
	argv := inv.argv()
	cmd := exec.Command(inv.Path, argv...)
	cmd.Dir = inv.Dir
	p := &Process{env: env, inv: inv, cmd: cmd, result: newOutcome()}

	var (
		stdout    io.ReadCloser
		stdoutLog *lineLogWriter
		stderrLog *lineLogWriter
	)
	switch inv.Mode {
	case IOInherit:
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	default:
		stdoutLog = newCommandLogWriter(env, inv.Path, argv, "stdout")
		stderrLog = newCommandLogWriter(env, inv.Path, argv, "stderr")
		cmd.Stderr = stderrLog
		if inv.Prompt != nil {
			stdin, err := cmd.StdinPipe()
			if err != nil {
				return nil, &ProcessSpawnError{Path: inv.Path, Err: err}
			}
			p.answerer = NewAnswerer(*inv.Prompt, stdin)
		}
		var err error
		stdout, err = cmd.StdoutPipe()
		if err != nil {
			return nil, &ProcessSpawnError{Path: inv.Path, Err: err}
		}
	}

	if err := cmd.Start(); err != nil {
		return nil, &ProcessSpawnError{Path: inv.Path, Err: err}
	}
	logEvent(env, "command started", "command", inv.Path, "args", strings.Join(argv, " "), "pid", cmd.Process.Pid)

	var pumps conc.WaitGroup
	if stdout != nil {
		pumps.Go(func() {
			var sink io.Writer = stdoutLog
			if p.answerer != nil {
				sink = io.MultiWriter(stdoutLog, p.answerer)
			}
			if _, err := io.Copy(sink, stdout); err != nil {
				logWarn(env, "command stdout read failed", "command", inv.Path, "error", err)
			}
			stdoutLog.Flush()
		})
	}
	go func() {
		// Wait closes the pipes, so every read has to finish first.
		pumps.Wait()
		err := cmd.Wait()
		if stderrLog != nil {
			stderrLog.Flush()
		}
		p.result.settle(p.exitError(err))
	}()
	return p, nil
}

func (p *Process) exitError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ProcessExitError{Path: p.inv.Path, Command: p.inv.Command, Code: exitErr.ExitCode()}
	}
	return fmt.Errorf("%s: %w", p.inv, err)
}

// Wait blocks until the tool exits and returns its settled result.
func (p *Process) Wait() error {
	err := p.result.wait()
	if p.answerer != nil && p.answerer.Err() != nil {
		logWarn(p.env, "prompt answer not delivered", "command", p.inv.Path,
			"question", p.answerer.prompt.Question, "error", p.answerer.Err())
	}
	return err
}

// Answered reports how many prompts were answered; zero when no prompt was configured.
func (p *Process) Answered() int {
	if p.answerer == nil {
		return 0
	}
	return p.answerer.Answered()
}

// RunProcess starts inv and waits for it.
func RunProcess(env Env, inv Invocation) error {
	env, span := startSpan(
		env,
		"avd.RunTool",
		attribute.String("command", inv.Command),
		attribute.String("path", inv.Path),
	)
	defer span.End()
	p, err := StartProcess(env, inv)
	if err != nil {
		recordSpanError(span, err)
		return err
	}
	err = p.Wait()
	span.SetAttributes(attribute.Int("prompts_answered", p.Answered()))
	if err != nil {
		recordSpanError(span, err)
		logEvent(env, "command failed", "command", inv.Path, "args", strings.Join(inv.argv(), " "), "error", err.Error())
		return err
	}
	logEvent(env, "command finished", "command", inv.Path, "args", strings.Join(inv.argv(), " "))
	return nil
}

// runTool invokes the SDK tool with a subcommand.
func runTool(env Env, command string, args []string, mode IOMode, prompt *Prompt) error {
	return RunProcess(env, Invocation{
		Path:    env.ToolPath(),
		Command: command,
		Args:    args,
		Mode:    mode,
		Prompt:  prompt,
	})
}
