package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// State is the lifecycle state of a process.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateExited
	StateKilled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Process is a supervised child process. Stdin and Stdout are the pipes the
// RPC connection runs over; Close closes both.
type Process struct {
	ID      string
	Name    string
	Cmd     *exec.Cmd
	Stdin   io.WriteCloser
	Stdout  io.ReadCloser
	Started time.Time

	log    *slog.Logger
	stderr io.ReadCloser

	state    atomic.Int32
	exitCode atomic.Int32
	done     chan struct{}
	drained  chan struct{}

	mu      sync.Mutex
	exitErr error
}

func newProcess(id, name string, cmd *exec.Cmd, log *slog.Logger) *Process {
	p := &Process{
		ID:      id,
		Name:    name,
		Cmd:     cmd,
		log:     log.With(slog.String("process", name), slog.String("id", id)),
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}
	p.exitCode.Store(-1)
	return p
}

// State returns the current state.
func (p *Process) State() State {
	return State(p.state.Load())
}

// ExitCode returns the exit code, or -1 while the process runs.
func (p *Process) ExitCode() int {
	return int(p.exitCode.Load())
}

// ExitError returns the error reported by wait, if any.
func (p *Process) ExitError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitErr
}

// Done is closed once the process has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// IsRunning reports whether the process is running.
func (p *Process) IsRunning() bool {
	return p.State() == StateRunning
}

// PID returns the operating system process id, or -1 before start.
func (p *Process) PID() int {
	if p.Cmd.Process == nil {
		return -1
	}
	return p.Cmd.Process.Pid
}

// Runtime returns how long the process has been running.
func (p *Process) Runtime() time.Duration {
	if p.Started.IsZero() {
		return 0
	}
	return time.Since(p.Started)
}

// Signal sends sig to the process.
func (p *Process) Signal(sig os.Signal) error {
	if !p.IsRunning() || p.Cmd.Process == nil {
		return ErrNotStarted
	}
	return p.Cmd.Process.Signal(sig)
}

// Terminate sends SIGTERM.
func (p *Process) Terminate() error {
	return p.Signal(syscall.SIGTERM)
}

// Kill sends SIGKILL.
func (p *Process) Kill() error {
	return p.Signal(syscall.SIGKILL)
}

// Close closes the stdin and stdout pipes. It does not stop the process.
func (p *Process) Close() error {
	var errs []error
	if p.Stdin != nil {
		if err := p.Stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, fmt.Errorf("close stdin: %w", err))
		}
	}
	if p.Stdout != nil {
		if err := p.Stdout.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, fmt.Errorf("close stdout: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Stop asks the process to exit by closing its stdin. If it is still
// running after grace it is sent SIGTERM, and SIGKILL after another grace
// period. Stop returns once the process has exited.
func (p *Process) Stop(grace time.Duration) {
	if p.State() == StateCreated {
		return
	}
	if p.Stdin != nil {
		_ = p.Stdin.Close()
	}

	for _, sig := range []os.Signal{syscall.SIGTERM, syscall.SIGKILL} {
		select {
		case <-p.done:
			return
		case <-time.After(grace):
		}
		p.log.Warn("process did not exit, signalling", slog.String("signal", sig.String()))
		_ = p.Signal(sig)
	}
	<-p.done
}

func (p *Process) start() error {
	if !p.state.CompareAndSwap(int32(StateCreated), int32(StateRunning)) {
		return ErrAlreadyStarted
	}
	if err := p.Cmd.Start(); err != nil {
		p.state.Store(int32(StateExited))
		close(p.drained)
		close(p.done)
		return fmt.Errorf("start %s: %w", p.Name, err)
	}
	p.Started = time.Now()
	p.log.Info("process started", slog.Int("pid", p.PID()))

	if p.stderr != nil {
		go p.drainStderr()
	} else {
		close(p.drained)
	}
	go p.wait()
	return nil
}

// drainStderr logs what the process writes to stderr.
func (p *Process) drainStderr() {
	defer close(p.drained)
	sc := bufio.NewScanner(p.stderr)
	for sc.Scan() {
		p.log.Warn("stderr", slog.String("line", sc.Text()))
	}
}

func (p *Process) wait() {
	// Wait closes the pipes, so stderr must be read to the end first.
	<-p.drained
	err := p.Cmd.Wait()

	code, state := 0, StateExited
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		code = exitErr.ExitCode()
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			state = StateKilled
		}
	case err != nil:
		code = -1
	}

	p.mu.Lock()
	p.exitErr = err
	p.mu.Unlock()

	p.exitCode.Store(int32(code))
	p.state.Store(int32(state))
	p.log.Info("process exited", slog.Int("code", code), slog.String("state", state.String()))
	close(p.done)
}
