package process

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Supervisor starts and tracks child processes.
type Supervisor struct {
	log *slog.Logger

	mu        sync.RWMutex
	processes map[string]*Process
	closed    atomic.Bool

	maxProcesses int
	onExit       func(p *Process)
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(log *slog.Logger) SupervisorOption {
	return func(s *Supervisor) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMaxProcesses limits the number of running processes. Zero means no
// limit.
func WithMaxProcesses(n int) SupervisorOption {
	return func(s *Supervisor) {
		s.maxProcesses = n
	}
}

// WithExitCallback sets a function called after a process exits.
func WithExitCallback(fn func(p *Process)) SupervisorOption {
	return func(s *Supervisor) {
		s.onExit = fn
	}
}

// NewSupervisor creates a supervisor.
func NewSupervisor(opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		log:       slog.Default(),
		processes: make(map[string]*Process),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start starts cmd under a new uuid. Unless the command already has them
// set, stdin and stdout are connected to pipes exposed on the Process and
// stderr is forwarded to the log.
func (s *Supervisor) Start(name string, cmd *exec.Cmd) (*Process, error) {
	return s.StartWithID(uuid.NewString(), name, cmd)
}

// StartWithID is Start with a caller chosen id.
func (s *Supervisor) StartWithID(id, name string, cmd *exec.Cmd) (*Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return nil, ErrSupervisorShutdown
	}
	if s.maxProcesses > 0 && len(s.processes) >= s.maxProcesses {
		return nil, fmt.Errorf("%w: %d", ErrLimit, s.maxProcesses)
	}
	if _, exists := s.processes[id]; exists {
		return nil, fmt.Errorf("process id %s already exists", id)
	}

	proc := newProcess(id, name, cmd, s.log)

	var opened []io.Closer
	cleanup := func() {
		for _, c := range opened {
			_ = c.Close()
		}
	}

	if cmd.Stdin == nil {
		w, err := cmd.StdinPipe()
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("stdin pipe: %w", err)
		}
		proc.Stdin = w
		opened = append(opened, w)
	}

	// The read end of stdout stays open after Wait, so a reader sees EOF
	// rather than a closed file when the process exits.
	var childStdout *os.File
	if cmd.Stdout == nil {
		r, w, err := os.Pipe()
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("stdout pipe: %w", err)
		}
		cmd.Stdout = w
		proc.Stdout = r
		childStdout = w
		opened = append(opened, r, w)
	}

	if cmd.Stderr == nil {
		r, err := cmd.StderrPipe()
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("stderr pipe: %w", err)
		}
		proc.stderr = r
		opened = append(opened, r)
	}

	if err := proc.start(); err != nil {
		cleanup()
		return nil, err
	}
	if childStdout != nil {
		_ = childStdout.Close()
	}

	s.processes[id] = proc
	go s.monitor(proc)
	return proc, nil
}

func (s *Supervisor) monitor(proc *Process) {
	<-proc.Done()

	if s.onExit != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("exit callback panicked", slog.String("id", proc.ID), slog.Any("panic", r))
				}
			}()
			s.onExit(proc)
		}()
	}

	s.mu.Lock()
	delete(s.processes, proc.ID)
	s.mu.Unlock()
}

// Get returns the process with the given id, or nil.
func (s *Supervisor) Get(id string) *Process {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processes[id]
}

// List returns the running processes.
func (s *Supervisor) List() []*Process {
	s.mu.RLock()
	defer s.mu.RUnlock()
	procs := make([]*Process, 0, len(s.processes))
	for _, p := range s.processes {
		procs = append(procs, p)
	}
	return procs
}

// Count returns the number of running processes.
func (s *Supervisor) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.processes)
}

// Stop stops one process. See Process.Stop.
func (s *Supervisor) Stop(id string, grace time.Duration) error {
	proc := s.Get(id)
	if proc == nil {
		return ErrNotFound
	}
	proc.Stop(grace)
	return nil
}

// Shutdown stops every process in parallel and refuses new ones. It
// returns when all of them have exited and been removed.
func (s *Supervisor) Shutdown(grace time.Duration) {
	if s.closed.Swap(true) {
		return
	}

	var wg sync.WaitGroup
	for _, p := range s.List() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Stop(grace)
		}()
	}
	wg.Wait()

	for s.Count() > 0 {
		time.Sleep(time.Millisecond)
	}
}

// IsShuttingDown reports whether Shutdown has been called.
func (s *Supervisor) IsShuttingDown() bool {
	return s.closed.Load()
}

// Wait blocks until no process is running or ctx is done.
func (s *Supervisor) Wait(ctx context.Context) error {
	for {
		procs := s.List()
		if len(procs) == 0 {
			return nil
		}
		select {
		case <-procs[0].Done():
		case <-ctx.Done():
			return ctx.Err()
		}
		// The monitor removes the process shortly after Done closes.
		for s.Get(procs[0].ID) != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Millisecond):
			}
		}
	}
}
