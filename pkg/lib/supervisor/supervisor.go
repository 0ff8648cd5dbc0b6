package supervisor

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/SanjoDeundiak/broker-shell/pkg/lib"
	"github.com/SanjoDeundiak/broker-shell/pkg/lib/broadcast"
	"github.com/SanjoDeundiak/broker-shell/pkg/lib/output_storage"
)

// DefaultStopTimeout bounds how long Stop waits after the termination signal.
const DefaultStopTimeout = 5 * time.Second

// ErrAnotherInstance means the instance lock is held by a different process.
var ErrAnotherInstance = errors.New("another broker instance is already running")

// Locator resolves the broker binary path. It is re-evaluated on every Start.
type Locator interface {
	ResolveBinaryPath() (string, error)
}

// Recorder observes start attempts and exits, e.g. to persist a run history.
type Recorder interface {
	RecordStart(attemptID, path string, pid int, at time.Time)
	RecordFailure(attemptID, path string, cause error, at time.Time)
	RecordExit(attemptID string, exitCode *int, state lib.BrokerState, at time.Time)
}

// Supervisor owns at most one broker process.
//
// State is Running if and only if a process handle is held. Every field below
// mu is guarded by it.
type Supervisor struct {
	locator     Locator
	args        []string
	logger      zerolog.Logger
	stopTimeout time.Duration
	tailLines   int
	cgroup      bool
	lockPath    string
	recorder    Recorder
	stdin       io.Reader
	stderr      io.Writer
	states      *broadcast.Broadcaster[lib.BrokerState]

	mu       sync.Mutex
	process  *brokerProcess
	state    lib.BrokerState
	last     *brokerProcess
	lastErr  error
	attempts int
	closed   bool
}

type brokerProcess struct {
	id     string
	path   string
	cmd    *exec.Cmd
	pid    int
	start  time.Time
	stdout *output_storage.OutputStorage
	lock   *flock.Flock
	// done is closed once the exit has been recorded.
	done chan struct{}

	// guarded by Supervisor.mu
	stopRequested bool
	cgroup        bool
	exitCode      *int
	end           *time.Time
}

type Option func(*Supervisor)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Supervisor) { s.logger = logger }
}

// WithArgs sets the broker command line arguments. The broker runs without
// arguments by default.
func WithArgs(args ...string) Option {
	return func(s *Supervisor) { s.args = append([]string(nil), args...) }
}

func WithStopTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.stopTimeout = d
		}
	}
}

// WithOutputTail sets how many stdout lines are retained per process.
func WithOutputTail(lines int) Option {
	return func(s *Supervisor) {
		if lines > 0 {
			s.tailLines = lines
		}
	}
}

// WithInstanceLock makes Start take an exclusive file lock at path, so only one
// broker runs per lock file across processes.
func WithInstanceLock(path string) Option {
	return func(s *Supervisor) { s.lockPath = path }
}

// WithCgroup places the broker in its own cgroup v2 when running as root on Linux.
func WithCgroup(enabled bool) Option {
	return func(s *Supervisor) { s.cgroup = enabled }
}

func WithRecorder(r Recorder) Option {
	return func(s *Supervisor) { s.recorder = r }
}

// WithStdin overrides the inherited standard input.
func WithStdin(r io.Reader) Option {
	return func(s *Supervisor) { s.stdin = r }
}

// WithStderr overrides the inherited standard error.
func WithStderr(w io.Writer) Option {
	return func(s *Supervisor) { s.stderr = w }
}

// New creates a Supervisor in state Stopped without a process.
func New(locator Locator, opts ...Option) *Supervisor {
	s := &Supervisor{
		locator:     locator,
		logger:      zerolog.Nop(),
		stopTimeout: DefaultStopTimeout,
		tailLines:   output_storage.DefaultCapacity,
		stdin:       os.Stdin,
		stderr:      os.Stderr,
		state:       lib.BrokerStateStopped,
		states:      broadcast.RunNew[lib.BrokerState](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// setState must be called with mu held.
func (s *Supervisor) setState(state lib.BrokerState) {
	s.state = state
	if !s.closed {
		s.states.Publish(state)
	}
}

// Close ends every state subscription. State keeps being tracked, but no
// further changes are published. Call it after Stop when shutting down.
func (s *Supervisor) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.states.Stop()
}
