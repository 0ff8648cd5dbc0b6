package supervisor

import (
	"fmt"
	"os/exec"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/SanjoDeundiak/broker-shell/pkg/lib"
	"github.com/SanjoDeundiak/broker-shell/pkg/lib/output_storage"
)

// Start launches the broker. When a broker is already held it only logs and
// returns. A failed spawn is absorbed into StoppedWithError and never returned;
// the only error is a path resolution failure, which callers treat as fatal.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.process != nil {
		s.logger.Info().Str("attempt", s.process.id).Int("pid", s.process.pid).Msg("Broker already running")
		return nil
	}

	path, err := s.locator.ResolveBinaryPath()
	if err != nil {
		return err
	}

	attemptID := lib.NewID()
	s.attempts++
	logger := s.logger.With().Str("attempt", attemptID).Str("path", path).Logger()
	logger.Info().Msg("Starting broker")

	proc, err := s.spawn(attemptID, path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Error starting broker")
		s.process = nil
		s.last = &brokerProcess{id: attemptID, path: path}
		s.lastErr = err
		s.setState(lib.BrokerStateStoppedWithError)
		if s.recorder != nil {
			s.recorder.RecordFailure(attemptID, path, err, time.Now())
		}
		return nil
	}

	s.process = proc
	s.last = proc
	s.lastErr = nil
	s.setState(lib.BrokerStateRunning)
	logger.Info().Int("pid", proc.pid).Msg("Broker started")
	if s.recorder != nil {
		s.recorder.RecordStart(attemptID, path, proc.pid, proc.start)
	}

	go s.wait(proc, logger)

	return nil
}

func (s *Supervisor) spawn(id, path string, logger zerolog.Logger) (*brokerProcess, error) {
	var lock *flock.Flock
	if s.lockPath != "" {
		lock = flock.New(s.lockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire instance lock: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("%w (lock %s)", ErrAnotherInstance, s.lockPath)
		}
	}
	release := func() {
		if lock != nil {
			_ = lock.Unlock()
		}
	}

	cmd := exec.Command(path, s.args...)

	attr, err := GetSysProcAttr(id, s.cgroup)
	if err != nil {
		logger.Warn().Err(err).Msg("Cgroup setup failed, starting broker without it")
		attr = defaultSysProcAttr()
	}
	cmd.SysProcAttr = attr.Raw

	// os/exec creates the stdout pipe and drains it into the storage until EOF.
	stdout := output_storage.New("stdout", s.tailLines, logger)
	cmd.Stdin = s.stdin
	cmd.Stdout = stdout
	cmd.Stderr = s.stderr
	// A grandchild holding the pipe open must not keep Wait blocked forever.
	cmd.WaitDelay = s.stopTimeout

	err = cmd.Start()
	if attr.File != nil {
		_ = attr.File.Close()
	}
	if err != nil {
		if attr.Cgroup {
			_ = CleanupCgroup(id)
		}
		release()
		return nil, err
	}

	return &brokerProcess{
		id:     id,
		path:   path,
		cmd:    cmd,
		pid:    cmd.Process.Pid,
		start:  time.Now(),
		stdout: stdout,
		lock:   lock,
		done:   make(chan struct{}),
		cgroup: attr.Cgroup,
	}, nil
}

// wait observes the exit of proc and releases everything tied to it.
func (s *Supervisor) wait(proc *brokerProcess, logger zerolog.Logger) {
	waitErr := proc.cmd.Wait()
	proc.stdout.Flush()
	now := time.Now()

	var exitCode *int
	failed := true
	if ps := proc.cmd.ProcessState; ps != nil {
		code := ps.ExitCode()
		exitCode = &code
		failed = !ps.Success()
	}

	s.mu.Lock()
	// Release the instance lock before the state change becomes visible, so a
	// Start observing Stopped can take it.
	if proc.lock != nil {
		_ = proc.lock.Unlock()
	}
	proc.exitCode = exitCode
	proc.end = &now
	state := lib.BrokerStateStopped
	if failed && !proc.stopRequested {
		state = lib.BrokerStateStoppedWithError
	}
	if s.process == proc {
		s.process = nil
		if state == lib.BrokerStateStoppedWithError {
			s.lastErr = fmt.Errorf("broker exited: %w", waitErr)
		}
		s.setState(state)
	}
	s.mu.Unlock()

	event := logger.Info()
	if state == lib.BrokerStateStoppedWithError {
		event = logger.Error().Err(waitErr).Strs("tail", proc.stdout.Tail(10))
	}
	if exitCode != nil {
		event = event.Int("exit_code", *exitCode)
	}
	event.Str("state", state.String()).Msg("Broker exited")

	if proc.cgroup {
		_ = CleanupCgroup(proc.id)
	}
	if s.recorder != nil {
		s.recorder.RecordExit(proc.id, exitCode, state, now)
	}

	close(proc.done)
}
