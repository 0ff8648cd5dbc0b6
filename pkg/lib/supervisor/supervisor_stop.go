package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/SanjoDeundiak/broker-shell/pkg/lib"
)

// ErrStopTimeout is returned when the broker survived the forced kill.
var ErrStopTimeout = errors.New("broker did not exit after kill")

// Stop asks the broker to terminate and waits up to the stop timeout (or until
// ctx is done) before killing it. Without a running broker it returns the
// current status unchanged.
func (s *Supervisor) Stop(ctx context.Context) (lib.BrokerStatus, error) {
	s.mu.Lock()
	proc := s.process
	if proc == nil {
		st := s.statusLocked()
		s.mu.Unlock()
		return st, nil
	}
	proc.stopRequested = true
	cgroup := proc.cgroup
	s.mu.Unlock()

	logger := s.logger.With().Str("attempt", proc.id).Int("pid", proc.pid).Logger()
	logger.Info().Msg("Stopping broker")

	if err := terminate(proc.cmd.Process); err != nil {
		logger.Warn().Err(err).Msg("Termination signal failed")
	}

	timer := time.NewTimer(s.stopTimeout)
	defer timer.Stop()

	select {
	case <-proc.done:
		return s.Status(), nil
	case <-timer.C:
		logger.Warn().Dur("timeout", s.stopTimeout).Msg("Broker ignored termination, killing it")
	case <-ctx.Done():
		logger.Warn().Err(ctx.Err()).Msg("Stop interrupted, killing broker")
	}

	select {
	case <-proc.done:
		return s.Status(), nil
	default:
	}

	// Prefer the cgroup kill, it also reaches processes that left the group.
	killed := false
	if cgroup {
		killed, _ = KillCgroup(proc.id)
	}
	if !killed {
		if err := forceKill(proc.cmd.Process); err != nil {
			logger.Warn().Err(err).Msg("Kill failed")
		}
	}

	// Wait returns at most WaitDelay (the stop timeout) after the exit.
	grace := time.NewTimer(2 * s.stopTimeout)
	defer grace.Stop()
	select {
	case <-proc.done:
		return s.Status(), nil
	case <-grace.C:
		return s.Status(), ErrStopTimeout
	}
}
