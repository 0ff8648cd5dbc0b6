package supervisor

import (
	"github.com/SanjoDeundiak/broker-shell/pkg/lib"
)

// State returns the last observed broker state. It never mutates anything.
func (s *Supervisor) State() lib.BrokerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns a snapshot describing the current or most recent attempt.
func (s *Supervisor) Status() lib.BrokerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Supervisor) statusLocked() lib.BrokerStatus {
	st := lib.BrokerStatus{State: s.state, Attempts: s.attempts}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if s.process != nil {
		st.PID = s.process.pid
	}

	p := s.last
	if p == nil {
		return st
	}
	st.AttemptID = p.id
	st.Path = p.path
	if !p.start.IsZero() {
		t := p.start
		st.StartTime = &t
	}
	if p.end != nil {
		t := *p.end
		st.EndTime = &t
	}
	if p.exitCode != nil {
		code := *p.exitCode
		st.ExitCode = &code
	}
	return st
}

// Output returns up to n recent stdout lines of the current or last broker.
func (s *Supervisor) Output(n int) []string {
	s.mu.Lock()
	p := s.last
	s.mu.Unlock()
	if p == nil {
		return nil
	}
	return p.stdout.Tail(n)
}

// Subscribe delivers every state change. A slow subscriber only sees the latest state.
func (s *Supervisor) Subscribe() (chan lib.BrokerState, error) {
	return s.states.Subscribe()
}

func (s *Supervisor) Unsubscribe(ch chan lib.BrokerState) {
	s.states.Unsubscribe(ch)
}
