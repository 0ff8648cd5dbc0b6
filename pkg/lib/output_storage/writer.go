package output_storage

import (
	"bytes"
)

// Write implements io.Writer for OutputStorage. It is assigned as the child's
// stdout, so os/exec owns the pipe and keeps copying into it until EOF.
//
// Behavior:
// - nil receiver: no-op, returns len(p), nil (the pipe is still drained).
// - empty input: returns 0, nil.
func (s *OutputStorage) Write(p []byte) (int, error) {
	if s == nil {
		return len(p), nil
	}
	if len(p) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rest := p
	for len(rest) > 0 {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			s.partial = append(s.partial, rest...)
			if len(s.partial) >= maxLineLength {
				s.appendLine(s.partial)
				s.partial = nil
			}
			break
		}
		if len(s.partial) > 0 {
			s.partial = append(s.partial, rest[:i]...)
			s.appendLine(s.partial)
			s.partial = nil
		} else {
			s.appendLine(rest[:i])
		}
		rest = rest[i+1:]
	}

	return len(p), nil
}
