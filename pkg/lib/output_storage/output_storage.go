package output_storage

import (
	"bytes"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultCapacity is the number of lines kept when no capacity is given.
const DefaultCapacity = 200

// maxLineLength bounds a line that never sees a newline.
const maxLineLength = 64 * 1024

// OutputStorage drains a child's output stream. Complete lines are forwarded
// to the logger and the most recent ones are retained in a fixed size ring,
// so memory stays bounded no matter how much the child writes.
type OutputStorage struct {
	mu       sync.Mutex
	logger   zerolog.Logger
	stream   string
	partial  []byte
	lines    []string
	next     int
	full     bool
	total    uint64
	capacity int
}

// New creates an OutputStorage retaining up to capacity lines of stream.
func New(stream string, capacity int, logger zerolog.Logger) *OutputStorage {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &OutputStorage{
		logger:   logger,
		stream:   stream,
		lines:    make([]string, capacity),
		capacity: capacity,
	}
}

func (s *OutputStorage) appendLine(line []byte) {
	text := string(bytes.TrimRight(line, "\r"))
	s.lines[s.next] = text
	s.next = (s.next + 1) % s.capacity
	if s.next == 0 {
		s.full = true
	}
	s.total++
	s.logger.Info().Str("stream", s.stream).Msg(text)
}

// Flush emits a trailing line that was not terminated by a newline.
func (s *OutputStorage) Flush() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.partial) > 0 {
		s.appendLine(s.partial)
		s.partial = nil
	}
}

// Tail returns up to n of the most recent lines, oldest first. n <= 0 returns all retained lines.
func (s *OutputStorage) Tail(n int) []string {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	count := s.next
	if s.full {
		count = s.capacity
	}
	if n <= 0 || n > count {
		n = count
	}

	out := make([]string, 0, n)
	start := (s.next - n + s.capacity) % s.capacity
	for i := 0; i < n; i++ {
		out = append(out, s.lines[(start+i)%s.capacity])
	}
	return out
}

// Lines returns how many complete lines have been written in total.
func (s *OutputStorage) Lines() uint64 {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}
