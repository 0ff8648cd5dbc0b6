package output_storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewOutputStorage_Empty(t *testing.T) {
	s := New("stdout", 4, zerolog.Nop())

	if got := s.Tail(0); len(got) != 0 {
		t.Fatalf("expected no lines, got %v", got)
	}
	if s.Lines() != 0 {
		t.Fatalf("expected 0 lines, got %d", s.Lines())
	}
}

func TestWrite_SplitsLinesAcrossChunks(t *testing.T) {
	s := New("stdout", 10, zerolog.Nop())

	for _, chunk := range []string{"hel", "lo\nwor", "ld\r\n", "\n", "tail"} {
		if _, err := s.Write([]byte(chunk)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	want := []string{"hello", "world", ""}
	if got := s.Tail(0); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("lines mismatch: got=%q want=%q", got, want)
	}

	s.Flush()
	want = append(want, "tail")
	if got := s.Tail(0); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("lines mismatch after flush: got=%q want=%q", got, want)
	}

	// Flushing again has nothing left to emit
	s.Flush()
	if s.Lines() != 4 {
		t.Fatalf("expected 4 lines, got %d", s.Lines())
	}
}

func TestTail_KeepsMostRecentLines(t *testing.T) {
	s := New("stdout", 3, zerolog.Nop())
	for i := 1; i <= 7; i++ {
		_, _ = fmt.Fprintf(s, "%d\n", i)
	}

	if got, want := s.Tail(0), []string{"5", "6", "7"}; fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("tail mismatch: got=%v want=%v", got, want)
	}
	if got, want := s.Tail(2), []string{"6", "7"}; fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("tail(2) mismatch: got=%v want=%v", got, want)
	}
	if got := s.Tail(10); len(got) != 3 {
		t.Fatalf("expected tail to be capped at capacity, got %v", got)
	}
	if s.Lines() != 7 {
		t.Fatalf("expected 7 total lines, got %d", s.Lines())
	}
}

func TestWrite_LongLineIsSplit(t *testing.T) {
	s := New("stdout", 4, zerolog.Nop())
	long := strings.Repeat("x", maxLineLength+10)

	if n, err := s.Write([]byte(long)); err != nil || n != len(long) {
		t.Fatalf("Write returned n=%d err=%v", n, err)
	}
	if s.Lines() != 1 {
		t.Fatalf("expected the oversized line to be emitted, got %d lines", s.Lines())
	}
}

func TestWrite_ForwardsLinesToLogger(t *testing.T) {
	var buf bytes.Buffer
	s := New("stdout", 4, zerolog.New(&buf))

	_, _ = s.Write([]byte("1652 mosquitto version 2.0.18 running\n"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a JSON log entry, got %q: %v", buf.String(), err)
	}
	if entry["stream"] != "stdout" {
		t.Fatalf("expected stream=stdout, got %v", entry["stream"])
	}
	if entry["message"] != "1652 mosquitto version 2.0.18 running" {
		t.Fatalf("unexpected message %v", entry["message"])
	}
}

func TestNilReceiverSafety(t *testing.T) {
	var s *OutputStorage

	if n, err := s.Write([]byte("x")); err != nil || n != 1 {
		t.Fatalf("expected nil receiver to swallow writes, got n=%d err=%v", n, err)
	}
	s.Flush()
	if got := s.Tail(5); got != nil {
		t.Fatalf("expected nil tail, got %v", got)
	}
	if s.Lines() != 0 {
		t.Fatalf("expected 0 lines")
	}
}

func TestWrite_Concurrent(t *testing.T) {
	s := New("stdout", 1000, zerolog.Nop())

	const writers = 8
	const perWriter = 100
	var wg sync.WaitGroup
	wg.Add(writers)
	for w := 0; w < writers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, _ = fmt.Fprintf(s, "w%d-%d\n", w, i)
			}
		}()
	}
	wg.Wait()

	if got := s.Lines(); got != writers*perWriter {
		t.Fatalf("expected %d lines, got %d", writers*perWriter, got)
	}
	for _, line := range s.Tail(0) {
		if !strings.HasPrefix(line, "w") || !strings.Contains(line, "-") {
			t.Fatalf("interleaved line %q", line)
		}
	}
}
