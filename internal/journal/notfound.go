package journal

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/plsync/plsync/internal/models"
)

// NotFoundSink appends tracks that could not be matched to a plain-text file,
// one "Artist - Title" per line, for manual review. Duplicate tracks are
// written once per process.
type NotFoundSink struct {
	mu   sync.Mutex
	path string
	seen map[string]struct{}
}

// NewNotFoundSink creates a sink writing to path.
func NewNotFoundSink(path string) *NotFoundSink {
	return &NotFoundSink{path: path, seen: make(map[string]struct{})}
}

// Path returns the sink file location.
func (s *NotFoundSink) Path() string {
	return s.path
}

// Record appends one unmatched track.
func (s *NotFoundSink) Record(track models.Track) error {
	line := fmt.Sprintf("%s - %s", track.Artist, track.Title)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.seen[line]; dup {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create no-results directory: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open no-results file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, line); err != nil {
		return fmt.Errorf("append no-results line: %w", err)
	}

	s.seen[line] = struct{}{}
	return nil
}

// Lines reads the sink contents. A missing file is an empty sink.
func (s *NotFoundSink) Lines() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open no-results file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
