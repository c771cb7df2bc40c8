// Package failurelog records usernames whose resolution failed in an
// append-only text file, one username per line.
package failurelog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
)

// DefaultPath matches the file name operators tail during a crawl.
const DefaultPath = "failed.txt"

// File appends failures to a text file. The file is opened and closed on every
// write so external readers always see complete lines.
type File struct {
	mu   sync.Mutex
	path string
}

// New returns a File writing to path, or DefaultPath when empty.
func New(path string) *File {
	if path == "" {
		path = DefaultPath
	}
	return &File{path: path}
}

// Path returns the file location.
func (f *File) Path() string { return f.path }

// RecordFailure appends username followed by a newline.
func (f *File) RecordFailure(_ context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return errors.New("username is required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open failure log: %w", err)
	}
	if _, err := fh.WriteString(username + "\n"); err != nil {
		_ = fh.Close()
		return fmt.Errorf("append failure log: %w", err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("close failure log: %w", err)
	}
	return nil
}

// Usernames returns every recorded line in file order. A missing file yields
// an empty list.
func (f *File) Usernames() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open failure log: %w", err)
	}
	defer fh.Close()

	out := []string{}
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read failure log: %w", err)
	}
	return out, nil
}

// Count returns the number of recorded lines.
func (f *File) Count() (int, error) {
	names, err := f.Usernames()
	if err != nil {
		return 0, err
	}
	return len(names), nil
}
