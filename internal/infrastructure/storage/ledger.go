package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"BoardRelay/internal/ports"
)

// FileLedger is the durable record of delivered posts: one key per line,
// append-only. Membership survives restarts; nothing here ever rewrites or
// compacts existing entries.
type FileLedger struct {
	path string
	seen map[string]struct{}
}

var _ ports.Ledger = (*FileLedger)(nil)

// NewFileLedger loads the membership set from path. A missing or empty file
// yields an empty ledger, not an error. When ignoreExisting is set the
// loaded set is discarded for this process (the file itself is untouched
// and appends still go through).
func NewFileLedger(path string, ignoreExisting bool) (*FileLedger, error) {
	ledger := &FileLedger{path: path, seen: map[string]struct{}{}}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ledger, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key := strings.TrimSpace(scanner.Text())
		if key == "" {
			continue
		}
		if !ignoreExisting {
			ledger.seen[key] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	return ledger, nil
}

// Contains reports whether key was previously appended and persisted.
func (l *FileLedger) Contains(key string) bool {
	_, ok := l.seen[key]
	return ok
}

// Append durably persists each key. An empty slice is a no-op; re-appending
// a present key is harmless.
func (l *FileLedger) Append(keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	if dir := filepath.Dir(l.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger dir: %w", err)
		}
	}

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger for append: %w", err)
	}

	for _, key := range keys {
		if _, err := file.WriteString(key + "\n"); err != nil {
			_ = file.Close()
			return fmt.Errorf("append key %s: %w", key, err)
		}
	}

	if err := file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("sync ledger: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}

	for _, key := range keys {
		l.seen[key] = struct{}{}
	}
	return nil
}

// Len reports the number of distinct keys known to this process.
func (l *FileLedger) Len() int {
	return len(l.seen)
}
