package audit

import (
	"accesslog-etl/internal/types"
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sync"
)

// Logger keeps the run history of the importer as JSON lines
type Logger struct {
	mu       sync.Mutex
	filePath string
}

// NewLogger creates a run audit logger; an empty path disables it
func NewLogger(filePath string) *Logger {
	return &Logger{
		filePath: filePath,
	}
}

// LogRun appends a run record and syncs it to disk before returning
func (l *Logger) LogRun(rec types.RunRecord) error {
	if l == nil || l.filePath == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(rec); err != nil {
		return fmt.Errorf("failed to encode run record %s: %w", rec.RunID, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync audit log: %w", err)
	}
	return nil
}

// LastSuccess returns the most recent run that finished without error, or
// nil when there is none. Unreadable lines are skipped.
func (l *Logger) LastSuccess() (*types.RunRecord, error) {
	if l == nil || l.filePath == "" {
		return nil, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var last *types.RunRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024) // runs list every file
	n := 0
	for scanner.Scan() {
		n++
		var rec types.RunRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			log.Printf("[AUDIT] %s line %d: %v", l.filePath, n, err)
			continue
		}
		if rec.Error == "" {
			last = &rec
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	return last, nil
}
