package repository

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mpotapov/pocket-reminder-bot/internal/domain"
)

// SessionLog is the append-only durable store of authorized sessions:
// one encoded record per line, appended exactly once per session and
// never rewritten. The whole file is replayed once at startup.
type SessionLog struct {
	path string
	mu   sync.Mutex
}

func NewSessionLog(path string) *SessionLog {
	return &SessionLog{path: path}
}

// Append durably writes one record to the end of the log. The write is
// synced before returning; a failure here is reported to the caller but
// the in-memory session transition it belongs to is not rolled back.
func (l *SessionLog) Append(record domain.PersistedRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open session log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(record.Encode() + "\n"); err != nil {
		return fmt.Errorf("failed to append session record: %w", err)
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync session log: %w", err)
	}

	return nil
}

// ReadAll returns every record ever appended, in append order. A log
// file that does not exist yet reads as empty. Any malformed line is an
// error: a schedule must not be silently dropped or misread at startup.
func (l *SessionLog) ReadAll() ([]domain.PersistedRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open session log: %w", err)
	}
	defer f.Close()

	var records []domain.PersistedRecord

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		record, err := domain.ParseRecord(line)
		if err != nil {
			return nil, fmt.Errorf("malformed session record at line %d: %w", lineNo, err)
		}
		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session log: %w", err)
	}

	return records, nil
}

// Path returns the log file location (used by the health check).
func (l *SessionLog) Path() string {
	return l.path
}
