package repository

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mpotapov/pocket-reminder-bot/internal/domain"
)

func testRecord(chatID int64, token string) domain.PersistedRecord {
	return domain.PersistedRecord{
		ChatID:      chatID,
		AccessToken: token,
		AnchorTime:  time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC),
		Period:      domain.PeriodDay,
	}
}

func TestSessionLog_AppendAndReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.log")
	log := NewSessionLog(path)

	records := []domain.PersistedRecord{
		testRecord(1, "tok-1"),
		testRecord(2, "tok-2"),
		testRecord(1, "tok-1-renewed"),
	}

	for _, rec := range records {
		if err := log.Append(rec); err != nil {
			t.Fatalf("Append returned error: %v", err)
		}
	}

	got, err := log.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll returned error: %v", err)
	}

	if len(got) != len(records) {
		t.Fatalf("ReadAll returned %d records, want %d", len(got), len(records))
	}

	// Append order must be preserved so last-write-wins works on replay.
	for i, rec := range records {
		if got[i].ChatID != rec.ChatID || got[i].AccessToken != rec.AccessToken {
			t.Errorf("record %d: got (%d, %q), want (%d, %q)",
				i, got[i].ChatID, got[i].AccessToken, rec.ChatID, rec.AccessToken)
		}
	}
}

func TestSessionLog_ReadAllMissingFile(t *testing.T) {
	log := NewSessionLog(filepath.Join(t.TempDir(), "does-not-exist.log"))

	got, err := log.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll on missing file returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("ReadAll on missing file returned %d records, want 0", len(got))
	}
}

func TestSessionLog_AppendCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "sessions.log")
	log := NewSessionLog(path)

	if err := log.Append(testRecord(1, "tok")); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected log file to exist: %v", err)
	}
}

func TestSessionLog_MalformedLineIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.log")
	log := NewSessionLog(path)

	if err := log.Append(testRecord(1, "tok")); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("failed to open log file: %v", err)
	}
	if _, err := f.WriteString("this is not a record\n"); err != nil {
		t.Fatalf("failed to corrupt log file: %v", err)
	}
	f.Close()

	if _, err := log.ReadAll(); err == nil {
		t.Fatalf("ReadAll on corrupt log expected error, got nil")
	}
}

func TestSessionLog_SkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.log")
	log := NewSessionLog(path)

	if err := os.WriteFile(path, []byte("\n"+testRecord(7, "tok-7").Encode()+"\n\n"), 0o644); err != nil {
		t.Fatalf("failed to write log file: %v", err)
	}

	got, err := log.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll returned error: %v", err)
	}
	if len(got) != 1 || got[0].ChatID != 7 {
		t.Fatalf("ReadAll = %+v, want one record for chat 7", got)
	}
}
