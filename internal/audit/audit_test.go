package audit

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.db")
	l, err := NewLogger(path, 10, time.Hour, []byte("test-key"))
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	t.Cleanup(func() { l.db.Close() })
	return l
}

func TestLog_CriticalAction_WritesImmediately(t *testing.T) {
	l := newTestLogger(t)
	l.Log("user_register", "master:6001", "username=alice", true)

	var count int
	if err := l.db.QueryRow(`SELECT COUNT(*) FROM audit_logs WHERE action = ?`, "user_register").Scan(&count); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row written immediately for a critical action, got %d", count)
	}
}

func TestLog_NonCritical_BuffersUntilFlush(t *testing.T) {
	l := newTestLogger(t)
	l.Log("file_create", "master:6001", "file=file_1", true)

	var count int
	l.db.QueryRow(`SELECT COUNT(*) FROM audit_logs`).Scan(&count)
	if count != 0 {
		t.Fatalf("expected buffered event not yet written, got %d rows", count)
	}

	if err := l.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	l.db.QueryRow(`SELECT COUNT(*) FROM audit_logs`).Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row after flush, got %d", count)
	}
}

func TestLog_BufferFlushesAtMaxSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	l, err := NewLogger(path, 3, time.Hour, nil)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer l.db.Close()

	for i := 0; i < 3; i++ {
		l.Log("file_create", "master:6001", "x", true)
	}

	var count int
	l.db.QueryRow(`SELECT COUNT(*) FROM audit_logs`).Scan(&count)
	if count != 3 {
		t.Errorf("expected auto-flush at maxBuffer, got %d rows", count)
	}
}

func TestWriteBatch_ChainsHashes(t *testing.T) {
	l := newTestLogger(t)
	l.Log("user_register", "master:6001", "a", true)
	l.Log("admin_kill", "master:6001", "b", true)

	rows, err := l.db.Query(`SELECT prev_hash, row_hash FROM audit_logs ORDER BY id`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()

	var hashes [][2]string
	for rows.Next() {
		var prev, row string
		if err := rows.Scan(&prev, &row); err != nil {
			t.Fatalf("scan: %v", err)
		}
		hashes = append(hashes, [2]string{prev, row})
	}
	if len(hashes) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(hashes))
	}
	if hashes[0][0] != "" {
		t.Errorf("expected empty prev_hash on first row, got %q", hashes[0][0])
	}
	if hashes[1][0] != hashes[0][1] {
		t.Errorf("expected second row's prev_hash to chain from first row's row_hash")
	}
}
