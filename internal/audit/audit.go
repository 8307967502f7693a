// Package audit is a buffered, HMAC-chained action log. Every master and
// chunkserver keeps one: security-sensitive actions (user registration,
// admin/kill, lease grants, election outcomes) are written straight
// through; everything else is batched and flushed periodically.
package audit

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Event is a single audit log entry.
type Event struct {
	Timestamp int64
	Node      string // e.g. "master:6003", "chunkserver:5001"
	Action    string
	Details   string
	Success   bool
}

// criticalActions bypass the buffer and are written directly, so they
// survive a hard crash or os.Exit(0) from /admin/kill.
var criticalActions = map[string]bool{
	"election_victory": true,
	"leader_change":    true,
	"user_register":    true,
	"admin_kill":       true,
	"lease_grant":      true,
}

// Logger is a buffered, HMAC-chained audit logger backed by sqlite.
type Logger struct {
	db            *sql.DB
	buffer        []Event
	bufferMutex   sync.Mutex
	flushTicker   *time.Ticker
	stopChan      chan struct{}
	maxBuffer     int
	flushInterval time.Duration
	hmacKey       []byte
}

// NewLogger opens path and returns a ready-to-Start logger. hmacKey may be
// nil, in which case the hash chain is disabled but logging still works.
func NewLogger(path string, maxBuffer int, flushInterval time.Duration, hmacKey []byte) (*Logger, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS audit_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,
		node TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL DEFAULT '',
		details TEXT NOT NULL DEFAULT '',
		success INTEGER NOT NULL DEFAULT 1,
		prev_hash TEXT NOT NULL DEFAULT '',
		row_hash TEXT NOT NULL DEFAULT ''
	)`); err != nil {
		return nil, fmt.Errorf("audit schema: %w", err)
	}

	if maxBuffer <= 0 {
		maxBuffer = 50
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}

	return &Logger{
		db:            db,
		buffer:        make([]Event, 0, maxBuffer),
		maxBuffer:     maxBuffer,
		flushInterval: flushInterval,
		stopChan:      make(chan struct{}),
		hmacKey:       hmacKey,
	}, nil
}

// Start begins the background flush loop.
func (l *Logger) Start() {
	l.flushTicker = time.NewTicker(l.flushInterval)
	go func() {
		for {
			select {
			case <-l.flushTicker.C:
				if err := l.Flush(); err != nil {
					log.Printf("[audit] flush error: %v", err)
				}
			case <-l.stopChan:
				l.flushTicker.Stop()
				if err := l.Flush(); err != nil {
					log.Printf("[audit] final flush error: %v", err)
				}
				return
			}
		}
	}()
}

// Stop flushes and halts the background loop, then closes the database.
func (l *Logger) Stop() {
	close(l.stopChan)
	if err := l.Flush(); err != nil {
		log.Printf("[audit] final flush error: %v", err)
	}
	l.db.Close()
}

// Log records an event, bypassing the buffer for critical actions.
func (l *Logger) Log(action, node, details string, success bool) {
	event := Event{Timestamp: time.Now().Unix(), Node: node, Action: action, Details: details, Success: success}

	if criticalActions[action] {
		if err := l.writeDirect([]Event{event}); err != nil {
			log.Printf("[audit] direct write error: %v", err)
		}
		return
	}

	l.bufferMutex.Lock()
	l.buffer = append(l.buffer, event)
	needFlush := len(l.buffer) >= l.maxBuffer
	l.bufferMutex.Unlock()

	if needFlush {
		if err := l.Flush(); err != nil {
			log.Printf("[audit] flush error: %v", err)
		}
	}
}

func (l *Logger) writeDirect(events []Event) error {
	return l.writeBatch(events)
}

// Flush writes every buffered event to sqlite in one transaction.
func (l *Logger) Flush() error {
	l.bufferMutex.Lock()
	if len(l.buffer) == 0 {
		l.bufferMutex.Unlock()
		return nil
	}
	events := make([]Event, len(l.buffer))
	copy(events, l.buffer)
	l.buffer = l.buffer[:0]
	l.bufferMutex.Unlock()

	return l.writeBatch(events)
}

func (l *Logger) writeBatch(events []Event) error {
	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("audit write: begin: %w", err)
	}
	defer tx.Rollback()

	var prevHash string
	if l.hmacKey != nil {
		_ = tx.QueryRow(`SELECT COALESCE(row_hash, '') FROM audit_logs ORDER BY id DESC LIMIT 1`).Scan(&prevHash)
	}

	stmt, err := tx.Prepare(`INSERT INTO audit_logs
		(timestamp, node, action, details, success, prev_hash, row_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("audit write: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		rowHash := computeRowHash(l.hmacKey, prevHash, e)
		if _, err := stmt.Exec(e.Timestamp, e.Node, e.Action, e.Details, e.Success, prevHash, rowHash); err != nil {
			log.Printf("[audit] insert error: %v", err)
			continue
		}
		prevHash = rowHash
	}

	return tx.Commit()
}
