package audit

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FileLog appends audit events as JSON lines to a single file. It is the
// primary sink: every security-relevant operation records an event here.
// Write failures are logged and dropped, never surfaced to the caller.
type FileLog struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
	now    func() time.Time
}

// NewFileLog constructs the file sink. The file is created lazily with
// owner-only permissions on the first event.
func NewFileLog(path string, logger *zap.Logger) *FileLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileLog{path: path, logger: logger, now: time.Now}
}

// WithClock injects a custom clock, primarily for tests.
func (l *FileLog) WithClock(now func() time.Time) *FileLog {
	if now != nil {
		l.now = now
	}
	return l
}

type fileEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Event     string         `json:"event"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Record appends one event line.
func (l *FileLog) Record(_ context.Context, event string, fields map[string]any) {
	entry := fileEntry{Timestamp: l.now().UTC(), Event: event, Fields: fields}
	line, err := json.Marshal(entry)
	if err != nil {
		l.logger.Error("marshal audit entry", zap.String("event", event), zap.Error(err))
		return
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		l.logger.Error("open audit log", zap.Error(err))
		return
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		l.logger.Error("append audit entry", zap.String("event", event), zap.Error(err))
	}
}

// Close implements port.AuditLog; the file is opened per write.
func (l *FileLog) Close() error {
	return nil
}
