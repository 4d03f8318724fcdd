// Package log keeps the controller's append-only report log: one JSON line per
// utilization report, in zstd files rotated every hour.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// ErrClosed is returned by WriteReport after Close.
var ErrClosed = errors.New("report log closed")

const hourLayout = "2006-01-02-15"

// hourFile is the open zstd stream for one hour of reports. Reopening an hour
// appends a new zstd frame; readers decode the frames in sequence.
type hourFile struct {
	hour string
	f    *os.File
	zw   *zstd.Encoder
	buf  *bufio.Writer
}

func openHour(path, hour string) (*hourFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &hourFile{hour: hour, f: f, zw: zw, buf: bufio.NewWriterSize(zw, 64*1024)}, nil
}

func (h *hourFile) writeLine(b []byte) error {
	if _, err := h.buf.Write(b); err != nil {
		return err
	}
	if err := h.buf.WriteByte('\n'); err != nil {
		return err
	}
	return h.buf.Flush()
}

func (h *hourFile) close() error {
	flushErr := h.buf.Flush()
	zErr := h.zw.Close()
	fErr := h.f.Close()
	return errors.Join(flushErr, zErr, fErr)
}

// ReportLogger appends reports to <dir>/reports/reports-YYYY-MM-DD-HH.jsonl.zst.
// It is safe for concurrent use.
type ReportLogger struct {
	dir string
	now func() time.Time

	mu      sync.Mutex
	cur     *hourFile
	written int
	closed  bool
}

func NewReportLogger(dir string) *ReportLogger {
	return &ReportLogger{dir: filepath.Join(dir, "reports"), now: time.Now}
}

// PathFor returns the file that holds reports written during hour t.
func (l *ReportLogger) PathFor(t time.Time) string {
	return filepath.Join(l.dir, "reports-"+t.UTC().Format(hourLayout)+".jsonl.zst")
}

func (l *ReportLogger) WriteReport(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	now := l.now()
	if hour := now.UTC().Format(hourLayout); l.cur == nil || l.cur.hour != hour {
		if l.cur != nil {
			err := l.cur.close()
			l.cur = nil
			if err != nil {
				return err
			}
		}
		h, err := openHour(l.PathFor(now), hour)
		if err != nil {
			return err
		}
		l.cur = h
	}
	if err := l.cur.writeLine(b); err != nil {
		return err
	}
	l.written++
	return nil
}

// Written counts the reports accepted since the logger was created.
func (l *ReportLogger) Written() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written
}

func (l *ReportLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.cur == nil {
		return nil
	}
	err := l.cur.close()
	l.cur = nil
	return err
}
