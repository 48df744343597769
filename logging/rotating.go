package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const logFilePrefix = "supply-"

var numberedLogFile = regexp.MustCompile(`^supply-\d{4}-W\d{2}_(\d{2})\.log$`)

// RotatingWriter writes to one log file per ISO week. A file that reaches
// maxFileSize rolls over to a numbered sibling (supply-2024-W09_01.log).
// Files older than the retention period are removed on each rotation.
type RotatingWriter struct {
	logDir      string
	retention   time.Duration
	maxFileSize int64
	now         func() time.Time

	mu          sync.Mutex
	currentFile *os.File
	currentWeek string
	currentSize int64
}

// NewRotatingWriter creates the log directory and opens the current week's file
func NewRotatingWriter(logDir string, retentionWeeks int, maxFileSize int64) (*RotatingWriter, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	rw := &RotatingWriter{
		logDir:      logDir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		now:         time.Now,
	}

	rw.mu.Lock()
	defer rw.mu.Unlock()
	if err := rw.rotate(getWeekKey(rw.now()), false); err != nil {
		return nil, err
	}
	return rw, nil
}

// getWeekKey returns the week key in YYYY-Www format (ISO week)
func getWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Write implements io.Writer
func (rw *RotatingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.currentFile == nil {
		return 0, fmt.Errorf("log file is closed")
	}

	week := getWeekKey(rw.now())
	switch {
	case week != rw.currentWeek:
		if err := rw.rotate(week, false); err != nil {
			return 0, err
		}
	case rw.maxFileSize > 0 && rw.currentSize+int64(len(p)) > rw.maxFileSize:
		if err := rw.rotate(week, true); err != nil {
			return 0, err
		}
	}

	n, err := rw.currentFile.Write(p)
	rw.currentSize += int64(n)
	return n, err
}

// rotate opens the file for week (caller must hold the lock). When overflow
// is set, the next numbered file is used even if the base file has room.
func (rw *RotatingWriter) rotate(week string, overflow bool) error {
	if rw.currentFile != nil {
		if err := rw.currentFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file during rotation: %v\n", err)
		}
		rw.currentFile = nil
	}

	name := rw.pickFileName(week, overflow)
	path := filepath.Join(rw.logDir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	var size int64
	if info, err := file.Stat(); err == nil {
		size = info.Size()
	}

	rw.currentFile = file
	rw.currentWeek = week
	rw.currentSize = size

	rw.cleanupOldLogs()
	return nil
}

func (rw *RotatingWriter) pickFileName(week string, overflow bool) string {
	numbered := func(n int) string {
		return fmt.Sprintf("%s%s_%02d.log", logFilePrefix, week, n)
	}

	highest, size := rw.highestNumbered(week)
	if highest > 0 {
		if !overflow && (rw.maxFileSize == 0 || size < rw.maxFileSize) {
			return numbered(highest)
		}
		return numbered(highest + 1)
	}

	base := fmt.Sprintf("%s%s.log", logFilePrefix, week)
	if !overflow {
		info, err := os.Stat(filepath.Join(rw.logDir, base))
		if err != nil || rw.maxFileSize == 0 || info.Size() < rw.maxFileSize {
			return base
		}
	}
	return numbered(1)
}

// highestNumbered returns the highest overflow number used for week and that file's size
func (rw *RotatingWriter) highestNumbered(week string) (int, int64) {
	matches, _ := filepath.Glob(filepath.Join(rw.logDir, fmt.Sprintf("%s%s_??.log", logFilePrefix, week)))

	highest := 0
	var size int64
	for _, match := range matches {
		m := numberedLogFile.FindStringSubmatch(filepath.Base(match))
		if len(m) < 2 {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		if num > highest {
			highest = num
			size = 0
			if info, err := os.Stat(match); err == nil {
				size = info.Size()
			}
		}
	}
	return highest, size
}

// cleanupOldLogs removes log files whose modification time is past retention
func (rw *RotatingWriter) cleanupOldLogs() {
	if rw.retention <= 0 {
		return
	}

	entries, err := os.ReadDir(rw.logDir)
	if err != nil {
		return
	}

	cutoff := rw.now().Add(-rw.retention)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		if rw.currentFile != nil && filepath.Join(rw.logDir, name) == rw.currentFile.Name() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(rw.logDir, name))
		}
	}
}

// Close closes the current log file
func (rw *RotatingWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.currentFile == nil {
		return nil
	}
	err := rw.currentFile.Close()
	rw.currentFile = nil
	return err
}
