package logger

import (
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogEntry is one captured log line with the benchmark context fields the
// runner attaches to its per-combination messages.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Component string    `json:"component,omitempty"`
	Message   string    `json:"message"`
	Operation string    `json:"operation,omitempty"`
	Method    string    `json:"method,omitempty"`
	Schema    string    `json:"schema,omitempty"`
	Length    int       `json:"length,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// LogBuffer is a circular buffer that stores recent log entries
type LogBuffer struct {
	mu       sync.RWMutex
	entries  []LogEntry
	size     int
	writePos int
	count    int
}

var (
	globalBuffer *LogBuffer
	bufferOnce   sync.Once
)

// GetBuffer returns the global log buffer instance
func GetBuffer() *LogBuffer {
	bufferOnce.Do(func() {
		globalBuffer = NewLogBuffer(10000)
	})
	return globalBuffer
}

// NewLogBuffer creates a new log buffer with specified capacity
func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = 1
	}
	return &LogBuffer{
		entries: make([]LogEntry, size),
		size:    size,
	}
}

// Add adds a log entry to the buffer
func (b *LogBuffer) Add(entry LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.writePos] = entry
	b.writePos = (b.writePos + 1) % b.size
	if b.count < b.size {
		b.count++
	}
}

// Entries returns buffered entries at or above level, oldest first.
// An empty level matches everything.
func (b *LogBuffer) Entries(level string) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	levelUpper := strings.ToUpper(level)
	start := (b.writePos - b.count + b.size) % b.size

	var result []LogEntry
	for i := 0; i < b.count; i++ {
		entry := b.entries[(start+i)%b.size]
		if levelUpper != "" && !matchesLevel(entry.Level, levelUpper) {
			continue
		}
		result = append(result, entry)
	}
	return result
}

// matchesLevel reports whether entryLevel is at or above filterLevel.
// Names zerolog doesn't know only match themselves.
func matchesLevel(entryLevel, filterLevel string) bool {
	entry, err1 := zerolog.ParseLevel(strings.ToLower(entryLevel))
	filter, err2 := zerolog.ParseLevel(strings.ToLower(filterLevel))
	if err1 != nil || err2 != nil {
		return strings.EqualFold(entryLevel, filterLevel)
	}
	return entry >= filter
}

// Count returns the current number of entries in the buffer
func (b *LogBuffer) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Reset drops all buffered entries.
func (b *LogBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writePos = 0
	b.count = 0
}

// LogBufferWriter is an io.Writer that captures log output and stores in buffer
type LogBufferWriter struct {
	buffer   *LogBuffer
	original io.Writer
}

// NewLogBufferWriter creates a writer that captures logs to the global buffer
func NewLogBufferWriter(original io.Writer) *LogBufferWriter {
	return NewLogBufferWriterTo(GetBuffer(), original)
}

// NewLogBufferWriterTo creates a writer that captures logs to buffer.
func NewLogBufferWriterTo(buffer *LogBuffer, original io.Writer) *LogBufferWriter {
	return &LogBufferWriter{
		buffer:   buffer,
		original: original,
	}
}

// Write implements io.Writer, parsing zerolog JSON and storing entries
func (w *LogBufferWriter) Write(p []byte) (n int, err error) {
	if w.original != nil {
		n, err = w.original.Write(p)
	} else {
		n = len(p)
	}

	if entry, ok := parseLogLine(p); ok {
		w.buffer.Add(entry)
	}

	return n, err
}

// parseLogLine decodes one zerolog JSON line. Lines that are not JSON (a
// console writer upstream, for instance) are skipped.
func parseLogLine(line []byte) (LogEntry, bool) {
	var raw struct {
		Level     string `json:"level"`
		Component string `json:"component"`
		Message   string `json:"message"`
		Operation string `json:"operation"`
		Method    string `json:"method"`
		Schema    string `json:"schema"`
		Length    int    `json:"length"`
		Error     string `json:"error"`
	}
	if err := json.Unmarshal(line, &raw); err != nil {
		return LogEntry{}, false
	}
	if raw.Level == "" && raw.Message == "" {
		return LogEntry{}, false
	}

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     strings.ToUpper(raw.Level),
		Component: raw.Component,
		Message:   raw.Message,
		Operation: raw.Operation,
		Schema:    raw.Schema,
		Length:    raw.Length,
		Method:    raw.Method,
		Error:     raw.Error,
	}
	return entry, true
}
