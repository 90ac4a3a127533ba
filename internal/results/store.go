package results

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	apperrors "github.com/basekick-labs/dfio/internal/errors"
)

// DefaultPath is the results log used when none is configured.
const DefaultPath = "./dfio-benchmark.json"

const maxLineSize = 64 * 1024 * 1024

// Store is an append-only JSON-lines results log. It holds no open file
// and takes no locks: every Append opens the file with O_APPEND, writes one
// line in a single call and closes it.
type Store struct {
	path string
}

// NewStore returns a store at path, or at DefaultPath if path is empty.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

// Path returns the log file path.
func (s *Store) Path() string {
	return s.path
}

// Append writes rec as one line at the end of the log.
func (s *Store) Append(rec Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open results log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to results log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close results log: %w", err)
	}
	return nil
}

// Load returns every record in append order. A missing log is an empty
// history. A line that doesn't decode fails the whole load with an
// integrity error naming its 1-based line number.
func (s *Store) Load() ([]Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("failed to open results log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	recs := []Record{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, malformed(s.path, lineNo, err)
		}
		recs = append(recs, rec)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, malformed(s.path, lineNo+1, err)
		}
		return nil, fmt.Errorf("failed to read results log: %w", err)
	}
	return recs, nil
}

func malformed(path string, line int, cause error) error {
	return apperrors.NewIntegrityError(apperrors.CodeMalformedRecord,
		fmt.Sprintf("malformed record in %s at line %d", path, line), cause).
		WithDetails(map[string]interface{}{"path": path, "line": line})
}
