// Package store provides the durable run state: the append-only JSON Lines
// result log and the atomically overwritten progress record.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/spherical/book-translator/internal/domain"
)

// ResultLog is the append-only record of one outcome per processed page,
// stored as JSON Lines. The log is the authoritative idempotence check:
// a page present here is never processed again.
type ResultLog struct {
	path   string
	logger zerolog.Logger
}

// OpenResultLog opens (or prepares to create) the log at path. A prior run
// may have been interrupted mid-append; the trailing malformed record, if
// any, is truncated away before the log is used.
func OpenResultLog(path string, logger zerolog.Logger) (*ResultLog, error) {
	log := &ResultLog{path: path, logger: logger}
	if err := log.repair(); err != nil {
		return nil, err
	}
	return log, nil
}

// Path returns the log's file path.
func (l *ResultLog) Path() string {
	return l.path
}

// Append commits one page result. The record is synced to disk before
// returning so a crash after Append never loses the entry.
func (l *ResultLog) Append(result domain.PageResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return domain.IOError("marshaling page result", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return domain.IOError(fmt.Sprintf("opening result log %s", l.path), err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return domain.IOError("appending page result", err)
	}
	if err := f.Sync(); err != nil {
		return domain.IOError("syncing result log", err)
	}
	return nil
}

// Results returns all committed results in file order. A missing log yields
// an empty slice.
func (l *ResultLog) Results() ([]domain.PageResult, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("reading result log %s", l.path), err)
	}

	var results []domain.PageResult
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var r domain.PageResult
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, domain.CorruptionError("result log contains a malformed record", err)
		}
		results = append(results, r)
	}
	return results, nil
}

// ReadResults parses the log at path without the truncate-repair that
// OpenResultLog performs. A malformed tail is dropped from the returned
// slice with a warning; the file itself is never modified, so readers like
// the exporter leave the log exactly as they found it.
func ReadResults(path string, logger zerolog.Logger) ([]domain.PageResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("reading result log %s", path), err)
	}

	var results []domain.PageResult
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		r, ok := parseRecord(line)
		if !ok {
			logger.Warn().
				Str("path", path).
				Int("valid_records", len(results)).
				Msg("Result log has a malformed tail, reading up to last well-formed record")
			break
		}
		results = append(results, r)
	}
	return results, nil
}

// repair scans the log and truncates everything from the first record that
// does not parse as a result. Interrupted appends leave at most one partial
// trailing line, so in practice this drops only the damaged tail.
func (l *ResultLog) repair() error {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return domain.IOError(fmt.Sprintf("reading result log %s", l.path), err)
	}

	valid := 0 // byte offset just past the last well-formed record
	offset := 0
	for offset < len(data) {
		idx := bytes.IndexByte(data[offset:], '\n')
		var line []byte
		var next int
		if idx < 0 {
			line = data[offset:]
			next = len(data)
		} else {
			line = data[offset : offset+idx]
			next = offset + idx + 1
		}

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 {
			if _, ok := parseRecord(trimmed); !ok {
				break
			}
		}
		valid = next
		offset = next
	}

	if valid == len(data) {
		return nil
	}

	l.logger.Warn().
		Str("path", l.path).
		Int("discarded_bytes", len(data)-valid).
		Msg("Result log has a malformed tail, truncating to last well-formed record")

	if err := os.Truncate(l.path, int64(valid)); err != nil {
		return domain.IOError(fmt.Sprintf("truncating result log %s", l.path), err)
	}
	return nil
}

func parseRecord(line []byte) (domain.PageResult, bool) {
	var r domain.PageResult
	if err := json.Unmarshal(line, &r); err != nil {
		return domain.PageResult{}, false
	}
	if r.PageNumber < 1 {
		return domain.PageResult{}, false
	}
	return r, r.Status == domain.StatusSuccess || r.Status == domain.StatusError
}
