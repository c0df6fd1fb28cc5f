// Package logstore persists log records as newline-delimited JSON, one
// append-only file per (server, resource) key under a root directory.
package logstore

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nuitap/nuitap/internal/model"
)

// Ext is the extension of every record file.
const Ext = ".log"

// DefaultTailLimit caps how many records a tail read returns.
const DefaultTailLimit = 200

// timestampLayout is UTC ISO-8601 with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// maxLineBytes bounds a single scanned record line during tail reads.
const maxLineBytes = 1 << 20

// ErrNotFound reports a clear against a key that has no log file. It is a
// reportable outcome, not a failure.
var ErrNotFound = errors.New("log not found")

// Store is an append-only per-key file store. Appends rely on the OS
// append-mode write guarantee; there is no in-process locking, so a tail
// racing a clear may observe a partial or just-truncated file. Accepted.
type Store struct {
	root string
	log  zerolog.Logger
	now  func() time.Time
}

// New returns a Store rooted at dir. The directory is created on demand by
// the first append, not here.
func New(dir string, logger zerolog.Logger) *Store {
	return &Store{root: dir, log: logger, now: time.Now}
}

// Root returns the store's root directory as configured.
func (s *Store) Root() string { return s.root }

func (s *Store) path(server, resource string) string {
	return filepath.Join(s.root, SanitizeName(server), SanitizeName(resource)+Ext)
}

// Append stamps rec with a server-side timestamp, overwriting any client
// value, and appends it as one JSON line to the key's file. The server
// directory is created lazily on first write.
func (s *Store) Append(server, resource string, rec model.Record) error {
	rec[model.TimestampField] = s.now().UTC().Format(timestampLayout)

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	p := s.path(server, resource)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(p, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	// Whole line in a single write so concurrent appends interleave at
	// record granularity only.
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// Tail returns the last limit records in write order, oldest of the tail
// first. limit values outside (0, DefaultTailLimit] are clamped to
// DefaultTailLimit. A missing file yields an empty slice. Unparsable lines
// are skipped with a warning rather than failing the read.
func (s *Store) Tail(server, resource string, limit int) ([]model.Record, error) {
	if limit <= 0 || limit > DefaultTailLimit {
		limit = DefaultTailLimit
	}

	f, err := os.Open(s.path(server, resource))
	if err != nil {
		if os.IsNotExist(err) {
			return []model.Record{}, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}

	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}

	records := make([]model.Record, 0, len(lines))
	for _, line := range lines {
		var rec model.Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			s.log.Warn().Err(err).
				Str("server", server).
				Str("resource", resource).
				Msg("skipping malformed log line")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Clear truncates the key's file to zero length. Clearing a key with no
// file returns ErrNotFound. The file itself is never deleted.
func (s *Store) Clear(server, resource string) error {
	p := s.path(server, resource)
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("stat log file: %w", err)
	}
	if err := os.Truncate(p, 0); err != nil {
		return fmt.Errorf("truncate log file: %w", err)
	}
	return nil
}

// ListResources returns the resource names logged under server, derived
// from file names with the extension stripped. A server with no directory
// yet yields an empty list.
func (s *Store) ListResources(server string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, SanitizeName(server)))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read server directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), Ext))
	}
	return names, nil
}

// ListServers returns the server names known to the store, one per
// subdirectory of the root. A missing root yields an empty list.
func (s *Store) ListServers() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read log root: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
