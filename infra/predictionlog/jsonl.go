// Package predictionlog stores prediction log entries in a rotating JSONL
// file or a SQLite database.
package predictionlog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kilianp07/fleetintel/core/predictionlog"
)

// Rotation bounds the size of the JSONL file. A zero MaxSizeMB uses the
// lumberjack default of 100 MB.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// JSONLStore appends entries to a JSONL file. A resolution is appended as a
// new line carrying the full updated entry; readers keep the last line per
// entry ID.
type JSONLStore struct {
	mu     sync.Mutex
	path   string
	writer *lumberjack.Logger
	now    func() time.Time
}

var _ predictionlog.Store = (*JSONLStore)(nil)

// NewJSONLStore opens the log at path, creating its directory when needed.
func NewJSONLStore(path string, rot Rotation) (*JSONLStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rot.MaxSizeMB,
		MaxBackups: rot.MaxBackups,
		MaxAge:     rot.MaxAgeDays,
	}
	return &JSONLStore{path: path, writer: lj, now: time.Now}, nil
}

func (s *JSONLStore) Append(_ context.Context, e predictionlog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(e)
}

func (s *JSONLStore) write(e predictionlog.Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	if _, err := s.writer.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	return nil
}

// Resolve records actuals on the most recent entry for jobID.
func (s *JSONLStore) Resolve(_ context.Context, jobID string, actualProfit, actualCost, rate float64) (predictionlog.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.load()
	if err != nil {
		return predictionlog.Entry{}, err
	}
	var (
		latest predictionlog.Entry
		found  bool
	)
	for _, e := range entries {
		if e.JobID == jobID && (!found || !e.CreatedAt.Before(latest.CreatedAt)) {
			latest, found = e, true
		}
	}
	if !found {
		return predictionlog.Entry{}, fmt.Errorf("job %s: %w", jobID, predictionlog.ErrNotFound)
	}
	resolved := latest.ResolveActuals(actualProfit, actualCost, rate, s.now())
	if err := s.write(resolved); err != nil {
		return predictionlog.Entry{}, err
	}
	return resolved, nil
}

// Query returns matching entries, oldest first. A positive Limit keeps the
// most recent ones.
func (s *JSONLStore) Query(_ context.Context, q predictionlog.Query) ([]predictionlog.Entry, error) {
	s.mu.Lock()
	entries, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var out []predictionlog.Entry
	for _, e := range entries {
		if q.Match(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out, nil
}

func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer.Close()
}

// load folds every file, rotated backups first, keeping the last line per ID.
func (s *JSONLStore) load() ([]predictionlog.Entry, error) {
	files, err := s.files()
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	var out []predictionlog.Entry
	for _, f := range files {
		if err := readLines(f, func(e predictionlog.Entry) {
			if i, ok := index[e.ID]; ok {
				out[i] = e
				return
			}
			index[e.ID] = len(out)
			out = append(out, e)
		}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// files lists lumberjack backups (name-<timestamp>.ext) in chronological
// order followed by the active file.
func (s *JSONLStore) files() ([]string, error) {
	ext := filepath.Ext(s.path)
	prefix := strings.TrimSuffix(s.path, ext) + "-"
	backups, err := filepath.Glob(prefix + "*" + ext)
	if err != nil {
		return nil, fmt.Errorf("list log files: %w", err)
	}
	sort.Strings(backups)
	if _, err := os.Stat(s.path); err == nil {
		backups = append(backups, s.path)
	}
	return backups, nil
}

func readLines(path string, fn func(predictionlog.Entry)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e predictionlog.Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		fn(e)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return nil
}
