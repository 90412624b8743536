// Package results exports evaluation results as JSON lines and reads them back as a
// leaderboard history.
package results

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/ner-recall/internal/core/domain"
	apperrors "github.com/lueurxax/ner-recall/internal/core/errors"
)

const (
	defaultLockTimeout = 10 * time.Second
	lockPollInterval   = 100 * time.Millisecond
	lockSuffix         = ".lock"
	maxLineSize        = 1024 * 1024
	filePerm           = 0o644
	dirPerm            = 0o755
)

var errLockTimeout = errors.New("results file is locked by another process")

// Record is one exported evaluation result.
type Record struct {
	RunID     string    `json:"run_id"`
	Benchmark string    `json:"benchmark"`
	Timestamp time.Time `json:"timestamp"`
	domain.LeaderboardEntry
}

// Store appends records to a JSONL file. Writers in different processes are
// serialized with a lock file next to it.
type Store struct {
	path        string
	lockTimeout time.Duration
	logger      *zerolog.Logger
	now         func() time.Time
}

func NewStore(path string, lockTimeout time.Duration, logger *zerolog.Logger) *Store {
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}

	return &Store{path: path, lockTimeout: lockTimeout, logger: logger, now: time.Now}
}

// Path returns the results file path.
func (s *Store) Path() string {
	return s.path
}

// Append writes one record per entry, all sharing a new run ID.
func (s *Store) Append(ctx context.Context, benchmark string, entries []domain.LeaderboardEntry) ([]Record, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return nil, fmt.Errorf("create results directory: %w", err)
	}

	unlock, err := s.acquireLock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return nil, fmt.Errorf("open results file %q: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()

	runID := uuid.NewString()
	now := s.now().UTC()
	records := make([]Record, 0, len(entries))

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)

	for _, e := range entries {
		rec := Record{RunID: runID, Benchmark: benchmark, Timestamp: now, LeaderboardEntry: e}
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("encode result %q: %w", e.EvalName, err)
		}

		records = append(records, rec)
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("write results file %q: %w", s.path, err)
	}

	s.logger.Info().Str("run_id", runID).Str("file", s.path).Int("results", len(records)).Msg("Results exported")

	return records, nil
}

func (s *Store) acquireLock(ctx context.Context) (func(), error) {
	lockPath := s.path + lockSuffix
	l := flock.New(lockPath)
	deadline := time.Now().Add(s.lockTimeout)

	for {
		locked, err := l.TryLock()
		if err != nil {
			return nil, fmt.Errorf("cannot acquire results lock: %w", err)
		}

		if locked {
			return func() { _ = l.Unlock() }, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w (lock: %s)", errLockTimeout, lockPath)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for results lock: %w", ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}
}

// Load reads every record of a results file.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: results file %q: %w", apperrors.ErrFileNotFound, path, err)
	}
	defer func() { _ = f.Close() }()

	var records []Record

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("%w: results file %q line %d: %w", apperrors.ErrBadFormat, path, line, err)
		}

		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: results file %q: %w", apperrors.ErrBadFormat, path, err)
	}

	return records, nil
}

// Latest keeps the most recent record of every evaluation name, in order of first
// appearance. An empty benchmark keeps records of every benchmark.
func Latest(records []Record, benchmark string) []domain.LeaderboardEntry {
	index := make(map[string]int)

	var entries []domain.LeaderboardEntry

	for _, rec := range records {
		if benchmark != "" && rec.Benchmark != benchmark {
			continue
		}

		if i, ok := index[rec.EvalName]; ok {
			entries[i] = rec.LeaderboardEntry
			continue
		}

		index[rec.EvalName] = len(entries)
		entries = append(entries, rec.LeaderboardEntry)
	}

	return entries
}
