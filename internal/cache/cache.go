// Package cache persists analysis results between runs in a sqlite database.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite"

	"github.com/mehmetkoksal-w/extdeps/internal/model"
)

// frontSize bounds the in-memory layer in front of the database.
const frontSize = 2048

// Key identifies one analysis: the file, its content hash and the analyzer
// options fingerprint.
type Key struct {
	Path    string
	Hash    string
	Options string
}

// Analysis is one cached analyzer result.
type Analysis struct {
	// Descriptor is nil when the file defines nothing.
	Descriptor *model.FileDescriptor
	// Warnings are the diagnostics the analyzer reported for the file.
	Warnings []string
}

type entry struct {
	hash       string
	skip       bool
	descriptor []byte
	src        string
	warnings   []string
}

// Store is a sqlite-backed analysis cache.
type Store struct {
	db    *sql.DB
	front *lru.Cache[string, entry]

	mu     sync.Mutex
	hits   int
	misses int
}

// Open opens or creates the cache database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %s: %w", p, err)
		}
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	front, err := lru.New[string, entry](frontSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, front: front}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func frontKey(k Key) string {
	return k.Options + "\x00" + k.Path
}

// Lookup returns the cached analysis for k, or nil on a miss or when the
// stored content hash differs.
func (s *Store) Lookup(k Key) (*Analysis, error) {
	e, ok := s.front.Get(frontKey(k))
	if !ok {
		row := s.db.QueryRow(`SELECT hash, skip, descriptor, src, warnings FROM analyses WHERE path = ? AND options = ?;`, k.Path, k.Options)
		var skip int
		var warnings string
		if err := row.Scan(&e.hash, &skip, &e.descriptor, &e.src, &warnings); err != nil {
			if err == sql.ErrNoRows {
				s.count(false)
				return nil, nil
			}
			return nil, fmt.Errorf("lookup %s: %w", k.Path, err)
		}
		e.skip = skip != 0
		if err := json.Unmarshal([]byte(warnings), &e.warnings); err != nil {
			return nil, fmt.Errorf("decode cached warnings of %s: %w", k.Path, err)
		}
		s.front.Add(frontKey(k), e)
	}
	if e.hash != k.Hash {
		s.count(false)
		return nil, nil
	}
	s.count(true)
	a := &Analysis{Warnings: e.warnings}
	if e.skip {
		return a, nil
	}
	a.Descriptor = &model.FileDescriptor{}
	if err := json.Unmarshal(e.descriptor, a.Descriptor); err != nil {
		return nil, fmt.Errorf("decode cached %s: %w", k.Path, err)
	}
	a.Descriptor.Src = e.src
	return a, nil
}

// Save stores the analysis of k.
func (s *Store) Save(k Key, a Analysis) error {
	d := a.Descriptor
	e := entry{hash: k.Hash, skip: d == nil, warnings: a.Warnings}
	if d != nil {
		data, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("encode %s: %w", k.Path, err)
		}
		e.descriptor = data
		e.src = d.Src
	}
	if e.warnings == nil {
		e.warnings = []string{}
	}
	warnings, err := json.Marshal(e.warnings)
	if err != nil {
		return fmt.Errorf("encode warnings of %s: %w", k.Path, err)
	}
	skip := 0
	if e.skip {
		skip = 1
	}
	_, err = s.db.Exec(`INSERT INTO analyses(path, options, hash, skip, descriptor, src, warnings, analyzed_at) VALUES(?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(path, options) DO UPDATE SET hash = excluded.hash, skip = excluded.skip, descriptor = excluded.descriptor, src = excluded.src, warnings = excluded.warnings, analyzed_at = excluded.analyzed_at;`,
		k.Path, k.Options, k.Hash, skip, string(e.descriptor), e.src, string(warnings), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save %s: %w", k.Path, err)
	}
	s.front.Add(frontKey(k), e)
	return nil
}

// Stats returns the lookup hits and misses since the store was opened.
func (s *Store) Stats() (hits, misses int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.misses
}

func (s *Store) count(hit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hit {
		s.hits++
	} else {
		s.misses++
	}
}

// Fingerprint hashes v's JSON encoding. It identifies the analyzer options a
// cached result was produced with.
func Fingerprint(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", sha256.Sum256(data)), nil
}

// Run records one resolve invocation.
type Run struct {
	ID          string    `json:"id"`
	Root        string    `json:"root"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt,omitempty"`
	Files       int       `json:"files"`
	Hits        int       `json:"hits"`
	Misses      int       `json:"misses"`
	Error       string    `json:"error,omitempty"`
}

// BeginRun inserts a new run for root.
func (s *Store) BeginRun(root string) (*Run, error) {
	r := &Run{ID: uuid.NewString(), Root: root, StartedAt: time.Now().UTC()}
	if _, err := s.db.Exec(`INSERT INTO runs(id, root, started_at) VALUES(?, ?, ?);`, r.ID, r.Root, r.StartedAt.Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return r, nil
}

// EndRun completes r with the number of ordered files and the run's error, if any.
func (s *Store) EndRun(r *Run, files int, runErr error) error {
	r.CompletedAt = time.Now().UTC()
	r.Files = files
	r.Hits, r.Misses = s.Stats()
	if runErr != nil {
		r.Error = runErr.Error()
	}
	_, err := s.db.Exec(`UPDATE runs SET completed_at = ?, files = ?, hits = ?, misses = ?, error = ? WHERE id = ?;`,
		r.CompletedAt.Format(time.RFC3339), r.Files, r.Hits, r.Misses, r.Error, r.ID)
	if err != nil {
		return fmt.Errorf("update run %s: %w", r.ID, err)
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`SELECT id, root, started_at, COALESCE(completed_at, ''), files, hits, misses, error FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, completed string
		if err := rows.Scan(&r.ID, &r.Root, &started, &completed, &r.Files, &r.Hits, &r.Misses, &r.Error); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		if completed != "" {
			r.CompletedAt, _ = time.Parse(time.RFC3339, completed)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
