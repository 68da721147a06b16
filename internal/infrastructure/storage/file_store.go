package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"

	"TourScanner/internal/domain"
	"TourScanner/internal/ports"
)

// pathLocks serialises read-check-write sequences on the same document across
// every FileStore in the process.
var pathLocks sync.Map

func lockFor(path string) *sync.Mutex {
	mu, _ := pathLocks.LoadOrStore(path, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

type document struct {
	Records []domain.Record `json:"records"`
}

// FileStore keeps accepted records in a single JSON document.
type FileStore struct {
	path    string
	mu      *sync.Mutex
	replace func(oldpath, newpath string) error
}

var _ ports.DedupStore = (*FileStore)(nil)

// NewFileStore binds the store to path; the document is created on first use.
func NewFileStore(path string) (*FileStore, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, eris.Wrapf(err, "file store: resolve %s", path)
	}
	return &FileStore{path: abs, mu: lockFor(abs), replace: os.Rename}, nil
}

// Path returns the absolute document location.
func (s *FileStore) Path() string {
	return s.path
}

// Contains reports whether an equal record is already stored.
func (s *FileStore) Contains(_ context.Context, record domain.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return false, err
	}
	return indexOf(doc.Records, record) >= 0, nil
}

// InsertIfAbsent appends record and rewrites the document when it is new.
func (s *FileStore) InsertIfAbsent(ctx context.Context, record domain.Record) (bool, error) {
	results, err := s.BulkInsertIfAbsent(ctx, []domain.Record{record})
	if err != nil {
		return false, err
	}
	return results[0], nil
}

// BulkInsertIfAbsent checks every record under one lock and writes once.
// The batch is all-or-nothing: on a write failure nothing from it is
// persisted and the returned slice is empty.
func (s *FileStore) BulkInsertIfAbsent(_ context.Context, records []domain.Record) ([]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return nil, err
	}

	results := make([]bool, len(records))
	changed := false
	for i, record := range records {
		if indexOf(doc.Records, record) >= 0 {
			continue
		}
		doc.Records = append(doc.Records, record)
		results[i] = true
		changed = true
	}

	if !changed {
		return results, nil
	}
	if err := s.writeLocked(doc); err != nil {
		return []bool{}, err
	}
	return results, nil
}

// Load returns all stored records in insertion order.
func (s *FileStore) Load(_ context.Context) ([]domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	return doc.Records, nil
}

// Close is a no-op; the document is rewritten on every change.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) readLocked() (document, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		doc := document{Records: []domain.Record{}}
		if err := s.writeLocked(doc); err != nil {
			return document{}, err
		}
		return doc, nil
	}
	if err != nil {
		return document{}, &domain.StoreError{Op: "read", Err: eris.Wrapf(err, "file store: read %s", s.path)}
	}

	doc := document{Records: []domain.Record{}}
	if len(bytes.TrimSpace(raw)) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return document{}, &domain.StoreError{Op: "decode", Err: eris.Wrapf(err, "file store: decode %s", s.path)}
	}
	if doc.Records == nil {
		doc.Records = []domain.Record{}
	}
	return doc, nil
}

// writeLocked replaces the document through a temp file and rename.
func (s *FileStore) writeLocked(doc document) error {
	payload, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return &domain.StoreError{Op: "encode", Err: eris.Wrap(err, "file store: encode document")}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &domain.StoreError{Op: "write", Err: eris.Wrapf(err, "file store: create dir %s", dir)}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return &domain.StoreError{Op: "write", Err: eris.Wrapf(err, "file store: create temp in %s", dir)}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return &domain.StoreError{Op: "write", Err: eris.Wrapf(err, "file store: write %s", tmpName)}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &domain.StoreError{Op: "write", Err: eris.Wrapf(err, "file store: sync %s", tmpName)}
	}
	if err := tmp.Close(); err != nil {
		return &domain.StoreError{Op: "write", Err: eris.Wrapf(err, "file store: close %s", tmpName)}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return &domain.StoreError{Op: "write", Err: eris.Wrapf(err, "file store: chmod %s", tmpName)}
	}
	if err := s.replace(tmpName, s.path); err != nil {
		return &domain.StoreError{Op: "write", Err: eris.Wrapf(err, "file store: replace %s", s.path)}
	}
	return nil
}

func indexOf(records []domain.Record, record domain.Record) int {
	for i, r := range records {
		if r == record {
			return i
		}
	}
	return -1
}
