// Package csvstore persists every table as one CSV file inside a per-date
// snapshot directory. The first access of a new day copies the most recent
// snapshot forward, so each directory is a complete picture of the business
// at end of that day. All mutations are serialized behind a single store
// mutex; the whole-file rewrite is the only mutation primitive, so two
// concurrent read-modify-write cycles must never interleave.
package csvstore

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"tbmpos/backend/internal/domain"
	"tbmpos/backend/internal/store"
)

const dateLayout = "2006-01-02"

type Store struct {
	mu      sync.Mutex
	dataDir string
	confDir string

	// now is swappable so tests can drive day rotation.
	now func() time.Time
}

func New(dataDir, confDir string) (*Store, error) {
	if dataDir == "" || confDir == "" {
		return nil, fmt.Errorf("csvstore: data and conf directories are required")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("csvstore: create data dir: %w", err)
	}
	if err := os.MkdirAll(confDir, 0o755); err != nil {
		return nil, fmt.Errorf("csvstore: create conf dir: %w", err)
	}

	s := &Store{
		dataDir: dataDir,
		confDir: confDir,
		now:     time.Now,
	}

	// Fail fast if the data root is unusable; everything depends on it.
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.activeDirLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ResolveSnapshot(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.activeDirLocked(); err != nil {
		return "", err
	}
	return s.today(), nil
}

func (s *Store) today() string {
	return s.now().Format(dateLayout)
}

// activeDirLocked resolves today's snapshot directory, creating it on the
// first access of a new day. When a prior snapshot exists its contents are
// copied wholesale; otherwise the tables start header-only. Idempotent:
// calling it again on the same day only backfills missing table files.
func (s *Store) activeDirLocked() (string, error) {
	today := s.today()
	dir := filepath.Join(s.dataDir, today)

	if _, err := os.Stat(dir); err == nil {
		if err := initTables(dir); err != nil {
			return "", err
		}
		return dir, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("csvstore: stat snapshot %s: %w", today, err)
	}

	latest, err := s.latestSnapshotLocked()
	if err != nil {
		return "", err
	}
	if latest != "" && filepath.Base(latest) != today {
		if err := copyDir(latest, dir); err != nil {
			return "", fmt.Errorf("csvstore: carry forward %s: %w", filepath.Base(latest), err)
		}
	}
	if err := initTables(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// latestSnapshotLocked returns the most recently dated snapshot directory
// (ISO date names sort chronologically), or "" when none exist.
func (s *Store) latestSnapshotLocked() (string, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("csvstore: read data dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)
	return filepath.Join(s.dataDir, names[len(names)-1]), nil
}

// initTables creates any missing table file with its header row.
func initTables(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("csvstore: create snapshot dir: %w", err)
	}
	for table, headers := range domain.TableHeaders {
		path := filepath.Join(dir, table+".csv")
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("csvstore: stat %s: %w", table, err)
		}
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write(headers); err != nil {
			return err
		}
		w.Flush()
		if err := writeFileAtomic(path, buf.Bytes()); err != nil {
			return fmt.Errorf("csvstore: init %s: %w", table, err)
		}
	}
	return nil
}

func copyDir(src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(src, e.Name()))
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dst, e.Name()), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// readRowsLocked parses one table from the active snapshot. Rows are keyed by
// the file's own header so older files with reordered or extra columns still
// read correctly; missing schema columns come back as empty strings.
func (s *Store) readRowsLocked(table string) ([]domain.Row, error) {
	headers, ok := domain.TableHeaders[table]
	if !ok {
		return nil, fmt.Errorf("%w: unknown table %q", store.ErrInvalidInput, table)
	}

	dir, err := s.activeDirLocked()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(dir, table+".csv"))
	if err != nil {
		return nil, fmt.Errorf("csvstore: open %s: %w", table, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	fileHeader, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csvstore: read %s header: %w", table, err)
	}

	var rows []domain.Row
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvstore: read %s: %w", table, err)
		}
		row := make(domain.Row, len(headers))
		for i, col := range fileHeader {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		for _, col := range headers {
			if _, ok := row[col]; !ok {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// writeRowsLocked rewrites one table in full: header plus every row in the
// order given, every schema column emitted, unknown keys dropped.
func (s *Store) writeRowsLocked(table string, rows []domain.Row) error {
	headers, ok := domain.TableHeaders[table]
	if !ok {
		return fmt.Errorf("%w: unknown table %q", store.ErrInvalidInput, table)
	}

	dir, err := s.activeDirLocked()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(headers); err != nil {
		return err
	}
	record := make([]string, len(headers))
	for _, row := range rows {
		for i, col := range headers {
			record[i] = row[col]
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	if err := writeFileAtomic(filepath.Join(dir, table+".csv"), buf.Bytes()); err != nil {
		return fmt.Errorf("csvstore: write %s: %w", table, err)
	}
	return nil
}

func (s *Store) ReadTable(_ context.Context, table string) ([]domain.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readRowsLocked(table)
}

func (s *Store) WriteTable(_ context.Context, table string, rows []domain.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeRowsLocked(table, rows)
}

func (s *Store) AppendRow(_ context.Context, table string, row domain.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.readRowsLocked(table)
	if err != nil {
		return err
	}
	return s.writeRowsLocked(table, append(rows, row))
}

// ExportTable returns the active snapshot's file for a table verbatim.
func (s *Store) ExportTable(_ context.Context, table string) ([]byte, error) {
	if _, ok := domain.TableHeaders[table]; !ok {
		return nil, fmt.Errorf("%w: unknown table %q", store.ErrInvalidInput, table)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	dir, err := s.activeDirLocked()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, table+".csv"))
	if err != nil {
		return nil, fmt.Errorf("csvstore: export %s: %w", table, err)
	}
	return data, nil
}

// ImportTable replaces today's file for a table with the uploaded bytes after
// verifying the header matches the table schema exactly.
func (s *Store) ImportTable(_ context.Context, table string, data []byte) error {
	headers, ok := domain.TableHeaders[table]
	if !ok {
		return fmt.Errorf("%w: unknown table %q", store.ErrInvalidInput, table)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	fileHeader, err := r.Read()
	if err != nil {
		return fmt.Errorf("%w: cannot read CSV header", store.ErrInvalidInput)
	}
	if len(fileHeader) != len(headers) {
		return fmt.Errorf("%w: CSV headers must be %v", store.ErrInvalidInput, headers)
	}
	for i, col := range headers {
		if trimmed := fileHeader[i]; trimmed != col {
			return fmt.Errorf("%w: CSV headers must be %v", store.ErrInvalidInput, headers)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	dir, err := s.activeDirLocked()
	if err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(dir, table+".csv"), data); err != nil {
		return fmt.Errorf("csvstore: import %s: %w", table, err)
	}
	return nil
}

// ArchiveForFullInvent moves the entire data root aside so the operator can
// re-enter inventory from scratch. Runs at most once; a marker file in the
// fresh data root records that the migration already happened.
func (s *Store) ArchiveForFullInvent(backupRoot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	marker := filepath.Join(s.dataDir, ".full_invent_migrated")
	if _, err := os.Stat(marker); err == nil {
		return nil
	}

	entries, err := os.ReadDir(s.dataDir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("csvstore: read data dir: %w", err)
	}
	if len(entries) > 0 {
		if err := os.MkdirAll(backupRoot, 0o755); err != nil {
			return fmt.Errorf("csvstore: create backup root: %w", err)
		}
		dest := filepath.Join(backupRoot, "before_full_invent_"+s.now().Format("20060102_150405"))
		if err := os.Rename(s.dataDir, dest); err != nil {
			return fmt.Errorf("csvstore: archive data dir: %w", err)
		}
	}

	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("csvstore: recreate data dir: %w", err)
	}
	if err := os.WriteFile(marker, []byte("1"), 0o644); err != nil {
		return fmt.Errorf("csvstore: write migration marker: %w", err)
	}
	return nil
}

var _ store.Repository = (*Store)(nil)
