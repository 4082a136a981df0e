package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// CSVBackend is the default durable backend: one CSV row per point in a
// single text file. Appends open the file in append mode, write, flush,
// and fsync before closing, so rows are on disk once Append returns; a
// crash during the write itself can still leave a partial last row.
// Rewrite stages the replacement file under a
// uniquely named sibling and renames it over the original, which is atomic
// on the same filesystem. The row count is tracked in memory rather than
// recounted on every append, so Append/AppendMany never re-read the file.
type CSVBackend struct {
	mu     sync.Mutex
	path   string
	closed bool
	count  int
}

// NewCSVBackend opens (creating if absent) the CSV file at path.
func NewCSVBackend(path string) (*CSVBackend, error) {
	if err := ensureFileExists(path); err != nil {
		return nil, wrapIOError("failed to create csv backend file", err)
	}
	b := &CSVBackend{path: path}
	rows, err := b.readAllLocked()
	if err != nil {
		return nil, err
	}
	b.count = len(rows)
	return b, nil
}

func ensureFileExists(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

func (b *CSVBackend) Append(row RawRow) (int, error) {
	ids, err := b.AppendMany([]RawRow{row})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

func (b *CSVBackend) AppendMany(rows []RawRow) ([]int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, closedError("append on closed csv backend")
	}

	startID := b.count

	f, err := os.OpenFile(b.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, wrapIOError("failed to open csv backend for append", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.UseCRLF = false
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, wrapIOError("failed to write csv row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, wrapIOError("failed to flush csv writer", err)
	}
	if err := f.Sync(); err != nil {
		return nil, wrapIOError("failed to fsync csv backend", err)
	}

	ids := make([]int, len(rows))
	for i := range rows {
		ids[i] = startID + i
	}
	b.count += len(rows)
	return ids, nil
}

func (b *CSVBackend) ReadAll() ([]StoredRow, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, closedError("read on closed csv backend")
	}
	return b.readAllLocked()
}

func (b *CSVBackend) readAllLocked() ([]StoredRow, error) {
	f, err := os.Open(b.path)
	if err != nil {
		return nil, wrapIOError("failed to open csv backend for read", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, wrapIOError("failed to parse csv backend", err)
	}

	out := make([]StoredRow, len(records))
	for i, rec := range records {
		out[i] = StoredRow{ID: i, Raw: RawRow(rec)}
	}
	return out, nil
}

func (b *CSVBackend) Rewrite(rows []RawRow) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return closedError("rewrite on closed csv backend")
	}

	stagingPath := filepath.Join(filepath.Dir(b.path), ".tinyflux-rewrite-"+uuid.NewString()+".csv")

	f, err := os.OpenFile(stagingPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return swapFailedError("failed to create staging file", err)
	}

	w := csv.NewWriter(f)
	w.UseCRLF = false
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			f.Close()
			os.Remove(stagingPath)
			return swapFailedError("failed to write staged rows", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(stagingPath)
		return swapFailedError("failed to flush staged rows", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(stagingPath)
		return swapFailedError("failed to fsync staging file", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(stagingPath)
		return swapFailedError("failed to close staging file", err)
	}

	if err := os.Rename(stagingPath, b.path); err != nil {
		os.Remove(stagingPath)
		return swapFailedError("failed to swap staging file into place", err)
	}

	b.count = len(rows)
	return nil
}

func (b *CSVBackend) Len() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, closedError("length on closed csv backend")
	}
	return b.count, nil
}

func (b *CSVBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
