package storage

import "sync"

// MemoryBackend is an in-process, non-durable backend: an ordered slice of
// raw rows. Rewrite stages the replacement slice and swaps it in only after
// it is fully built, so a panic mid-rewrite never corrupts the live slice.
type MemoryBackend struct {
	mu     sync.Mutex
	rows   []RawRow
	closed bool
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) Append(row RawRow) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, closedError("append on closed memory backend")
	}
	b.rows = append(b.rows, row)
	return len(b.rows) - 1, nil
}

func (b *MemoryBackend) AppendMany(rows []RawRow) ([]int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, closedError("append on closed memory backend")
	}
	ids := make([]int, len(rows))
	for i, row := range rows {
		b.rows = append(b.rows, row)
		ids[i] = len(b.rows) - 1
	}
	return ids, nil
}

func (b *MemoryBackend) ReadAll() ([]StoredRow, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, closedError("read on closed memory backend")
	}
	out := make([]StoredRow, len(b.rows))
	for i, row := range b.rows {
		out[i] = StoredRow{ID: i, Raw: row}
	}
	return out, nil
}

func (b *MemoryBackend) Rewrite(rows []RawRow) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return closedError("rewrite on closed memory backend")
	}
	staged := make([]RawRow, len(rows))
	copy(staged, rows)
	b.rows = staged
	return nil
}

func (b *MemoryBackend) Len() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, closedError("length on closed memory backend")
	}
	return len(b.rows), nil
}

func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.rows = nil
	return nil
}
