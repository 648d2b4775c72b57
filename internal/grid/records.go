package grid

import "datagrid/internal/domain"

// RecordStore is the ordered sequence of rows. It is immutable: every
// operation that changes the order returns a new store.
type RecordStore struct {
	rows  []domain.Record
	index map[string]int
}

// NewRecordStore validates that every record has a unique, non-empty key.
func NewRecordStore(records []domain.Record) (*RecordStore, error) {
	s := &RecordStore{
		rows:  make([]domain.Record, len(records)),
		index: make(map[string]int, len(records)),
	}
	for i, rec := range records {
		if rec.Key == "" {
			return nil, &domain.KeyError{Err: domain.ErrEmptyKey}
		}
		if _, dup := s.index[rec.Key]; dup {
			return nil, &domain.KeyError{Key: rec.Key, Err: domain.ErrDuplicateKey}
		}
		s.index[rec.Key] = i
		s.rows[i] = rec
	}
	return s, nil
}

// Len returns the number of rows.
func (s *RecordStore) Len() int { return len(s.rows) }

// Records returns the rows in their current order.
func (s *RecordStore) Records() []domain.Record {
	out := make([]domain.Record, len(s.rows))
	copy(out, s.rows)
	return out
}

// Keys returns the row keys in their current order.
func (s *RecordStore) Keys() []string {
	keys := make([]string, len(s.rows))
	for i, rec := range s.rows {
		keys[i] = rec.Key
	}
	return keys
}

// IndexOf returns the position of the row with the given key.
func (s *RecordStore) IndexOf(key string) (int, bool) {
	i, ok := s.index[key]
	return i, ok
}

// Get returns the row with the given key.
func (s *RecordStore) Get(key string) (domain.Record, bool) {
	i, ok := s.index[key]
	if !ok {
		return domain.Record{}, false
	}
	return s.rows[i], true
}

// ReorderRows moves the row at oldIndex to newIndex.
// When the indexes are equal the receiver itself is returned.
func (s *RecordStore) ReorderRows(oldIndex, newIndex int) (*RecordStore, error) {
	rows, err := Move(s.rows, oldIndex, newIndex)
	if err != nil {
		return nil, err
	}
	if oldIndex == newIndex {
		return s, nil
	}

	next := &RecordStore{rows: rows, index: make(map[string]int, len(rows))}
	for i, rec := range rows {
		next.index[rec.Key] = i
	}
	return next, nil
}
