package registry

// Store is the table behind the Registry. Implementations are not required to
// be safe for concurrent use; the Registry serialises all access.
type Store interface {
	Get(name string) (*StreamRecord, bool)
	Put(rec *StreamRecord)
	Names() []string
	Len() int
}

// InMemoryStore is a map-backed Store. Records are never removed.
type InMemoryStore struct {
	records map[string]*StreamRecord
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]*StreamRecord),
	}
}

// Get implements Store.Get.
func (s *InMemoryStore) Get(name string) (*StreamRecord, bool) {
	rec, ok := s.records[name]
	return rec, ok
}

// Put implements Store.Put.
func (s *InMemoryStore) Put(rec *StreamRecord) {
	s.records[rec.Name] = rec
}

// Names implements Store.Names.
func (s *InMemoryStore) Names() []string {
	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	return names
}

// Len implements Store.Len.
func (s *InMemoryStore) Len() int {
	return len(s.records)
}
