package privilege

import (
	"sort"
	"sync"
)

// MapTable is the standard Table implementation: a mutex-guarded map from
// privilege name to record.
type MapTable struct {
	mu   sync.RWMutex
	recs map[string]Record
}

func NewMapTable() *MapTable {
	return &MapTable{recs: make(map[string]Record, 16)}
}

func (t *MapTable) Put(rec Record) {
	t.mu.Lock()
	t.recs[rec.Name] = rec
	t.mu.Unlock()
}

func (t *MapTable) Get(name string) (Record, bool) {
	t.mu.RLock()
	rec, ok := t.recs[name]
	t.mu.RUnlock()
	return rec, ok
}

func (t *MapTable) Remove(name string) {
	t.mu.Lock()
	delete(t.recs, name)
	t.mu.Unlock()
}

func (t *MapTable) Active() []string {
	t.mu.RLock()
	names := make([]string, 0, len(t.recs))
	for name, rec := range t.recs {
		if rec.Active {
			names = append(names, name)
		}
	}
	t.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (t *MapTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.recs)
}

func (t *MapTable) Each(fn func(Record)) {
	t.mu.RLock()
	recs := make([]Record, 0, len(t.recs))
	for _, rec := range t.recs {
		recs = append(recs, rec)
	}
	t.mu.RUnlock()
	for _, rec := range recs {
		fn(rec)
	}
}
