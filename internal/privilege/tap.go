package privilege

// Tap wraps a Table and reports writes. Every operation forwards to the
// wrapped table unchanged — callers holding a Tap cannot tell it apart from
// the table it wraps. Put additionally invokes onWrite exactly once, after
// the write has landed. Reads and removes pass through silently (revocation
// happens via Put of an inactive record, so removes carry no signal).
//
// Tap is as concurrency-safe as the table it wraps; onWrite must tolerate
// concurrent invocation and must not block.
type Tap struct {
	inner   Table
	onWrite func()
}

func NewTap(inner Table, onWrite func()) *Tap {
	return &Tap{inner: inner, onWrite: onWrite}
}

// Unwrap returns the wrapped table.
func (t *Tap) Unwrap() Table { return t.inner }

func (t *Tap) Put(rec Record) {
	t.inner.Put(rec)
	t.onWrite()
}

func (t *Tap) Get(name string) (Record, bool) { return t.inner.Get(name) }
func (t *Tap) Remove(name string)             { t.inner.Remove(name) }
func (t *Tap) Active() []string               { return t.inner.Active() }
func (t *Tap) Len() int                       { return t.inner.Len() }
func (t *Tap) Each(fn func(Record))           { t.inner.Each(fn) }
