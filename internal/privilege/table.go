package privilege

// Record is one named grant. Only records with Active=true count toward a
// session's effective privilege set; an inactive record is a revocation
// marker left in place by whoever wrote it.
type Record struct {
	Name   string
	Active bool
	Source string // who wrote this record: "db", "admin:<account>", "lua", ...
}

// Table is the live mutable privilege store of one session. Callers are
// uncoordinated (command handlers, Lua scripts, DB loaders), so every
// implementation must be safe for concurrent use.
type Table interface {
	// Put inserts or updates a record.
	Put(rec Record)
	// Get returns the record for a name.
	Get(name string) (Record, bool)
	// Remove deletes a record entirely.
	Remove(name string)
	// Active returns the sorted names of all records with Active=true.
	Active() []string
	// Len returns the total record count, active or not.
	Len() int
	// Each calls fn for every record. fn must not mutate the table.
	Each(fn func(Record))
}
