package event

// SessionEntered fires after a session has authenticated and its privilege
// table is loaded into world state.
type SessionEntered struct {
	SessionID uint64
	Account   string
}

// SessionExited fires when an authenticated session disconnects, before its
// world state is discarded.
type SessionExited struct {
	SessionID uint64
	Account   string
}

// PrivilegesChanged fires once per settled write burst on a tracked
// session's privilege table.
type PrivilegesChanged struct {
	SessionID uint64
	Account   string
	Active    []string
	Added     []string
	Removed   []string
}
