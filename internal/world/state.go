package world

import (
	"errors"
	"sync"

	"github.com/l1jgo/privwatch/internal/net"
	"github.com/l1jgo/privwatch/internal/privilege"
)

// ErrSessionNotFound is returned by the grant-table locator when a session
// is not (or no longer) in world state.
var ErrSessionNotFound = errors.New("session not in world state")

// SessionInfo holds in-memory data for one authenticated session. The Privs
// reference is swappable: the watcher replaces it with a tap while the
// session is tracked and restores the original on exit.
type SessionInfo struct {
	SessionID   uint64
	Session     *net.Session
	Account     string
	AccessLevel int16
	Watching    bool // receives settled delta lines via the WATCH command
	Privs       privilege.Table
}

// State is the registry of authenticated sessions. Unlike a tick-driven
// game world, sessions are added, removed and mutated from uncoordinated
// goroutines, so every access goes through the mutex.
type State struct {
	mu       sync.RWMutex
	sessions map[uint64]*SessionInfo
}

func NewState() *State {
	return &State{sessions: make(map[uint64]*SessionInfo, 64)}
}

// Add registers an authenticated session. Returns false when the ID is
// already present.
func (s *State) Add(info *SessionInfo) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[info.SessionID]; ok {
		return false
	}
	s.sessions[info.SessionID] = info
	return true
}

// Remove drops a session from the registry and returns its info, or nil if
// it was not registered.
func (s *State) Remove(sessionID uint64) *SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return info
}

// Get returns the session info for an ID, or nil.
func (s *State) Get(sessionID uint64) *SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[sessionID]
}

// FindByAccount returns the session logged in under the given account name,
// or nil.
func (s *State) FindByAccount(account string) *SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, info := range s.sessions {
		if info.Account == account {
			return info
		}
	}
	return nil
}

// All calls fn for every registered session.
func (s *State) All(fn func(*SessionInfo)) {
	s.mu.RLock()
	infos := make([]*SessionInfo, 0, len(s.sessions))
	for _, info := range s.sessions {
		infos = append(infos, info)
	}
	s.mu.RUnlock()
	for _, info := range infos {
		fn(info)
	}
}

// Count returns the number of registered sessions.
func (s *State) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Watchers returns the sessions that enabled WATCH streaming.
func (s *State) Watchers() []*SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*SessionInfo
	for _, info := range s.sessions {
		if info.Watching {
			out = append(out, info)
		}
	}
	return out
}

// SetWatching toggles the WATCH flag for a session.
func (s *State) SetWatching(sessionID uint64, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info, ok := s.sessions[sessionID]; ok {
		info.Watching = on
	}
}

// PutRecord writes one record into a session's live table. The write lands
// on whatever reference the session currently holds — the watcher's tap
// while tracked. Returns false when the session is unknown. The table write
// itself happens outside the registry lock.
func (s *State) PutRecord(sessionID uint64, rec privilege.Record) bool {
	s.mu.RLock()
	var tbl privilege.Table
	if info, ok := s.sessions[sessionID]; ok {
		tbl = info.Privs
	}
	s.mu.RUnlock()
	if tbl == nil {
		return false
	}
	tbl.Put(rec)
	return true
}

// ActiveOf returns the session's current effective privilege set, or nil
// for an unknown session.
func (s *State) ActiveOf(sessionID uint64) []string {
	s.mu.RLock()
	var tbl privilege.Table
	if info, ok := s.sessions[sessionID]; ok {
		tbl = info.Privs
	}
	s.mu.RUnlock()
	if tbl == nil {
		return nil
	}
	return tbl.Active()
}

// GrantTable resolves a session's live privilege table. Part of the
// watch.Locator contract.
func (s *State) GrantTable(sessionID uint64) (privilege.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.sessions[sessionID]
	if !ok || info.Privs == nil {
		return nil, ErrSessionNotFound
	}
	return info.Privs, nil
}

// SetGrantTable swaps a session's privilege table reference in place. Part
// of the watch.Locator contract; used to install the tap and to restore the
// original table.
func (s *State) SetGrantTable(sessionID uint64, t privilege.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	info.Privs = t
	return nil
}
