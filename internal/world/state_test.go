package world

import (
	"errors"
	"reflect"
	"testing"

	"github.com/l1jgo/privwatch/internal/privilege"
)

func addSession(t *testing.T, s *State, id uint64, account string) *SessionInfo {
	t.Helper()
	info := &SessionInfo{
		SessionID: id,
		Account:   account,
		Privs:     privilege.NewMapTable(),
	}
	if !s.Add(info) {
		t.Fatalf("add session %d failed", id)
	}
	return info
}

func TestStateAddRemoveLookup(t *testing.T) {
	s := NewState()
	addSession(t, s, 1, "gm")

	if s.Add(&SessionInfo{SessionID: 1, Account: "dup"}) {
		t.Fatal("duplicate session ID accepted")
	}
	if got := s.FindByAccount("gm"); got == nil || got.SessionID != 1 {
		t.Fatalf("find by account = %+v", got)
	}
	if s.FindByAccount("nobody") != nil {
		t.Fatal("unknown account resolved")
	}

	removed := s.Remove(1)
	if removed == nil || removed.Account != "gm" {
		t.Fatalf("remove = %+v", removed)
	}
	if s.Get(1) != nil || s.Count() != 0 {
		t.Fatal("session survived removal")
	}
	if s.Remove(1) != nil {
		t.Fatal("second remove returned info")
	}
}

func TestStateGrantTableSwap(t *testing.T) {
	s := NewState()
	info := addSession(t, s, 1, "gm")
	orig := info.Privs

	got, err := s.GrantTable(1)
	if err != nil || got != orig {
		t.Fatalf("grant table = %v, %v", got, err)
	}

	replacement := privilege.NewMapTable()
	if err := s.SetGrantTable(1, replacement); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GrantTable(1)
	if got != privilege.Table(replacement) {
		t.Fatal("table reference not swapped")
	}
}

func TestStateLocatorErrors(t *testing.T) {
	s := NewState()
	if _, err := s.GrantTable(9); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v", err)
	}
	if err := s.SetGrantTable(9, privilege.NewMapTable()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestStatePutRecordAndActiveOf(t *testing.T) {
	s := NewState()
	addSession(t, s, 1, "gm")

	if !s.PutRecord(1, privilege.Record{Name: "chat.global", Active: true}) {
		t.Fatal("put on known session failed")
	}
	if s.PutRecord(2, privilege.Record{Name: "x", Active: true}) {
		t.Fatal("put on unknown session succeeded")
	}
	if got := s.ActiveOf(1); !reflect.DeepEqual(got, []string{"chat.global"}) {
		t.Fatalf("active = %v", got)
	}
	if s.ActiveOf(2) != nil {
		t.Fatal("active set for unknown session")
	}
}

func TestStateWatchers(t *testing.T) {
	s := NewState()
	addSession(t, s, 1, "a")
	addSession(t, s, 2, "b")

	s.SetWatching(1, true)
	watchers := s.Watchers()
	if len(watchers) != 1 || watchers[0].SessionID != 1 {
		t.Fatalf("watchers = %+v", watchers)
	}

	s.SetWatching(1, false)
	if len(s.Watchers()) != 0 {
		t.Fatal("watcher flag not cleared")
	}
}
