package net

import (
	"bufio"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"
)

func pipeSession(t *testing.T, linesPerSec int) (*Session, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	sess := NewSession(server, 1, 16, 16, linesPerSec, 0, 0, zap.NewNop())
	t.Cleanup(func() {
		sess.Close()
		client.Close()
	})
	return sess, client
}

func TestSessionGreetingAndLineRead(t *testing.T) {
	sess, client := pipeSession(t, 0)
	sess.Start()

	r := bufio.NewReader(client)
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if line != "PRIVWATCH 1\r\n" {
		t.Fatalf("greeting = %q", line)
	}

	if _, err := client.Write([]byte("LIST\n")); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-sess.InQueue:
		if got != "LIST" {
			t.Fatalf("line = %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("line never reached InQueue")
	}
}

func TestSessionInQueueClosesOnDisconnect(t *testing.T) {
	sess, client := pipeSession(t, 0)
	dead := make(chan struct{})
	sess.onDead = func() { close(dead) }
	sess.Start()

	// Drain the greeting so the writer is not blocked on the pipe.
	r := bufio.NewReader(client)
	if _, err := r.ReadString('\n'); err != nil {
		t.Fatal(err)
	}

	client.Close()

	select {
	case _, ok := <-sess.InQueue:
		if ok {
			t.Fatal("unexpected line before close")
		}
	case <-time.After(time.Second):
		t.Fatal("InQueue never closed")
	}
	select {
	case <-dead:
	case <-time.After(time.Second):
		t.Fatal("onDead never invoked")
	}
	if !sess.Closed() {
		t.Fatal("session not marked closed")
	}
}

func TestSessionStateTransitions(t *testing.T) {
	sess, _ := pipeSession(t, 0)
	if sess.State() != StateAuth {
		t.Fatalf("initial state = %d", sess.State())
	}
	sess.SetState(StateReady)
	if sess.State() != StateReady {
		t.Fatalf("state = %d", sess.State())
	}
	sess.Close()
	if sess.State() != StateDisconnecting {
		t.Fatalf("state after close = %d", sess.State())
	}
}

func TestSessionSendAfterCloseIsDropped(t *testing.T) {
	sess, _ := pipeSession(t, 0)
	sess.Close()
	sess.Send("hello")
	select {
	case line := <-sess.OutQueue:
		t.Fatalf("queued %q after close", line)
	default:
	}
}
