package net

import (
	"bufio"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// SessionState gates which commands a session may issue.
type SessionState int32

const (
	StateAuth          SessionState = iota // connected, not yet authenticated
	StateReady                             // authenticated
	StateDisconnecting                     // close in progress
)

// greeting is the first line sent to every new connection.
const greeting = "PRIVWATCH 1"

// Session represents a single client connection speaking the line protocol.
// Network I/O runs in dedicated goroutines; command dispatch happens on the
// session's serve goroutine reading from InQueue.
type Session struct {
	ID   uint64
	conn net.Conn

	state atomic.Int32 // SessionState stored as int32

	InQueue  chan string // serve goroutine reads command lines from here
	OutQueue chan string // writer goroutine reads reply lines from here

	IP          string
	AccountName string

	readTimeout  time.Duration
	writeTimeout time.Duration

	closeCh   chan struct{}
	closeOnce atomic.Bool
	closed    atomic.Bool
	onDead    func() // invoked once when the read loop ends

	// Per-second line rate limiter (readLoop goroutine only, no lock needed)
	linesPerSec int   // max lines/sec (0 = unlimited)
	lineCount   int   // lines received this second
	lineResetAt int64 // unix second of last counter reset

	log *zap.Logger
}

func NewSession(conn net.Conn, id uint64, inSize, outSize, linesPerSec int, readTimeout, writeTimeout time.Duration, log *zap.Logger) *Session {
	s := &Session{
		ID:           id,
		conn:         conn,
		InQueue:      make(chan string, inSize),
		OutQueue:     make(chan string, outSize),
		IP:           conn.RemoteAddr().String(),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		closeCh:      make(chan struct{}),
		linesPerSec:  linesPerSec,
		log:          log.With(zap.Uint64("session", id)),
	}
	s.state.Store(int32(StateAuth))
	return s
}

func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) SetState(st SessionState) {
	s.state.Store(int32(st))
}

// Start sends the greeting and launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
	s.Send(greeting)
}

// Send queues a reply line for the writer goroutine. Non-blocking: if
// OutQueue is full the session is disconnected (backpressure).
func (s *Session) Send(line string) {
	if s.closed.Load() {
		return
	}
	select {
	case s.OutQueue <- line:
	default:
		s.log.Warn("輸出佇列已滿，斷開慢速連線")
		s.Close()
	}
}

// Close gracefully shuts down the session.
func (s *Session) Close() {
	if !s.closeOnce.CompareAndSwap(false, true) {
		return
	}
	s.closed.Store(true)
	s.SetState(StateDisconnecting)
	close(s.closeCh)
	s.conn.Close()
}

// Closed reports whether the session has been shut down.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// readLoop reads command lines into InQueue until the connection dies.
func (s *Session) readLoop() {
	defer func() {
		s.Close()
		close(s.InQueue)
		if s.onDead != nil {
			s.onDead()
		}
	}()

	scanner := bufio.NewScanner(s.conn)
	scanner.Buffer(make([]byte, 0, 512), 4096)
	for {
		if s.readTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		if !s.allowLine() {
			s.log.Warn("指令頻率超限，斷開連線", zap.String("ip", s.IP))
			return
		}
		select {
		case s.InQueue <- line:
		case <-s.closeCh:
			return
		}
	}
}

// allowLine enforces the per-second line budget.
func (s *Session) allowLine() bool {
	if s.linesPerSec <= 0 {
		return true
	}
	now := time.Now().Unix()
	if now != s.lineResetAt {
		s.lineResetAt = now
		s.lineCount = 0
	}
	s.lineCount++
	return s.lineCount <= s.linesPerSec
}

// writeLoop drains OutQueue to the connection.
func (s *Session) writeLoop() {
	for {
		select {
		case line := <-s.OutQueue:
			if s.writeTimeout > 0 {
				s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			}
			if _, err := s.conn.Write([]byte(line + "\r\n")); err != nil {
				s.Close()
				return
			}
		case <-s.closeCh:
			return
		}
	}
}
