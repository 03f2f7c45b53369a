package net

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	outQueueSize = 256
	idleTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
)

// Session represents a single client connection, gate or lobby side.
// Network I/O runs in dedicated goroutines; domain state is touched
// only from the event loop, which consumes this session's events in
// arrival order.
type Session struct {
	ID  uint64
	Tag string // "gate" or the lobby server's title code
	IP  net.IP

	conn   net.Conn
	events chan<- Event
	out    chan []byte

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	log *zap.Logger
}

func newSession(conn net.Conn, id uint64, tag string, events chan<- Event, log *zap.Logger) *Session {
	var ip net.IP
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		ip = addr.IP
	}
	return &Session{
		ID:      id,
		Tag:     tag,
		IP:      ip,
		conn:    conn,
		events:  events,
		out:     make(chan []byte, outQueueSize),
		closeCh: make(chan struct{}),
		log:     log.With(zap.Uint64("session", id), zap.String("listener", tag)),
	}
}

func (s *Session) start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send queues an outbound packet. Non-blocking: a client that cannot
// drain its queue is disconnected rather than stalling the event loop.
func (s *Session) Send(data []byte) {
	if s.closed.Load() {
		return
	}
	select {
	case s.out <- data:
	default:
		s.log.Warn("send queue full, dropping slow connection")
		s.Close()
	}
}

// Close shuts the connection down. Safe to call more than once and
// from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// RemoteIP returns the peer's IP address.
func (s *Session) RemoteIP() net.IP {
	return s.IP
}

// LocalIP returns the address this connection was accepted on, which
// is what gets advertised back to clients asking for a lobby server.
func (s *Session) LocalIP() net.IP {
	if addr, ok := s.conn.LocalAddr().(*net.TCPAddr); ok {
		return addr.IP
	}
	return nil
}

// readLoop reads frames and forwards them to the event loop. A client
// silent for longer than the idle timeout is dropped, which the
// shipped games rely on instead of any application-level keepalive.
func (s *Session) readLoop() {
	defer func() {
		s.Close()
		s.events <- Event{Kind: EventClosed, Session: s}
	}()

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		s.conn.SetReadDeadline(time.Now().Add(idleTimeout))
		frame, err := ReadFrame(s.conn)
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}

		select {
		case s.events <- Event{Kind: EventFrame, Session: s, Frame: frame}:
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case data := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := WriteFrame(s.conn, data); err != nil {
				if !s.closed.Load() {
					s.log.Debug("write error", zap.Error(err))
				}
				return
			}
		case <-s.closeCh:
			return
		}
	}
}
