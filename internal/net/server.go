// Package net owns the TCP side of the service: framing, sessions and
// listeners. Every listener feeds one shared event channel so that all
// domain state is mutated from a single goroutine, preserving the
// per-connection ordering the protocol assumes.
package net

import (
	"fmt"
	"net"
	"sync/atomic"

	"go.uber.org/zap"
)

// EventKind discriminates the events a session produces.
type EventKind int

const (
	EventConnected EventKind = iota
	EventFrame
	EventClosed
)

// Event is one unit of work for the event loop.
type Event struct {
	Kind    EventKind
	Session *Session
	Frame   []byte // raw frame payload, EventFrame only
}

// Server accepts TCP connections on one port and turns them into
// sessions. Several servers (the gate plus one per title) share a
// single event channel and ID counter.
type Server struct {
	listener net.Listener
	tag      string
	nextID   *atomic.Uint64
	events   chan<- Event
	log      *zap.Logger
	closeCh  chan struct{}
}

func NewServer(port int, tag string, nextID *atomic.Uint64, events chan<- Event, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("listen %s on :%d: %w", tag, port, err)
	}
	return &Server{
		listener: ln,
		tag:      tag,
		nextID:   nextID,
		events:   events,
		log:      log,
		closeCh:  make(chan struct{}),
	}, nil
}

// AcceptLoop runs in its own goroutine until Shutdown.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
			}
			s.log.Error("accept failed", zap.String("listener", s.tag), zap.Error(err))
			continue
		}

		id := s.nextID.Add(1)
		sess := newSession(conn, id, s.tag, s.events, s.log)
		s.log.Info("client connected",
			zap.String("listener", s.tag),
			zap.Uint64("session", id),
			zap.String("ip", sess.IP.String()),
		)

		s.events <- Event{Kind: EventConnected, Session: sess}
		sess.start()
	}
}

// Shutdown stops accepting new connections.
func (s *Server) Shutdown() {
	close(s.closeCh)
	s.listener.Close()
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
