// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Event types pushed on /v1/events.
const (
	EventHello  = "hello"
	EventReload = "reload"
)

const (
	eventBuffer = 8
	writeWait   = 5 * time.Second
)

// Event is one message on the events socket. Version counts reloads
// since the server started.
type Event struct {
	Type    string    `json:"type"`
	Version int       `json:"version"`
	Root    string    `json:"root,omitempty"`
	At      time.Time `json:"at"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Local tool; editors and dashboards connect from arbitrary origins.
	CheckOrigin: func(*http.Request) bool { return true },
}

// hub fans events out to connected sockets. A subscriber that falls
// behind by more than eventBuffer events is dropped.
type hub struct {
	mu      sync.Mutex
	subs    map[chan Event]struct{}
	closed  bool
	version int
}

func newHub() *hub {
	return &hub{subs: make(map[chan Event]struct{})}
}

func (h *hub) subscribe() (chan Event, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan Event, eventBuffer)
	if h.closed {
		close(ch)
		return ch, h.version
	}
	h.subs[ch] = struct{}{}
	return ch, h.version
}

func (h *hub) unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// publish bumps the version and sends the event to every subscriber.
func (h *hub) publish(typ, root string) Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.version++
	ev := Event{Type: typ, Version: h.version, Root: root, At: time.Now().UTC()}
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			delete(h.subs, ch)
			close(ch)
		}
	}
	return ev
}

// close ends every subscription. Hijacked connections are not closed by
// http.Server.Shutdown, so Run calls this on the way out.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *hub) subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// handleEvents upgrades to a websocket and pushes a hello followed by
// one event per project reload. Client messages are ignored.
func (s *Server) handleEvents(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	session := uuid.NewString()
	events, version := s.events.subscribe()
	defer s.events.unsubscribe(events)
	s.logger.Debug("events client connected", slog.String("session", session))

	// Reading is only needed to notice the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.mu.RLock()
	root := s.project.RootPath
	s.mu.RUnlock()
	if err := s.send(conn, Event{Type: EventHello, Version: version, Root: root, At: time.Now().UTC()}); err != nil {
		return
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return
			}
			if err := s.send(conn, ev); err != nil {
				return
			}
		case <-gone:
			s.logger.Debug("events client disconnected", slog.String("session", session))
			return
		}
	}
}

func (s *Server) send(conn *websocket.Conn, ev Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(ev); err != nil {
		s.logger.Debug("websocket write failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}
