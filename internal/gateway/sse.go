// Package gateway fans published events out to connected SSE clients. From
// the bus's point of view it is one more wildcard subscriber, with no
// special treatment.
package gateway

import (
	"io"
	"sync"

	"orderdesk_backend/internal/events"
	"orderdesk_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// clientBuffer is the per-connection event buffer. A slow consumer drops
// events rather than backing the dispatch loop up.
const clientBuffer = 64

// client represents one connected SSE stream.
type client struct {
	id        uuid.UUID
	eventType string // "" means all types
	events    chan *events.Event
}

// Service manages SSE connections and event fan-out.
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*client
	log     *logger.Logger
}

// New creates a new SSE fan-out service.
func New(log *logger.Logger) *Service {
	return &Service{
		clients: make(map[uuid.UUID]*client),
		log:     log,
	}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.id] = c
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[c.id]; !ok {
		return
	}
	delete(s.clients, c.id)
	close(c.events)
}

// Fanout delivers one event to every connected client whose filter matches.
func (s *Service) Fanout(event *events.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.clients {
		if c.eventType != "" && c.eventType != event.Type {
			continue
		}
		select {
		case c.events <- event:
		default:
			s.log.Warn("sse buffer full, dropping event",
				"client_id", c.id.String(),
				"event_id", event.ID.String(),
			)
		}
	}
}

// ClientCount returns the number of connected streams.
func (s *Service) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Stream is the gin handler for GET /events/stream. An optional ?type=
// query narrows the stream to one event type.
func (s *Service) Stream(c *gin.Context) {
	eventType := c.Query("type")

	conn := &client{
		id:        uuid.New(),
		eventType: eventType,
		events:    make(chan *events.Event, clientBuffer),
	}
	s.addClient(conn)
	defer s.removeClient(conn)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-conn.events:
			if !ok {
				return false
			}
			c.SSEvent(event.Type, event)
			return true
		}
	})
}
