package service

import (
	"time"

	"mergeflow/internal/metrics"
	v1 "mergeflow/pkg/api/v1"
	"mergeflow/pkg/constraints"
	"mergeflow/pkg/logger"
)

// Client is one SSE subscriber. Projects scopes which publishes it sees.
type Client struct {
	Send     chan v1.Message
	Projects map[string]bool
	LastRev  int64
}

func (c *Client) wants(msg v1.Message) bool {
	if len(c.Projects) == 0 {
		return true
	}
	return c.Projects[msg.Project]
}

// Hub fan-outs publish events to connected SDK clients. Slow clients whose
// send buffer fills up are dropped; they recover through the replay buffer
// on reconnect.
type Hub struct {
	clients    map[*Client]bool
	Broadcast  chan v1.Message
	Register   chan *Client
	Unregister chan *Client

	observer   metrics.HubObserver
	heartbeat  time.Duration
	sendBuffer int
}

func NewHub(observer metrics.HubObserver, heartbeat time.Duration, sendBuffer int) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Broadcast:  make(chan v1.Message, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		observer:   observer,
		heartbeat:  heartbeat,
		sendBuffer: sendBuffer,
	}
}

// NewClient builds a subscriber with the hub's configured buffer size.
func (h *Hub) NewClient(projects map[string]bool, lastRev int64) *Client {
	return &Client{
		Send:     make(chan v1.Message, h.sendBuffer),
		Projects: projects,
		LastRev:  lastRev,
	}
}

func (h *Hub) Run() {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			h.observer.IncOnline()
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.observer.DecOnline()
			}
		case message := <-h.Broadcast:
			start := time.Now()
			for client := range h.clients {
				if !client.wants(message) {
					continue
				}
				select {
				case client.Send <- message:
					h.observer.RecordPush()
				default:
					// slow consumer, drop it
					logger.Warn("dropping slow stream client")
					close(client.Send)
					delete(h.clients, client)
					h.observer.DecOnline()
				}
			}
			h.observer.ObservePushLatency(time.Since(start).Seconds())
		case <-ticker.C:
			hb := v1.Message{Action: constraints.HEARTBEAT}
			for client := range h.clients {
				select {
				case client.Send <- hb:
				default:
				}
			}
		}
	}
}
