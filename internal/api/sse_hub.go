package api

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"ciasx/domain/core"
	"ciasx/internal"
	"ciasx/ports"
)

// Run event types streamed over SSE
const (
	EventRecord          = "record"
	EventExecutionFailed = "execution_failed"
	EventRound           = "round"
	EventComplete        = "complete"
)

// SSEClient represents a connected SSE client
type SSEClient struct {
	RunID   core.RunID
	Channel chan RunEvent
}

// RunEvent is one progress event of a design run
type RunEvent struct {
	RunID     core.RunID             `json:"run_id"`
	EventType string                 `json:"event_type"`
	Cycle     int                    `json:"cycle"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// SSEHub fans run events out to Server-Sent Events subscribers
type SSEHub struct {
	clients    map[core.RunID]map[chan RunEvent]bool
	clientsMu  sync.RWMutex
	register   chan SSEClient
	unregister chan SSEClient
	broadcast  chan RunEvent
	done       chan struct{}
	logger     *internal.Logger
}

// NewSSEHub creates a hub and starts its dispatch goroutine
func NewSSEHub(logger *internal.Logger) *SSEHub {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	hub := &SSEHub{
		clients:    make(map[core.RunID]map[chan RunEvent]bool),
		register:   make(chan SSEClient, 10),
		unregister: make(chan SSEClient, 10),
		broadcast:  make(chan RunEvent, 100),
		done:       make(chan struct{}),
		logger:     logger.With("sse"),
	}

	go hub.run()
	return hub
}

// Close stops the dispatch goroutine
func (h *SSEHub) Close() {
	close(h.done)
}

func (h *SSEHub) run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.clientsMu.Lock()
			if h.clients[client.RunID] == nil {
				h.clients[client.RunID] = make(map[chan RunEvent]bool)
			}
			h.clients[client.RunID][client.Channel] = true
			h.logger.Debug("client registered for run %s (total clients: %d)",
				client.RunID, len(h.clients[client.RunID]))
			h.clientsMu.Unlock()

		case client := <-h.unregister:
			h.clientsMu.Lock()
			if clients, exists := h.clients[client.RunID]; exists {
				delete(clients, client.Channel)
				close(client.Channel)
				h.logger.Debug("client unregistered from run %s (remaining clients: %d)",
					client.RunID, len(clients))
				if len(clients) == 0 {
					delete(h.clients, client.RunID)
				}
			}
			h.clientsMu.Unlock()

		case event := <-h.broadcast:
			h.clientsMu.RLock()
			for clientChan := range h.clients[event.RunID] {
				select {
				case clientChan <- event:
				default:
					h.logger.Warn("client channel full for run %s, skipping event", event.RunID)
				}
			}
			h.clientsMu.RUnlock()
		}
	}
}

// Broadcast queues an event for every subscriber of its run. It never blocks.
func (h *SSEHub) Broadcast(event RunEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping %s event", event.EventType)
	}
}

// subscribe and unsubscribe block until the dispatcher takes the request or
// the hub is closed. A dropped unregister would leak the client forever.
func (h *SSEHub) subscribe(runID core.RunID) (chan RunEvent, bool) {
	ch := make(chan RunEvent, 10)
	select {
	case h.register <- SSEClient{RunID: runID, Channel: ch}:
		return ch, true
	case <-h.done:
		return nil, false
	}
}

func (h *SSEHub) unsubscribe(runID core.RunID, ch chan RunEvent) {
	select {
	case h.unregister <- SSEClient{RunID: runID, Channel: ch}:
	case <-h.done:
	}
}

// HandleSSE streams the events of run :id
func (h *SSEHub) HandleSSE(c *gin.Context) {
	runID, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	clientChan, ok := h.subscribe(runID)
	if !ok {
		c.JSON(500, gin.H{"error": "SSE hub registration failed"})
		return
	}
	defer h.unsubscribe(runID, clientChan)

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case event, open := <-clientChan:
			if !open {
				return false
			}
			eventJSON, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to marshal event: %v", err)
				return true
			}
			c.SSEvent(event.EventType, string(eventJSON))
			return event.EventType != EventComplete

		case <-time.After(30 * time.Second):
			c.SSEvent("ping", `{"status": "alive", "timestamp": "`+time.Now().Format(time.RFC3339)+`"}`)
			return true

		case <-ctx.Done():
			return false
		}
	})
}

// GetClientCount returns the number of active clients for a run
func (h *SSEHub) GetClientCount(runID core.RunID) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients[runID])
}

// Observer returns a loop observer that publishes runID's progress on the hub.
func (h *SSEHub) Observer(runID core.RunID) ports.LoopObserver {
	return &runPublisher{hub: h, runID: runID}
}

type runPublisher struct {
	hub   *SSEHub
	runID core.RunID
}

func (p *runPublisher) OnRecord(_ context.Context, e ports.RecordEvent) {
	p.hub.Broadcast(RunEvent{
		RunID:     p.runID,
		EventType: EventRecord,
		Cycle:     e.Cycle,
		Data: map[string]interface{}{
			"record":      e.Record.ToMap(),
			"duration_ms": e.Duration.Milliseconds(),
		},
	})
}

func (p *runPublisher) OnExecutionFailed(_ context.Context, e ports.FailureEvent) {
	data := map[string]interface{}{
		"config":      e.Config.ToMap(),
		"duration_ms": e.Duration.Milliseconds(),
	}
	if e.Err != nil {
		data["error"] = e.Err.Error()
	}
	p.hub.Broadcast(RunEvent{RunID: p.runID, EventType: EventExecutionFailed, Cycle: e.Cycle, Data: data})
}

func (p *runPublisher) OnRound(_ context.Context, r ports.RoundReport) {
	p.hub.Broadcast(RunEvent{
		RunID:     p.runID,
		EventType: EventRound,
		Cycle:     r.Round,
		Data:      map[string]interface{}{"report": r},
	})
}

func (p *runPublisher) OnComplete(_ context.Context, s ports.LoopSummary) {
	p.hub.Broadcast(RunEvent{
		RunID:     p.runID,
		EventType: EventComplete,
		Cycle:     s.Rounds,
		Data:      map[string]interface{}{"summary": s},
	})
}
