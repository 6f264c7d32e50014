// Package sse implements a Server-Sent Events broker for real-time updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/checkmark/internal/models"
)

// Event types sent to clients.
const (
	TypeScanCompleted     = "scan.completed"
	TypeTaskUpdated       = "task.updated"
	TypeCategoriesUpdated = "categories.updated"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type scanReq struct {
	status     any
	categories []string
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients and the categories throttle). Public methods communicate with this
// loop through channels, so no mutexes are required.
type Broker struct {
	categoriesMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	scanCh        chan scanReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. categories.updated events are sent at
// most once per categoriesThrottle; the last throttled set is sent when the
// interval ends.
func NewBroker(categoriesThrottle time.Duration) *Broker {
	if categoriesThrottle <= 0 {
		categoriesThrottle = 2 * time.Second
	}

	b := &Broker{
		categoriesMin: categoriesThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		scanCh:        make(chan scanReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		lastCategories time.Time
		pending        []string
		hasPending     bool
		trailing       <-chan time.Time
	)

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		msg := fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)
		raw := []byte(msg)

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.scanCh:
			broadcast(Event{Type: TypeScanCompleted, Data: req.status})

			now := time.Now()
			if now.Sub(lastCategories) >= b.categoriesMin {
				lastCategories = now
				hasPending = false
				broadcast(Event{Type: TypeCategoriesUpdated, Data: categoriesData(req.categories)})
			} else {
				pending, hasPending = req.categories, true
				if trailing == nil {
					trailing = time.After(b.categoriesMin - now.Sub(lastCategories))
				}
			}

		case <-trailing:
			trailing = nil
			if hasPending {
				lastCategories = time.Now()
				broadcast(Event{Type: TypeCategoriesUpdated, Data: categoriesData(pending)})
				pending, hasPending = nil, false
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishScan publishes scan.completed with status and a throttled
// categories.updated with the category names.
func (b *Broker) PublishScan(status any, categories []string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.scanCh <- scanReq{status: status, categories: categories}:
	case <-b.stopped:
	}
}

// PublishTask publishes task.updated for an edited task.
func (b *Broker) PublishTask(t models.Task) {
	b.Publish(Event{Type: TypeTaskUpdated, Data: t})
}

func categoriesData(names []string) map[string][]string {
	if names == nil {
		names = []string{}
	}
	return map[string][]string{"categories": names}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
