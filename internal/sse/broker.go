// Package sse streams catalog changes to browser clients as Server-Sent Events.
//
// Every change (model.saved, prompt.deleted, media.missing, ...) is sent as
// its own event. Changes are also folded into a catalog.updated summary that
// goes out at most once per throttle window, so list views can refetch once
// instead of after every keystroke-sized save. A summary suppressed by the
// window is sent when the window closes.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// CatalogUpdated is the coalesced summary event.
const CatalogUpdated = "catalog.updated"

const keepAliveInterval = 25 * time.Second

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// CatalogSummary is the payload of catalog.updated: the distinct change
// kinds seen since the previous summary, in first-seen order.
type CatalogSummary struct {
	Changes []string `json:"changes"`
}

// Broker fans events out to subscribed clients.
//
// A single goroutine owns the client set, the event sequence and the
// summary window; public methods reach it over channels.
type Broker struct {
	window    time.Duration
	keepAlive time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker whose catalog.updated summaries are at least
// throttle apart. A non-positive throttle means two seconds.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}

	b := &Broker{
		window:        throttle,
		keepAlive:     keepAliveInterval,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

// frame renders one event in wire format.
func frame(seq uint64, event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload)), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var seq uint64

	send := func(event Event) {
		seq++
		msg, err := frame(seq, event)
		if err != nil {
			return
		}
		for ch := range clients {
			select {
			case ch <- msg:
			default:
				// Slow client; drop rather than stall everyone else.
			}
		}
	}

	var (
		lastSummary time.Time
		pending     []string
		seen        = map[string]bool{}
		trailing    *time.Timer
		trailingC   <-chan time.Time
	)
	flush := func(now time.Time) {
		if len(pending) == 0 {
			return
		}
		send(Event{Type: CatalogUpdated, Data: CatalogSummary{Changes: pending}})
		lastSummary = now
		pending = nil
		seen = map[string]bool{}
	}

	for {
		select {
		case <-b.stopCh:
			if trailing != nil {
				trailing.Stop()
			}
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
			send(event)

		case change := <-b.changeCh:
			send(change)
			if !seen[change.Type] {
				seen[change.Type] = true
				pending = append(pending, change.Type)
			}

			now := time.Now()
			if wait := b.window - now.Sub(lastSummary); wait <= 0 {
				flush(now)
			} else if trailingC == nil {
				trailing = time.NewTimer(wait)
				trailingC = trailing.C
			}

		case now := <-trailingC:
			trailingC = nil
			flush(now)

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the broker loop and closes all client channels. It is safe to
// call more than once.
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

// Publish sends an event to all clients without touching the catalog summary.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// Notify sends a change event and folds its kind into the next
// catalog.updated summary.
func (b *Broker) Notify(kind string, data interface{}) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- Event{Type: kind, Data: data}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). Idle connections
// get a comment line every keep-alive interval so proxies keep them open.
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
	_, _ = w.Write([]byte("retry: 3000\n\n"))
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
