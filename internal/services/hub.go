package services

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ahmetk3436/powerboard/internal/view"
	"github.com/google/uuid"
)

const clientBuffer = 4

type livePayload struct {
	Rows      string `json:"rows"`
	FetchedAt string `json:"fetched_at"`
}

// Hub pushes the re-rendered table body to every connected browser. Slow
// clients miss updates instead of blocking the poller.
type Hub struct {
	renderer  *view.Renderer
	presenter *view.Presenter

	mu      sync.RWMutex
	clients map[uuid.UUID]chan []byte
	last    []byte
	lastSeq uint64
}

func NewHub(renderer *view.Renderer, presenter *view.Presenter) *Hub {
	return &Hub{
		renderer:  renderer,
		presenter: presenter,
		clients:   make(map[uuid.UUID]chan []byte),
	}
}

// Publish renders s and broadcasts it. It is registered as a board listener.
// Board listeners run outside the board lock, so a snapshot older than the
// last published one is dropped.
func (h *Hub) Publish(s Snapshot) {
	rows, err := h.renderer.RenderRows(h.presenter.Table(s.Servers))
	if err != nil {
		slog.Error("Failed to render rows", "error", err)
		return
	}
	msg, err := json.Marshal(livePayload{Rows: string(rows), FetchedAt: h.presenter.Stamp(s.FetchedAt)})
	if err != nil {
		slog.Error("Failed to encode live payload", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if s.Seq < h.lastSeq {
		slog.Debug("Dropped stale live update", "seq", s.Seq, "published", h.lastSeq)
		return
	}
	h.last = msg
	h.lastSeq = s.Seq
	for id, ch := range h.clients {
		select {
		case ch <- msg:
		default:
			slog.Debug("Dropped live update for slow client", "client", id)
		}
	}
}

// Register adds a client. The latest payload, if any, is queued right away.
func (h *Hub) Register() (uuid.UUID, <-chan []byte) {
	id := uuid.New()
	ch := make(chan []byte, clientBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last != nil {
		ch <- h.last
	}
	h.clients[id] = ch
	return id, ch
}

func (h *Hub) Unregister(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(ch)
	}
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
