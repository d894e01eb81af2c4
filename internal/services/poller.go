package services

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahmetk3436/powerboard/internal/metrics"
	"github.com/ahmetk3436/powerboard/internal/models"
)

// ServerSource fetches the full server collection.
type ServerSource interface {
	ListServers(ctx context.Context) ([]models.ServerView, error)
}

// Poller fetches the server list on start and then on a fixed interval.
// A failed fetch leaves the previous snapshot in place.
type Poller struct {
	source   ServerSource
	board    *Board
	metrics  *metrics.Metrics
	interval time.Duration
	now      func() time.Time

	seq      atomic.Uint64
	cancel   context.CancelFunc
	done     chan struct{}
	startMu  sync.Mutex
	stopOnce sync.Once
}

func NewPoller(source ServerSource, board *Board, m *metrics.Metrics, interval time.Duration) *Poller {
	return &Poller{
		source:   source,
		board:    board,
		metrics:  m,
		interval: interval,
		now:      time.Now,
	}
}

// Start launches the polling goroutine. It is a no-op when already started.
func (p *Poller) Start(ctx context.Context) {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx)
	slog.Info("Poller started", "interval", p.interval)
}

// Stop cancels the polling goroutine and any fetch it has in flight, then
// waits for it to exit.
func (p *Poller) Stop() {
	p.startMu.Lock()
	cancel, done := p.cancel, p.done
	p.startMu.Unlock()
	if cancel == nil {
		return
	}

	p.stopOnce.Do(func() {
		cancel()
		<-done
		slog.Info("Poller stopped")
	})
}

// Refresh performs one fetch outside the schedule.
func (p *Poller) Refresh(ctx context.Context) error {
	return p.poll(ctx)
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	// Initial fetch
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.poll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) poll(ctx context.Context) error {
	seq := p.seq.Add(1)
	start := time.Now()

	servers, err := p.source.ListServers(ctx)
	p.metrics.ObservePoll(err, time.Since(start))
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("Error loading servers", "error", err)
		}
		p.board.RecordError(err, p.now())
		return err
	}

	if p.board.Apply(seq, servers, p.now()) {
		p.metrics.SetServers(servers)
		slog.Debug("Server list refreshed", "servers", len(servers), "seq", seq)
	} else {
		slog.Debug("Discarded stale server list", "seq", seq)
	}
	return nil
}
