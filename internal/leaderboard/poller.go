// Package leaderboard polls the backend's karma ranking on a fixed interval.
package leaderboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/blackmichael/karma-feed/internal/domain"
)

// DefaultInterval is the refresh period used when none is configured.
const DefaultInterval = 30 * time.Second

// Fetcher returns the ranked entries in backend order.
type Fetcher interface {
	Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error)
}

// Snapshot is the last successfully fetched leaderboard. Entries are in
// backend order; rank is index+1.
type Snapshot struct {
	Entries   []domain.LeaderboardEntry `json:"entries"`
	Loading   bool                      `json:"loading"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

// Poller keeps the latest leaderboard snapshot and pushes each new one to
// subscribers.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	logger   *slog.Logger

	mu   sync.RWMutex
	snap Snapshot
	subs map[chan Snapshot]struct{}
}

// NewPoller creates a Poller. A non-positive interval uses DefaultInterval.
func NewPoller(fetcher Fetcher, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		fetcher:  fetcher,
		interval: interval,
		logger:   logger,
		snap: Snapshot{
			Entries: []domain.LeaderboardEntry{},
			Loading: true,
		},
		subs: make(map[chan Snapshot]struct{}),
	}
}

// Run fetches immediately and then once per interval. It blocks until ctx
// is cancelled. Failed fetches are logged and never slow the schedule.
func (p *Poller) Run(ctx context.Context) {
	_ = p.Refresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = p.Refresh(ctx)
		}
	}
}

// Refresh performs one fetch. On failure the previous snapshot is kept.
func (p *Poller) Refresh(ctx context.Context) error {
	entries, err := p.fetcher.Leaderboard(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		p.logger.Error("error fetching leaderboard", "error", err)
		p.mu.Lock()
		if p.snap.Loading {
			p.snap.Loading = false
			p.publishLocked()
		}
		p.mu.Unlock()
		return err
	}

	p.mu.Lock()
	p.snap = Snapshot{
		Entries:   entries,
		UpdatedAt: time.Now().UTC(),
	}
	p.publishLocked()
	p.mu.Unlock()

	p.logger.Debug("leaderboard refreshed", "entries", len(entries))
	return nil
}

// Snapshot returns the current snapshot.
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// Subscribe returns a channel that receives every new snapshot. A slow
// reader only ever sees the newest one. Call Unsubscribe when done.
func (p *Poller) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 1)
	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (p *Poller) Unsubscribe(ch <-chan Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for c := range p.subs {
		if c == ch {
			delete(p.subs, c)
			close(c)
			return
		}
	}
}

// publishLocked sends the current snapshot to every subscriber. The caller
// holds the write lock, so subscribers see snapshots in the order they were
// stored.
func (p *Poller) publishLocked() {
	snap := p.snap
	for ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
