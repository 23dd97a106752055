package chatclient

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"volunteer_chat/internal/domain"
)

const (
	DefaultPollInterval = 3 * time.Second
	DefaultPollOverlap  = 20
)

// Fetcher is the slice of Client the poller needs.
type Fetcher interface {
	GetMessages(ctx context.Context, conversationID, afterID int64, limit int) ([]*domain.Message, error)
}

// Poller keeps the open conversation's timeline in sync with the server on
// a fixed interval. Only one conversation is open at a time, and a fetch is
// never started while another is in flight.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	pageSize int

	// OnError, when set, receives fetch errors. Polling continues after an error.
	OnError func(error)

	// Overlap is how many already confirmed messages each poll reads again.
	Overlap int

	inFlight atomic.Bool

	mu       sync.Mutex
	timeline *Timeline
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewPoller(fetcher Fetcher, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		fetcher:  fetcher,
		interval: interval,
		pageSize: 100,
		Overlap:  DefaultPollOverlap,
	}
}

// Open starts polling for tl, closing any previously open conversation. The
// first fetch happens immediately.
func (p *Poller) Open(tl *Timeline) {
	p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.mu.Lock()
	p.timeline = tl
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go p.loop(ctx, tl, done)
}

// Close stops polling and waits for the loop to exit. It is a no-op when
// nothing is open.
func (p *Poller) Close() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.timeline, p.cancel, p.done = nil, nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Timeline returns the open conversation's timeline, or nil.
func (p *Poller) Timeline() *Timeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timeline
}

func (p *Poller) loop(ctx context.Context, tl *Timeline, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.poll(ctx, tl)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Poll fetches once for the open conversation. It reports false without
// fetching when nothing is open or a fetch is already in flight.
func (p *Poller) Poll(ctx context.Context) bool {
	tl := p.Timeline()
	if tl == nil {
		return false
	}
	return p.poll(ctx, tl)
}

func (p *Poller) poll(ctx context.Context, tl *Timeline) bool {
	if !p.inFlight.CompareAndSwap(false, true) {
		return false
	}
	defer p.inFlight.Store(false)

	after := tl.SyncCursor(p.Overlap)
	for {
		msgs, err := p.fetcher.GetMessages(ctx, tl.ConversationID(), after, p.pageSize)
		if err != nil {
			if ctx.Err() == nil && p.OnError != nil {
				p.OnError(err)
			}
			return true
		}
		// A fetch that outlived Close must not touch the timeline.
		if ctx.Err() != nil {
			return true
		}
		tl.Merge(msgs)

		if len(msgs) < p.pageSize || msgs[len(msgs)-1].ID <= after {
			return true
		}
		after = msgs[len(msgs)-1].ID
	}
}
