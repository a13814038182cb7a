package telegram

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Handler consumes one update. Updates for the same chat are delivered in
// order, one at a time; distinct chats run concurrently.
type Handler interface {
	HandleUpdate(ctx context.Context, upd Update)
}

// Updater is the slice of Client the poller needs.
type Updater interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error)
}

const (
	pollTimeoutSec = 50
	chatQueueSize  = 16
	errorBackoff   = 3 * time.Second
)

// Poller long-polls for updates and fans them out to per-chat workers.
type Poller struct {
	api     Updater
	handler Handler
	log     *zap.Logger

	mu     sync.Mutex
	queues map[int64]chan Update
	wg     sync.WaitGroup
}

func NewPoller(api Updater, handler Handler, log *zap.Logger) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{
		api:     api,
		handler: handler,
		log:     log,
		queues:  make(map[int64]chan Update),
	}
}

// Run polls until ctx is cancelled, then waits for in-flight handlers to
// finish.
func (p *Poller) Run(ctx context.Context) error {
	defer p.drain()

	var offset int64
	for {
		updates, err := p.api.GetUpdates(ctx, offset, pollTimeoutSec)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.Warn("poll failed", zap.Error(err))
			select {
			case <-time.After(errorBackoff):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			p.dispatch(ctx, upd)
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, upd Update) {
	chatID := upd.ChatID()
	if chatID == 0 {
		return
	}

	p.mu.Lock()
	q, ok := p.queues[chatID]
	if !ok {
		q = make(chan Update, chatQueueSize)
		p.queues[chatID] = q
		p.wg.Add(1)
		go p.worker(ctx, q)
	}
	p.mu.Unlock()

	select {
	case q <- upd:
	case <-ctx.Done():
	default:
		// A chat that buffered chatQueueSize unhandled updates is being
		// flooded; drop rather than stall the shared poll loop.
		p.log.Warn("chat queue full, dropping update",
			zap.Int64("chat_id", chatID),
			zap.Int64("update_id", upd.UpdateID))
	}
}

func (p *Poller) worker(ctx context.Context, q chan Update) {
	defer p.wg.Done()
	for {
		select {
		case upd := <-q:
			p.handler.HandleUpdate(ctx, upd)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) drain() {
	p.wg.Wait()
}
