package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/landgrid/landmarket/internal/model"
)

// RouterConfig holds event router settings.
type RouterConfig struct {
	JournalBufferSize int // Initial capacity of the journal output queue
	FlowBufferSize    int // Initial capacity of the escrow flow output queue
}

// DefaultRouterConfig returns default settings.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		JournalBufferSize: 1000,
		FlowBufferSize:    1000,
	}
}

// Router fans marketplace events out from the orchestrator's emit queue to
// the journal writer queue and the live WebSocket hub. Escrow flows pass
// through untouched to their own journal queue.
type Router struct {
	cfg    RouterConfig
	logger *slog.Logger

	events *Queue[model.Event]
	flows  *Queue[model.EscrowFlow]
	hub    *Hub // may be nil

	journalEvents *Queue[model.Event]
	journalFlows  *Queue[model.EscrowFlow]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	routed int64
}

// NewRouter creates a router over the orchestrator's emit queues. hub may be
// nil when no live feed is served.
func NewRouter(cfg RouterConfig, events *Queue[model.Event], flows *Queue[model.EscrowFlow], hub *Hub, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cfg:           cfg,
		logger:        logger,
		events:        events,
		flows:         flows,
		hub:           hub,
		journalEvents: NewQueue[model.Event](cfg.JournalBufferSize),
		journalFlows:  NewQueue[model.EscrowFlow](cfg.FlowBufferSize),
	}
}

// JournalEvents is the queue the journal event writer consumes.
func (r *Router) JournalEvents() *Queue[model.Event] { return r.journalEvents }

// JournalFlows is the queue the journal flow writer consumes.
func (r *Router) JournalFlows() *Queue[model.EscrowFlow] { return r.journalFlows }

// Start begins routing.
func (r *Router) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(2)
	go r.routeEvents()
	go r.routeFlows()

	r.logger.Info("event router started",
		"journal_buffer", r.cfg.JournalBufferSize,
		"flow_buffer", r.cfg.FlowBufferSize,
	)
	return nil
}

// Stop shuts the router down. The input queues must be closed first; the
// router drains them, then closes its output queues.
func (r *Router) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("event router stopped")
	case <-ctx.Done():
		if r.cancel != nil {
			r.cancel()
		}
		r.logger.Warn("event router stop timed out")
	}

	r.journalEvents.Close()
	r.journalFlows.Close()
	return nil
}

// Routed returns the number of events routed so far.
func (r *Router) Routed() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.routed
}

func (r *Router) routeEvents() {
	defer r.wg.Done()
	for {
		ev, ok := r.events.Receive()
		if !ok {
			return
		}
		r.journalEvents.Send(ev)
		if r.hub != nil {
			r.hub.BroadcastEvent(ev)
		}
		r.mu.Lock()
		r.routed++
		r.mu.Unlock()
	}
}

func (r *Router) routeFlows() {
	defer r.wg.Done()
	for {
		fl, ok := r.flows.Receive()
		if !ok {
			return
		}
		r.journalFlows.Send(fl)
	}
}
