package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/landgrid/landmarket/internal/feed"
	"github.com/landgrid/landmarket/internal/model"
)

// flowRow is the database shape of an escrow flow.
type flowRow struct {
	FlowID    uuid.UUID
	Entity    string
	Party     string
	Amount    int64
	Direction string
	FlowTS    int64
}

// FlowWriter consumes escrow flows from the router queue and batches them
// into the escrow_flows table. Together with marketplace_events this gives an
// auditable record that deposited value equals released plus stranded value.
type FlowWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	input *feed.Queue[model.EscrowFlow]
	db    *pgxpool.Pool

	batch       []flowRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics WriterMetrics
}

// NewFlowWriter creates a flow writer.
func NewFlowWriter(cfg WriterConfig, input *feed.Queue[model.EscrowFlow], db *pgxpool.Pool, logger *slog.Logger) *FlowWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FlowWriter{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]flowRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming flows and writing to the database.
func (w *FlowWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(2)
	go w.consumeLoop()
	go w.flushLoop()

	w.logger.Info("flow writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer and flushes the remaining batch.
func (w *FlowWriter) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		w.logger.Info("flow writer stopped")
	case <-ctx.Done():
		w.logger.Warn("flow writer stop timed out")
	}

	w.flush()
	return nil
}

// Stats returns current metrics.
func (w *FlowWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *FlowWriter) consumeLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			fl, ok := w.input.TryReceive()
			if !ok {
				select {
				case <-w.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}
			w.handleFlow(fl)
		}
	}
}

func (w *FlowWriter) flushLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush()
		}
	}
}

func (w *FlowWriter) handleFlow(fl model.EscrowFlow) {
	row := flowRow{
		FlowID:    fl.FlowID,
		Entity:    fl.Entity,
		Party:     string(fl.Party),
		Amount:    fl.Amount,
		Direction: string(fl.Direction),
		FlowTS:    fl.FlowTS,
	}

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

func (w *FlowWriter) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}
	batch := w.batch
	w.batch = make([]flowRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	conflicts, err := w.batchInsert(batch)
	if err != nil {
		w.logger.Error("flow batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()
}

func (w *FlowWriter) batchInsert(rows []flowRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO escrow_flows (flow_id, entity, party, amount, direction, flow_ts)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (flow_id) DO NOTHING
		`, r.FlowID, r.Entity, r.Party, r.Amount, r.Direction, r.FlowTS)
	}

	results := w.db.SendBatch(w.ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}
	return conflicts, nil
}
