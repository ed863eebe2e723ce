package journal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/landgrid/landmarket/internal/feed"
	"github.com/landgrid/landmarket/internal/model"
)

func TestEventWriter_Transform(t *testing.T) {
	id := uuid.New()
	ev := model.Event{
		EventID:      id,
		Kind:         model.EventAuctionFinished,
		EmittedTS:    1_700_000_000_000_000,
		Entity:       "auction/3",
		Actor:        "admin",
		Counterparty: "bob",
		Amount:       700,
		Tokens: []model.TokenRef{
			{Contract: "landplot", TokenID: 5},
			{Contract: "landplot", TokenID: 6},
		},
	}

	row, err := transformEvent(ev)
	if err != nil {
		t.Fatalf("transformEvent() error = %v", err)
	}

	if row.EventID != id {
		t.Errorf("EventID = %v, want %v", row.EventID, id)
	}
	if row.Kind != "auction_finished" {
		t.Errorf("Kind = %q, want %q", row.Kind, "auction_finished")
	}
	if row.Actor != "admin" || row.Counterparty != "bob" {
		t.Errorf("actor/counterparty = %q/%q, want admin/bob", row.Actor, row.Counterparty)
	}
	if row.Amount != 700 {
		t.Errorf("Amount = %d, want 700", row.Amount)
	}

	var tokens []model.TokenRef
	if err := json.Unmarshal(row.Tokens, &tokens); err != nil {
		t.Fatalf("Unmarshal tokens: %v", err)
	}
	if len(tokens) != 2 || tokens[1].TokenID != 6 {
		t.Errorf("tokens = %+v, want the two listed refs", tokens)
	}
}

func TestEventWriter_Transform_NoTokens(t *testing.T) {
	row, err := transformEvent(model.Event{
		EventID: uuid.New(),
		Kind:    model.EventAuctionBid,
		Actor:   "bob",
		Amount:  250,
	})
	if err != nil {
		t.Fatalf("transformEvent() error = %v", err)
	}
	if string(row.Tokens) != "null" {
		t.Errorf("Tokens = %q, want null", row.Tokens)
	}
}

func TestEventWriter_Lifecycle(t *testing.T) {
	cfg := WriterConfig{
		BatchSize:     10,
		FlushInterval: 100 * time.Millisecond,
	}
	input := feed.NewQueue[model.Event](10)

	// No database; this exercises the goroutine lifecycle only.
	w := NewEventWriter(cfg, input, nil, nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestEventWriter_HandleEvent_AddsToBatch(t *testing.T) {
	cfg := WriterConfig{
		BatchSize:     100, // Large batch so no auto-flush
		FlushInterval: time.Hour,
	}
	input := feed.NewQueue[model.Event](10)
	w := NewEventWriter(cfg, input, nil, nil)

	w.handleEvent(model.Event{
		EventID: uuid.New(),
		Kind:    model.EventPlotsClaimed,
		Actor:   "alice",
	})

	w.batchMu.Lock()
	batchLen := len(w.batch)
	w.batchMu.Unlock()

	if batchLen != 1 {
		t.Errorf("batch length = %d, want 1", batchLen)
	}
}

func TestDefaultWriterConfig(t *testing.T) {
	cfg := DefaultWriterConfig()
	if cfg.BatchSize < 1 {
		t.Errorf("BatchSize = %d, want >= 1", cfg.BatchSize)
	}
	if cfg.FlushInterval < 1 {
		t.Errorf("FlushInterval = %v, want positive", cfg.FlushInterval)
	}
}
