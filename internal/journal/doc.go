// Package journal persists the marketplace's append-only audit trail to
// PostgreSQL with batched, idempotent inserts.
//
// Expected schema:
//
//	CREATE TABLE marketplace_events (
//	    event_id     UUID PRIMARY KEY,
//	    kind         TEXT NOT NULL,
//	    emitted_ts   BIGINT NOT NULL,
//	    entity       TEXT NOT NULL,
//	    actor        TEXT NOT NULL,
//	    counterparty TEXT NOT NULL DEFAULT '',
//	    amount       BIGINT NOT NULL DEFAULT 0,
//	    tokens       JSONB NOT NULL DEFAULT '[]'
//	);
//
//	CREATE TABLE escrow_flows (
//	    flow_id   UUID PRIMARY KEY,
//	    entity    TEXT NOT NULL,
//	    party     TEXT NOT NULL,
//	    amount    BIGINT NOT NULL,
//	    direction TEXT NOT NULL,
//	    flow_ts   BIGINT NOT NULL
//	);
package journal
