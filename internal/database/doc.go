// Package database provides connection pool management for the PostgreSQL
// journal store. Entity state (plots, lots, offers) lives in memory; the
// database holds only the append-only event and escrow-flow journal.
package database
