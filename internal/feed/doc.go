// Package feed carries committed marketplace events from the orchestrator to
// their consumers: a fan-out router feeding the journal writers, and a
// WebSocket hub broadcasting the live feed to subscribers.
package feed
