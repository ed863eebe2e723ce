// Package model defines the domain types shared across the land registry and
// marketplace: accounts, coordinates, auction lots, purchase offers, events,
// and the failure taxonomy.
//
// All timestamps are int64 microseconds since the Unix epoch. All monetary
// amounts are non-negative int64 values in the smallest unit.
package model
