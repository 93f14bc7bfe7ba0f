// Package cache implements the TTL tables services use to avoid regenerating data on
// every request.
//
// A Table holds exactly one value per integer key of a small fixed domain (for example
// the day offset 0..7). Each entry carries the time it was generated and is fresh while
// its age does not exceed the table TTL. GetOrGenerate checks freshness, regenerates a
// stale entry and copies the entry out, all under one exclusive lock per table, so a
// reader observes an entry either before or after a regeneration, never in between.
//
// Grid lays a rows × cols domain (day offset × zodiac sign) over a Table.
//
// Tables are meant to be created once at startup and injected into the handlers that
// use them. Values are copied out by assignment, so T should be a value type.
package cache
