// Package storage is the durable report cache.
//
// It keeps:
//   - One persisted snapshot per report id (upsert; at most one row per id)
//   - An append-only update history (one entry per save attempt)
//   - A user-query audit table for search analytics
//
// The durable cache is the fallback read source when a live fetch fails and
// no in-memory snapshot exists (cold start or a persistent source outage).
package storage
