// Package cache owns the in-memory report snapshots and the ingestion cycle
// that refreshes them.
//
// The service is constructed once at startup and handed to the HTTP layer
// and the scheduler; there is no ambient global state. Reads never block on
// an in-flight reload: they observe the last completed snapshot
// (stale-but-available), falling back to the durable store when the process
// has not ingested a report yet.
package cache
