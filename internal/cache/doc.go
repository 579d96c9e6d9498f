// Package cache provides a byte-bounded LRU cache for immutable blobs.
//
// Entries are charged against an optional resource.Budget so that cached
// volumes and buffered samples share one memory limit. A Set that would
// exceed either the cache capacity or the budget evicts old entries first
// and is dropped if that is not enough.
package cache
