// Package store persists conversation turns keyed by response id.
//
// The Threads service records one Turn per exchange; walking ParentID
// links from a thread's head replays the conversation without
// refetching responses from the API. Backends live in the memory and
// postgres subpackages. Both implement the Store interface defined
// here, so callers can treat persistence as a bounded cache (memory)
// or a durable archive (postgres).
package store
