package store

import (
	"context"
	"time"

	"github.com/anfrage-dev/anfrage/pkg/api"
)

// Turn is one exchange in a conversation thread: the response the API
// returned and its position in the previous_response_id chain.
type Turn struct {
	ThreadID   string
	ResponseID string
	// ParentID is the previous response id, empty for the first turn.
	ParentID string
	Model    string
	// Response is the full API payload. Backends may drop it under
	// memory pressure; the id and linkage fields are always kept.
	Response  *api.Response
	CreatedAt time.Time
}

// Store persists conversation turns so thread history can be replayed
// locally.
type Store interface {
	// SaveTurn records a turn and advances its thread's head to the
	// turn's response id. Returns ErrConflict when the response id is
	// already recorded.
	SaveTurn(ctx context.Context, turn *Turn) error

	// Turn returns the stored turn for a response id.
	Turn(ctx context.Context, responseID string) (*Turn, error)

	// Head returns the response id of a thread's most recent turn.
	Head(ctx context.Context, threadID string) (string, error)

	// SetHead rewinds or forks a thread by pointing it at an already
	// stored response id. Returns ErrNotFound when no such turn exists.
	SetHead(ctx context.Context, threadID, responseID string) error

	// Threads lists known thread ids in lexical order.
	Threads(ctx context.Context) ([]string, error)

	// DeleteThread removes a thread and all of its turns.
	DeleteThread(ctx context.Context, threadID string) error

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
