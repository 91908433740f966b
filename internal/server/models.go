package server

import (
	"time"

	"github.com/mohammad-safakhou/axiom/internal/store"
)

// HTTPError is a generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// HistoryResponse lists the caller's threads.
type HistoryResponse struct {
	Snapshots []store.ThreadSummary `json:"snapshots"`
}

// ThreadResponse is a thread with its messages.
type ThreadResponse struct {
	ThreadID  int64           `json:"thread_id"`
	Title     string          `json:"title"`
	IsPublic  bool            `json:"is_public"`
	UpdatedAt time.Time       `json:"updated_at"`
	Messages  []store.Message `json:"messages"`
}

// SuccessResponse acknowledges a mutation.
type SuccessResponse struct {
	Success bool `json:"success"`
}
