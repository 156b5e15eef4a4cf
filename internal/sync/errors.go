package sync

import (
	"errors"
	"fmt"

	"github.com/palmtask/palmtask/internal/feed"
)

var (
	// ErrNetworkUnavailable is returned when the feed source cannot be
	// reached. No state changes.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrUpstream matches every *UpstreamError.
	ErrUpstream = errors.New("upstream feed failed")

	// ErrPersistence matches every *PersistenceError.
	ErrPersistence = errors.New("persistence failed")
)

// UpstreamError reports a feed that could not be fetched or read. The sync
// was aborted before any write.
type UpstreamError struct {
	Feed feed.Feed
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream feed %s failed: %v", e.Feed, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// PersistenceError reports a collection that could not be replaced. The
// collection keeps its previous contents.
type PersistenceError struct {
	Collection string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist %s: %v", e.Collection, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
