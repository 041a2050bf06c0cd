// Package port defines the interfaces pipeline stages implement.
package port

import (
	"context"
	"errors"
)

// ErrNoMoreItems is returned by an ItemReader once it is exhausted.
var ErrNoMoreItems = errors.New("no more items to read")

// ItemStream is a component that holds a resource for the duration of a stage.
// Open acquires the resource and Close releases it. Close must be safe to call
// after a failed Open.
type ItemStream interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error
}

// ItemReader reads items one at a time.
// Read returns ErrNoMoreItems when there is nothing left.
type ItemReader[O any] interface {
	ItemStream
	Read(ctx context.Context) (O, error)
}

// ItemProcessor transforms a single item.
// Returning a zero value with ErrItemFiltered drops the item without failing the run.
type ItemProcessor[I, O any] interface {
	Process(ctx context.Context, item I) (O, error)
}

// ErrItemFiltered signals that a processor intentionally dropped an item.
var ErrItemFiltered = errors.New("item filtered")

// ItemWriter persists a batch of items.
type ItemWriter[I any] interface {
	ItemStream
	Write(ctx context.Context, items []I) error
}

// StreamProcessor is a processor that holds a resource (typically a connection) while it runs.
type StreamProcessor[I, O any] interface {
	ItemStream
	ItemProcessor[I, O]
}
