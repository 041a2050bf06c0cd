// Package storage defines the object storage abstraction used by export sinks.
package storage

import (
	"context"
	"io"
)

// StorageConnection stores and retrieves named objects.
// Object names are slash-separated paths relative to the connection root.
type StorageConnection interface {
	// Name returns the name of this connection.
	Name() string
	// Type returns the storage type (e.g., "local").
	Type() string
	// Upload writes data to objectName, replacing any existing object.
	Upload(ctx context.Context, objectName string, data io.Reader, contentType string) error
	// Download opens objectName for reading. The caller must close the returned reader.
	Download(ctx context.Context, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for every object whose name starts with prefix.
	ListObjects(ctx context.Context, prefix string, fn func(objectName string) error) error
	// Close releases any resources held by the connection.
	Close() error
}
