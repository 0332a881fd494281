package storage

import (
	"context"
	"io"
	"time"
)

// Client is the object-storage contract the audio pipeline depends on.
type Client interface {
	// Upload stores the object and returns its durable direct URL.
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (directURL string, err error)
	// SignedGetURL returns a time-limited read URL for the object.
	SignedGetURL(ctx context.Context, objectName string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, objectName string) error
}
