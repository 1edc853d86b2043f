package ports

import (
	"context"
	"io"
)

// ObjectStorage uploads binary media to external storage and returns the
// public URL of the stored object.
type ObjectStorage interface {
	Upload(ctx context.Context, prefix string, body io.Reader, size int64, contentType string) (string, error)
}
