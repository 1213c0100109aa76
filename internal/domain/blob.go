package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo is one listed object.
type BlobInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// BlobWriter stores objects.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader opens and lists objects. Get reports a missing object as
// ErrNotFound.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// BlobDeleter removes objects. Deleting a missing object is not an error.
type BlobDeleter interface {
	Delete(ctx context.Context, path string) error
}

// HistoryArchive keeps dated snapshots of fetched histories in cold storage.
type HistoryArchive interface {
	Save(ctx context.Context, h InstrumentHistory) error
	Latest(ctx context.Context, symbol string) (InstrumentHistory, error)
}
