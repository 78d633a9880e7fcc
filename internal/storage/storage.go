package storage

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("blob not found")

// BlobStorage holds the bytes of uploaded files, keyed by storage reference.
// Delete of a missing blob is not an error.
type BlobStorage interface {
	Save(ctx context.Context, ref string, data io.Reader) error
	Get(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}
