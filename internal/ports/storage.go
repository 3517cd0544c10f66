package ports

import "context"

// BlobSource locates file bytes for a catalog object key. found=false with a
// nil error is an ordinary miss; callers fall through to the next source.
type BlobSource interface {
	Name() string
	Fetch(ctx context.Context, key string) (data []byte, found bool, err error)
}
