package blob

import (
	"context"
	"log/slog"

	"github.com/asiedupress/storefront-service/internal/ports"
)

// Chain tries each source in order and returns the first hit. A source error
// is logged and treated as a miss so a storage outage degrades to the local
// fallback instead of failing the download.
type Chain struct {
	sources []ports.BlobSource
}

func NewChain(sources ...ports.BlobSource) *Chain {
	return &Chain{sources: sources}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Fetch(ctx context.Context, key string) ([]byte, bool, error) {
	for _, src := range c.sources {
		data, found, err := src.Fetch(ctx, key)
		if err != nil {
			slog.Warn("blob source failed, trying next",
				"module", "blob", "operation", "fetch", "source", src.Name(), "key", key, "error", err)
			continue
		}
		if found {
			return data, true, nil
		}
	}
	return nil, false, nil
}
