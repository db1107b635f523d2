package fetch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"trawl/internal/services"
	"trawl/internal/stage"
)

type binaryRef struct {
	name string
	url  string
}

// downloadAll fetches refs with at most limit requests in flight. Results keep
// the order of refs. Any failure cancels the rest.
func (c *Client) downloadAll(ctx context.Context, refs []binaryRef, limit int) ([]stage.Binary, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	if limit < 1 {
		limit = 1
	}
	out := make([]stage.Binary, len(refs))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)
	for i, ref := range refs {
		group.Go(func() error {
			data, err := c.Get(groupCtx, ref.url)
			if err != nil {
				return fmt.Errorf("download %s: %w", ref.name, err)
			}
			out[i] = stage.Binary{Name: ref.name, URL: ref.url, Data: data}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		partial := services.Wrap(services.ErrTransient, "fetch", "download binaries", "metadata fetched but binary missing", err)
		return nil, services.WithCode(partial, services.CodePartial)
	}
	return out, nil
}
