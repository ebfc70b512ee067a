package bitbucket

import (
	"context"
	"iter"
	"net/url"
	"strconv"
)

// paginate returns a lazy sequence over a paginated listing. The next page
// is fetched only once the current one is drained, using the server's
// nextPageStart as the new start offset. Ranging over the sequence again
// restarts the traversal from the first page.
//
// The sequence ends when a page reports isLastPage=true. A server that
// never does produces an unbounded sequence; limiting consumption is the
// caller's job.
func paginate[T any](ctx context.Context, c *Client, apiPath string, query url.Values) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		start := 0
		for {
			if ctx.Err() != nil {
				yield(zero, cancelled(ctx))
				return
			}
			q := url.Values{}
			for key, values := range query {
				q[key] = values
			}
			q.Set("limit", strconv.Itoa(c.pageSize))
			q.Set("start", strconv.Itoa(start))

			var page Page[T]
			if err := c.get(ctx, apiPath, q, &page); err != nil {
				yield(zero, err)
				return
			}
			for _, value := range page.Values {
				if !yield(value, nil) {
					return
				}
			}
			if page.IsLastPage || page.NextPageStart == nil {
				return
			}
			start = *page.NextPageStart
		}
	}
}

// Collect drains a paginated sequence into a slice, stopping at the first
// error. Use only on listings known to be finite.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for value, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}
