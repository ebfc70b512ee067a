package bitbucket

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/step-chen/bitbucket-server-go/internal/utils"
)

// ListRepositories lazily lists the repositories of one project.
func (c *Client) ListRepositories(ctx context.Context, projectKey string) iter.Seq2[Repository, error] {
	return paginate[Repository](ctx, c, repoPath(projectKey, ""), nil)
}

// GetRepository fetches a single repository by project key and slug.
func (c *Client) GetRepository(ctx context.Context, projectKey, repoSlug string) (*Repository, error) {
	var repo Repository
	if err := c.get(ctx, repoPath(projectKey, repoSlug), nil, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// ListWebhooks lazily lists the webhooks registered on a repository.
func (c *Client) ListWebhooks(ctx context.Context, projectKey, repoSlug string) iter.Seq2[Webhook, error] {
	return paginate[Webhook](ctx, c, repoPath(projectKey, repoSlug)+"/webhooks", nil)
}

// Browse lazily lists the entries of one directory in a repository at the
// given ref ("" for the default branch). The browse endpoint nests its
// page under "children", so it cannot reuse the plain page traversal.
func (c *Client) Browse(ctx context.Context, projectKey, repoSlug, at, dirPath string) iter.Seq2[BrowseEntry, error] {
	apiPath := repoPath(projectKey, repoSlug) + "/browse"
	if dirPath != "" {
		apiPath = path.Join(apiPath, escapePath(dirPath))
	}
	return func(yield func(BrowseEntry, error) bool) {
		start := 0
		for {
			if ctx.Err() != nil {
				yield(BrowseEntry{}, cancelled(ctx))
				return
			}
			query := url.Values{}
			if at != "" {
				query.Set("at", at)
			}
			query.Set("limit", strconv.Itoa(c.pageSize))
			query.Set("start", strconv.Itoa(start))

			var listing BrowseListing
			if err := c.get(ctx, apiPath, query, &listing); err != nil {
				yield(BrowseEntry{}, err)
				return
			}
			for _, entry := range listing.Children.Values {
				if !yield(entry, nil) {
					return
				}
			}
			if listing.Children.IsLastPage || listing.Children.NextPageStart == nil {
				return
			}
			start = *listing.Children.NextPageStart
		}
	}
}

// RawContent fetches the raw bytes of a file at the given ref and returns
// them together with their XXH3 hash, usable as a cheap change marker.
func (c *Client) RawContent(ctx context.Context, projectKey, repoSlug, at, filePath string) ([]byte, string, error) {
	apiPath := path.Join(repoPath(projectKey, repoSlug), "raw", escapePath(filePath))
	query := url.Values{}
	if at != "" {
		query.Set("at", at)
	}
	var content []byte
	if err := c.get(ctx, apiPath, query, &content); err != nil {
		return nil, "", err
	}
	return content, utils.XXH3FromBytes(content), nil
}

// escapePath escapes each segment of a repository-relative path, keeping
// the slashes between them.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

func repoPath(projectKey, repoSlug string) string {
	base := fmt.Sprintf("%s/projects/%s/repos", apiBase, url.PathEscape(projectKey))
	if repoSlug == "" {
		return base
	}
	return base + "/" + url.PathEscape(repoSlug)
}
