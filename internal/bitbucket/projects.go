package bitbucket

import (
	"context"
	"fmt"
	"iter"
	"net/url"
)

// ListProjects lazily lists all projects visible to the credential.
func (c *Client) ListProjects(ctx context.Context) iter.Seq2[Project, error] {
	return paginate[Project](ctx, c, apiBase+"/projects", nil)
}

// GetProject fetches a single project by key.
func (c *Client) GetProject(ctx context.Context, projectKey string) (*Project, error) {
	var project Project
	apiPath := fmt.Sprintf("%s/projects/%s", apiBase, url.PathEscape(projectKey))
	if err := c.get(ctx, apiPath, nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}
