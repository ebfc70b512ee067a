package bitbucket

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strconv"
)

// PullRequestFilter narrows a pull request listing. The zero value lists
// open pull requests, which is the server's default.
type PullRequestFilter struct {
	State string // OPEN, MERGED, DECLINED or ALL
	At    string // Fully qualified target ref, e.g. "refs/heads/main"
}

// ListPullRequests lazily lists the pull requests of a repository.
func (c *Client) ListPullRequests(ctx context.Context, projectKey, repoSlug string, filter PullRequestFilter) iter.Seq2[PullRequest, error] {
	query := url.Values{}
	if filter.State != "" {
		query.Set("state", filter.State)
	}
	if filter.At != "" {
		query.Set("at", filter.At)
	}
	return paginate[PullRequest](ctx, c, pullRequestPath(projectKey, repoSlug, 0), query)
}

// GetPullRequest fetches a single pull request. The returned Version must
// be passed back to any mutating call.
func (c *Client) GetPullRequest(ctx context.Context, projectKey, repoSlug string, id int64) (*PullRequest, error) {
	var pr PullRequest
	if err := c.get(ctx, pullRequestPath(projectKey, repoSlug, id), nil, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// ListActivities lazily lists a pull request's activity stream, newest
// first as the server orders it.
func (c *Client) ListActivities(ctx context.Context, projectKey, repoSlug string, id int64) iter.Seq2[Activity, error] {
	return paginate[Activity](ctx, c, pullRequestPath(projectKey, repoSlug, id)+"/activities", nil)
}

// ListComments collects the comment threads of a pull request from its
// activity stream. Each returned comment is the root of one thread.
func (c *Client) ListComments(ctx context.Context, projectKey, repoSlug string, id int64) ([]*Comment, error) {
	var threads []*Comment
	for activity, err := range c.ListActivities(ctx, projectKey, repoSlug, id) {
		if err != nil {
			return nil, err
		}
		if activity.Action == ActionCommented && activity.Comment != nil {
			threads = append(threads, activity.Comment)
		}
	}
	return threads, nil
}

// ListPullRequestIssues lists the Jira issue keys linked to a pull
// request. The endpoint returns a plain array, not a page.
func (c *Client) ListPullRequestIssues(ctx context.Context, projectKey, repoSlug string, id int64) ([]Issue, error) {
	apiPath := fmt.Sprintf("%s/projects/%s/repos/%s/pull-requests/%d/issues",
		jiraBase, url.PathEscape(projectKey), url.PathEscape(repoSlug), id)
	var issues []Issue
	if err := c.get(ctx, apiPath, nil, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// MergePullRequest merges an open pull request. version must be the
// Version of the caller's last read; a VersionConflictError means the pull
// request changed meanwhile and must be re-fetched.
func (c *Client) MergePullRequest(ctx context.Context, projectKey, repoSlug string, id int64, version int) (*PullRequest, error) {
	return c.transitionPullRequest(ctx, projectKey, repoSlug, id, version, "merge")
}

// DeclinePullRequest declines an open pull request, subject to the same
// version check as MergePullRequest.
func (c *Client) DeclinePullRequest(ctx context.Context, projectKey, repoSlug string, id int64, version int) (*PullRequest, error) {
	return c.transitionPullRequest(ctx, projectKey, repoSlug, id, version, "decline")
}

// ReopenPullRequest reopens a declined pull request, subject to the same
// version check as MergePullRequest.
func (c *Client) ReopenPullRequest(ctx context.Context, projectKey, repoSlug string, id int64, version int) (*PullRequest, error) {
	return c.transitionPullRequest(ctx, projectKey, repoSlug, id, version, "reopen")
}

func (c *Client) transitionPullRequest(ctx context.Context, projectKey, repoSlug string, id int64, version int, action string) (*PullRequest, error) {
	apiPath := pullRequestPath(projectKey, repoSlug, id) + "/" + action
	query := url.Values{}
	query.Set("version", strconv.Itoa(version))
	var pr PullRequest
	if err := c.post(ctx, apiPath, query, nil, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// AddComment adds a comment to a pull request. A non-nil parentID makes it
// a reply within that thread.
func (c *Client) AddComment(ctx context.Context, projectKey, repoSlug string, id int64, text string, parentID *int64) (*Comment, error) {
	body := map[string]any{"text": text}
	if parentID != nil {
		body["parent"] = map[string]any{"id": *parentID}
	}
	var comment Comment
	apiPath := pullRequestPath(projectKey, repoSlug, id) + "/comments"
	if err := c.post(ctx, apiPath, nil, body, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func pullRequestPath(projectKey, repoSlug string, id int64) string {
	base := fmt.Sprintf("%s/projects/%s/repos/%s/pull-requests",
		apiBase, url.PathEscape(projectKey), url.PathEscape(repoSlug))
	if id == 0 {
		return base
	}
	return fmt.Sprintf("%s/%d", base, id)
}
