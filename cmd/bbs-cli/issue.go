package main

import (
	"context"
	"io"

	"github.com/step-chen/bitbucket-server-go/internal/bitbucket"
	"github.com/step-chen/bitbucket-server-go/internal/config"
)

type issueCmd struct {
	List issueListCmd `cmd:"" help:"List the Jira issues linked to a pull request."`
}

type issueListCmd struct {
	Repo string `arg:"" help:"Repository slug."`
	ID   int64  `arg:"" help:"Pull request id."`

	Project string `short:"p" help:"Project key. Defaults to the configured project."`
}

func (cmd *issueListCmd) Run(ctx context.Context, cfg *config.Config, client *bitbucket.Client, r *renderer) error {
	project := projectOrDefault(cmd.Project, cfg)
	issues, err := client.ListPullRequestIssues(ctx, project, cmd.Repo, cmd.ID)
	if err != nil {
		return err
	}
	return r.render(issues, func(w io.Writer) error {
		for _, issue := range issues {
			if err := r.printf(w, "%s\t%s\n", issue.Key, issue.URL); err != nil {
				return err
			}
		}
		return nil
	})
}
