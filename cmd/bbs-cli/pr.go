package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/step-chen/bitbucket-server-go/internal/bitbucket"
	"github.com/step-chen/bitbucket-server-go/internal/config"
	"github.com/step-chen/bitbucket-server-go/internal/utils"
)

type prCmd struct {
	List       prListCmd       `cmd:"" help:"List pull requests of a repository."`
	Show       prShowCmd       `cmd:"" help:"Show one pull request."`
	Comments   prCommentsCmd   `cmd:"" help:"Show the comment threads of a pull request."`
	Activities prActivitiesCmd `cmd:"" help:"Show the activity stream of a pull request."`
	Merge      prMergeCmd      `cmd:"" help:"Merge an open pull request."`
	Decline    prDeclineCmd    `cmd:"" help:"Decline an open pull request."`
	Comment    prCommentCmd    `cmd:"" help:"Add a comment to a pull request."`
}

type prRepoArgs struct {
	Repo string `arg:"" help:"Repository slug."`

	Project string `short:"p" help:"Project key. Defaults to the configured project."`
}

type prListCmd struct {
	prRepoArgs

	State string `help:"Filter by state." enum:"OPEN,MERGED,DECLINED,ALL,open,merged,declined,all" default:"OPEN"`
	At    string `help:"Filter by target ref, e.g. refs/heads/main."`
}

func (cmd *prListCmd) Run(ctx context.Context, cfg *config.Config, client *bitbucket.Client, r *renderer) error {
	project := projectOrDefault(cmd.Project, cfg)
	filter := bitbucket.PullRequestFilter{
		State: strings.ToUpper(cmd.State),
		At:    cmd.At,
	}
	prs, err := bitbucket.Collect(client.ListPullRequests(ctx, project, cmd.Repo, filter))
	if err != nil {
		return err
	}
	return r.render(prs, func(w io.Writer) error {
		for _, pr := range prs {
			if err := r.printf(w, "#%d\t%s\t%s -> %s\t%s\n",
				pr.ID, pr.State, pr.FromRef.DisplayID, pr.ToRef.DisplayID, pr.Title); err != nil {
				return err
			}
		}
		return nil
	})
}

type prShowCmd struct {
	prRepoArgs
	ID int64 `arg:"" help:"Pull request id."`
}

func (cmd *prShowCmd) Run(ctx context.Context, cfg *config.Config, client *bitbucket.Client, r *renderer) error {
	project := projectOrDefault(cmd.Project, cfg)
	pr, err := client.GetPullRequest(ctx, project, cmd.Repo, cmd.ID)
	if err != nil {
		return err
	}
	return r.render(pr, func(w io.Writer) error {
		if err := r.printf(w, "%s\n", pr); err != nil {
			return err
		}
		if err := r.printf(w, "  %s -> %s (version %d)\n", pr.FromRef.DisplayID, pr.ToRef.DisplayID, pr.Version); err != nil {
			return err
		}
		if err := r.printf(w, "  updated %s\n", formatEpochMillis(pr.UpdatedDate)); err != nil {
			return err
		}
		for _, reviewer := range pr.Reviewers {
			if err := r.printf(w, "  reviewer %s: %s\n", reviewer.User.DisplayName, reviewer.Status); err != nil {
				return err
			}
		}
		if pr.Description != nil {
			if err := r.printf(w, "\n%s\n", *pr.Description); err != nil {
				return err
			}
		}
		return nil
	})
}

type prCommentsCmd struct {
	prRepoArgs
	ID int64 `arg:"" help:"Pull request id."`
}

func (cmd *prCommentsCmd) Run(ctx context.Context, cfg *config.Config, client *bitbucket.Client, r *renderer) error {
	project := projectOrDefault(cmd.Project, cfg)
	threads, err := client.ListComments(ctx, project, cmd.Repo, cmd.ID)
	if err != nil {
		return err
	}
	return r.render(threads, func(w io.Writer) error {
		for _, thread := range threads {
			if err := writeCommentTree(r, w, thread, 0); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeCommentTree(r *renderer, w io.Writer, comment *bitbucket.Comment, depth int) error {
	indent := strings.Repeat("  ", depth)
	author := "(unknown)"
	if comment.Author != nil {
		author = comment.Author.DisplayName
	}
	text := ""
	switch {
	case comment.HTML != nil:
		text = utils.RenderCommentHTML(*comment.HTML)
	case comment.Text != nil:
		text = *comment.Text
	}
	text = strings.ReplaceAll(text, "\n", "\n"+indent+"  ")
	if err := r.printf(w, "%s%s: %s\n", indent, author, text); err != nil {
		return err
	}
	for _, reply := range comment.Comments {
		if err := writeCommentTree(r, w, reply, depth+1); err != nil {
			return err
		}
	}
	return nil
}

type prActivitiesCmd struct {
	prRepoArgs
	ID int64 `arg:"" help:"Pull request id."`
}

func (cmd *prActivitiesCmd) Run(ctx context.Context, cfg *config.Config, client *bitbucket.Client, r *renderer) error {
	project := projectOrDefault(cmd.Project, cfg)
	activities, err := bitbucket.Collect(client.ListActivities(ctx, project, cmd.Repo, cmd.ID))
	if err != nil {
		return err
	}
	return r.render(activities, func(w io.Writer) error {
		for _, activity := range activities {
			detail := ""
			if activity.CommentAction != nil {
				detail = fmt.Sprintf(" (%s)", *activity.CommentAction)
			}
			if err := r.printf(w, "%s\t%s\t%s%s\n",
				formatEpochMillis(activity.CreatedDate), activity.User.DisplayName, activity.Action, detail); err != nil {
				return err
			}
		}
		return nil
	})
}

type prMergeCmd struct {
	prRepoArgs
	ID int64 `arg:"" help:"Pull request id."`

	Version int `help:"Expected pull request version. Fetched automatically when negative." default:"-1"`
}

func (cmd *prMergeCmd) Run(ctx context.Context, cfg *config.Config, client *bitbucket.Client, r *renderer) error {
	return transition(ctx, cfg, client, r, cmd.prRepoArgs, cmd.ID, cmd.Version, client.MergePullRequest)
}

type prDeclineCmd struct {
	prRepoArgs
	ID int64 `arg:"" help:"Pull request id."`

	Version int `help:"Expected pull request version. Fetched automatically when negative." default:"-1"`
}

func (cmd *prDeclineCmd) Run(ctx context.Context, cfg *config.Config, client *bitbucket.Client, r *renderer) error {
	return transition(ctx, cfg, client, r, cmd.prRepoArgs, cmd.ID, cmd.Version, client.DeclinePullRequest)
}

func transition(
	ctx context.Context,
	cfg *config.Config,
	client *bitbucket.Client,
	r *renderer,
	args prRepoArgs,
	id int64,
	version int,
	apply func(context.Context, string, string, int64, int) (*bitbucket.PullRequest, error),
) error {
	project := projectOrDefault(args.Project, cfg)
	if version < 0 {
		current, err := client.GetPullRequest(ctx, project, args.Repo, id)
		if err != nil {
			return err
		}
		version = current.Version
	}
	pr, err := apply(ctx, project, args.Repo, id, version)
	if err != nil {
		return err
	}
	return r.render(pr, func(w io.Writer) error {
		return r.printf(w, "%s\n", pr)
	})
}

type prCommentCmd struct {
	prRepoArgs
	ID   int64  `arg:"" help:"Pull request id."`
	Text string `arg:"" help:"Comment text."`

	ReplyTo *int64 `help:"Comment id to reply to."`
}

func (cmd *prCommentCmd) Run(ctx context.Context, cfg *config.Config, client *bitbucket.Client, r *renderer) error {
	project := projectOrDefault(cmd.Project, cfg)
	comment, err := client.AddComment(ctx, project, cmd.Repo, cmd.ID, cmd.Text, cmd.ReplyTo)
	if err != nil {
		return err
	}
	return r.render(comment, func(w io.Writer) error {
		if comment.ID != nil {
			return r.printf(w, "Added comment #%d\n", *comment.ID)
		}
		return r.printf(w, "Added comment\n")
	})
}

func formatEpochMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
