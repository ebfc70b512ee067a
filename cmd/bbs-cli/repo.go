package main

import (
	"context"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/step-chen/bitbucket-server-go/internal/bitbucket"
	"github.com/step-chen/bitbucket-server-go/internal/concurrency"
	"github.com/step-chen/bitbucket-server-go/internal/config"
)

type repoCmd struct {
	List     repoListCmd     `cmd:"" help:"List repositories in one or more projects."`
	Browse   repoBrowseCmd   `cmd:"" help:"List the contents of a repository directory."`
	Cat      repoCatCmd      `cmd:"" help:"Print the raw contents of a file."`
	Webhooks repoWebhooksCmd `cmd:"" help:"List the webhooks registered on a repository."`
}

type repoListCmd struct {
	Projects []string `arg:"" optional:"" help:"Project keys to list. Defaults to the configured project."`
}

func (cmd *repoListCmd) Run(ctx context.Context, cfg *config.Config, client *bitbucket.Client, logger *log.Logger, r *renderer) error {
	projects := cmd.Projects
	if len(projects) == 0 {
		projects = []string{cfg.Bitbucket.ProjectKey}
	}

	var mu sync.Mutex
	var repos []bitbucket.Repository
	err := concurrency.ForEach(ctx, cfg.Concurrency.Workers, projects, func(ctx context.Context, key string) error {
		fetched, err := bitbucket.Collect(client.ListRepositories(ctx, key))
		if err != nil {
			logger.Error("Failed to list repositories", "project", key, "error", err)
			return err
		}
		mu.Lock()
		repos = append(repos, fetched...)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return err
	}

	sort.Slice(repos, func(i, j int) bool {
		if repos[i].Project.Key != repos[j].Project.Key {
			return repos[i].Project.Key < repos[j].Project.Key
		}
		return repos[i].Slug < repos[j].Slug
	})

	return r.render(repos, func(w io.Writer) error {
		for _, repo := range repos {
			if err := r.printf(w, "%s/%s\t%s\t%s\n", repo.Project.Key, repo.Slug, repo.State, repo.Name); err != nil {
				return err
			}
		}
		return nil
	})
}

type repoBrowseCmd struct {
	Repo string `arg:"" help:"Repository slug."`
	Path string `arg:"" optional:"" help:"Directory path within the repository."`

	Project string `short:"p" help:"Project key. Defaults to the configured project."`
	At      string `help:"Ref to browse, e.g. refs/heads/main. Defaults to the default branch."`
}

func (cmd *repoBrowseCmd) Run(ctx context.Context, cfg *config.Config, client *bitbucket.Client, r *renderer) error {
	project := projectOrDefault(cmd.Project, cfg)
	entries, err := bitbucket.Collect(client.Browse(ctx, project, cmd.Repo, cmd.At, cmd.Path))
	if err != nil {
		return err
	}
	return r.render(entries, func(w io.Writer) error {
		for _, entry := range entries {
			name := ""
			if entry.Path.ToString != nil {
				name = *entry.Path.ToString
			} else if entry.Path.Name != nil {
				name = *entry.Path.Name
			}
			if entry.Type == "DIRECTORY" && !strings.HasSuffix(name, "/") {
				name += "/"
			}
			if err := r.printf(w, "%s\n", name); err != nil {
				return err
			}
		}
		return nil
	})
}

type repoCatCmd struct {
	Repo string `arg:"" help:"Repository slug."`
	Path string `arg:"" help:"File path within the repository."`

	Project string `short:"p" help:"Project key. Defaults to the configured project."`
	At      string `help:"Ref to read from. Defaults to the default branch."`
	Hash    bool   `help:"Print the content hash instead of the content."`
}

func (cmd *repoCatCmd) Run(ctx context.Context, cfg *config.Config, client *bitbucket.Client, r *renderer) error {
	project := projectOrDefault(cmd.Project, cfg)
	content, hash, err := client.RawContent(ctx, project, cmd.Repo, cmd.At, cmd.Path)
	if err != nil {
		return err
	}
	if cmd.Hash {
		_, err := os.Stdout.WriteString(hash + "\n")
		return err
	}
	_, err = os.Stdout.Write(content)
	return err
}

type repoWebhooksCmd struct {
	Repo string `arg:"" help:"Repository slug."`

	Project string `short:"p" help:"Project key. Defaults to the configured project."`
}

func (cmd *repoWebhooksCmd) Run(ctx context.Context, cfg *config.Config, client *bitbucket.Client, r *renderer) error {
	project := projectOrDefault(cmd.Project, cfg)
	hooks, err := bitbucket.Collect(client.ListWebhooks(ctx, project, cmd.Repo))
	if err != nil {
		return err
	}
	return r.render(hooks, func(w io.Writer) error {
		for _, hook := range hooks {
			state := "active"
			if !hook.Active {
				state = "inactive"
			}
			events := make([]string, len(hook.Events))
			for i, event := range hook.Events {
				events[i] = string(event)
			}
			if err := r.printf(w, "#%d\t%s\t%s\t%s\t[%s]\n", hook.ID, state, hook.Name, hook.URL, strings.Join(events, ", ")); err != nil {
				return err
			}
		}
		return nil
	})
}

func projectOrDefault(project string, cfg *config.Config) string {
	if project != "" {
		return project
	}
	return cfg.Bitbucket.ProjectKey
}
