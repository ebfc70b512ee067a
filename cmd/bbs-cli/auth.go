package main

import (
	"context"
	"fmt"
	"io"

	"github.com/step-chen/bitbucket-server-go/internal/bitbucket"
	"github.com/step-chen/bitbucket-server-go/internal/config"
)

type authCmd struct {
	Status authStatusCmd `cmd:"" help:"Check whether the configured credential is accepted."`
}

type authStatusCmd struct{}

func (cmd *authStatusCmd) Run(ctx context.Context, cfg *config.Config, client *bitbucket.Client, r *renderer) error {
	status, err := client.Health(ctx)
	if err != nil {
		return err
	}
	if err := r.render(status, func(w io.Writer) error {
		if status.Authenticated {
			return r.printf(w, "Authenticated against %s (server version %s)\n", client.BaseURL(), orUnknown(status.Version))
		}
		return r.printf(w, "%s is reachable but the credential was rejected (HTTP %d)\n", client.BaseURL(), status.StatusCode)
	}); err != nil {
		return err
	}
	if !status.Authenticated {
		return fmt.Errorf("authentication failed")
	}
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
