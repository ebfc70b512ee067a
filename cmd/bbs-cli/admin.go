package main

import (
	"context"
	"fmt"
	"io"

	"github.com/step-chen/bitbucket-server-go/internal/bitbucket"
	"github.com/step-chen/bitbucket-server-go/internal/config"
)

type adminCmd struct {
	Health adminHealthCmd `cmd:"" help:"Probe server reachability and credentials."`
	Info   adminInfoCmd   `cmd:"" help:"Show the server's build information."`
}

type adminHealthCmd struct{}

func (cmd *adminHealthCmd) Run(ctx context.Context, cfg *config.Config, client *bitbucket.Client, r *renderer) error {
	status, err := client.Health(ctx)
	if err != nil {
		return err
	}
	if err := r.render(status, func(w io.Writer) error {
		return r.printf(w, "%s\n", status.Message)
	}); err != nil {
		return err
	}
	if !status.Healthy || !status.Authenticated {
		return fmt.Errorf("health check failed")
	}
	if status.Version != "" && cfg.Bitbucket.VersionTarget != "" && status.Version != cfg.Bitbucket.VersionTarget {
		return fmt.Errorf("server version %s does not match expected %s", status.Version, cfg.Bitbucket.VersionTarget)
	}
	return nil
}

type adminInfoCmd struct{}

func (cmd *adminInfoCmd) Run(ctx context.Context, cfg *config.Config, client *bitbucket.Client, r *renderer) error {
	props, err := client.ServerInfo(ctx)
	if err != nil {
		return err
	}
	return r.render(props, func(w io.Writer) error {
		write := func(label string, value *string) error {
			if value == nil {
				return nil
			}
			return r.printf(w, "%s:\t%s\n", label, *value)
		}
		if err := write("Name", props.DisplayName); err != nil {
			return err
		}
		if err := write("Version", props.Version); err != nil {
			return err
		}
		if err := write("Build", props.BuildNumber); err != nil {
			return err
		}
		return write("Built", props.BuildDate)
	})
}
