// bbs-cli is a command line client for a Bitbucket Server instance.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/step-chen/bitbucket-server-go/internal/bitbucket"
	"github.com/step-chen/bitbucket-server-go/internal/config"
)

type mainCmd struct {
	Config  string `short:"c" help:"Path to the configuration file." type:"path"`
	Format  string `help:"Output format." enum:"text,json,yaml" default:"text"`
	Verbose bool   `short:"v" help:"Enable debug logging."`

	Auth  authCmd  `cmd:"" help:"Authentication commands."`
	Repo  repoCmd  `cmd:"" help:"Repository commands."`
	PR    prCmd    `cmd:"" name:"pr" help:"Pull request commands."`
	Issue issueCmd `cmd:"" help:"Issue commands."`
	Admin adminCmd `cmd:"" help:"Server environment commands."`
}

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level: log.InfoLevel,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	go func() {
		select {
		case <-sigc:
			logger.Info("Interrupted, aborting. Press Ctrl-C again to exit immediately.")
			cancel()
		case <-ctx.Done():
		}
	}()

	var cmd mainCmd
	parser, err := kong.New(&cmd,
		kong.Name("bbs-cli"),
		kong.Description("bbs-cli talks to a Bitbucket Server REST API."),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	if err != nil {
		panic(err)
	}

	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if cmd.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	cfg, err := config.LoadConfig(cmd.Config)
	if err != nil {
		logger.Fatal("Failed to load configuration", "error", err)
	}
	if !cmd.Verbose {
		logger.SetLevel(parseLogLevel(cfg.Log.Level))
	}
	if cfg.Log.Format == "json" {
		logger.SetFormatter(log.JSONFormatter)
	}

	client, err := bitbucket.NewClient(bitbucket.Options{
		BaseURL:        cfg.Bitbucket.BaseURL,
		Token:          cfg.Bitbucket.APIToken,
		Username:       cfg.Bitbucket.Username,
		Password:       cfg.Bitbucket.Password,
		Timeout:        cfg.Bitbucket.Timeout,
		MaxRetries:     cfg.Bitbucket.MaxRetries,
		InitialBackoff: cfg.Bitbucket.InitialBackoff,
		PageSize:       cfg.Bitbucket.PageSize,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("Failed to create Bitbucket client", "error", err)
	}

	renderer := &renderer{format: cmd.Format, out: os.Stdout}

	if err := kctx.Run(cfg, client, logger, renderer); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func parseLogLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
