package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"bioask/pkg/ai/providers"
	"bioask/pkg/chat"
	"bioask/pkg/config"
	"bioask/pkg/discovery"
	"bioask/pkg/logging"
	"bioask/pkg/session"
	"bioask/pkg/ui"
	"bioask/pkg/ui/render"

	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	secretsPath string
	envFile     string
	model       string
	level       string
	logLevel    string
	stderr      io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stderr: stderr}

	cmd := &cobra.Command{
		Use:           "bioask",
		Short:         "Interactive biology Q&A assistant backed by a local LLM",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.secretsPath, "secrets", "", "path to secrets.toml (default: .streamlit/secrets.toml, ./secrets.toml, ~/.bioask/secrets.toml)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "path to a .env file")
	flags.StringVarP(&opts.model, "model", "m", "", "model name (default: first model listed by the discovery command)")
	flags.StringVarP(&opts.level, "level", "l", "", "explain level: middle-school, high-school or undergraduate")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn or error")

	cmd.AddCommand(newAskCmd(opts), newServeCmd(opts), newVersionCmd())
	return cmd
}

// app holds the wiring shared by the commands.
type app struct {
	cfg        config.Config
	logger     *slog.Logger
	service    *chat.Service
	discoverer *discovery.Discoverer
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		SecretsPath: o.secretsPath,
		EnvFile:     o.envFile,
	})
	if err != nil {
		return config.Config{}, err
	}
	if o.model != "" {
		cfg.Model = o.model
	}
	if o.level != "" {
		cfg.ExplainLevel = o.level
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newApp(o *rootOptions) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.Init(cfg)
	if err != nil {
		fmt.Fprintf(o.stderr, "Warning: file logging disabled: %v\n", err)
	}

	provider, err := providers.NewLocalProvider(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("bioask_start",
		"endpoint", cfg.LocalLLMURL,
		"model", cfg.Model,
		"explain_level", cfg.ExplainLevel,
	)

	return &app{
		cfg:        cfg,
		logger:     logger,
		service:    chat.NewService(provider, cfg, logger),
		discoverer: discovery.New(cfg.Discovery, nil, logger),
	}, nil
}

// settings resolves the initial session settings. A configured model wins
// over the discovered default.
func (a *app) settings(ctx context.Context) (session.Settings, []string) {
	discovered, models := a.discoverer.Discover(ctx)
	model := strings.TrimSpace(a.cfg.Model)
	if model == "" {
		model = discovered
	}
	return session.Settings{Model: model, ExplainLevel: a.cfg.Level()}, models
}

func runTUI(ctx context.Context, o *rootOptions) error {
	a, err := newApp(o)
	if err != nil {
		return err
	}
	settings, models := a.settings(ctx)

	return ui.Run(ctx, ui.Options{
		Service:  a.service,
		Session:  session.New(settings),
		Endpoint: a.cfg.LocalLLMURL,
		Models:   models,
		Markdown: render.NewMarkdownRenderer(""),
	})
}
