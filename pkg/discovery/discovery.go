package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"bioask/pkg/config"
)

// Runner executes the model-listing command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s timed out: %w", name, ctxErr)
		}
		return nil, err
	}
	return out, nil
}

// Discoverer detects the default model of a local model server.
type Discoverer struct {
	runner   Runner
	command  string
	args     []string
	timeout  time.Duration
	fallback string
	logger   *slog.Logger
}

// New creates a Discoverer from the discovery section of the config.
// A nil runner uses ExecRunner; a nil logger uses slog.Default().
func New(cfg config.DiscoveryConfig, runner Runner, logger *slog.Logger) *Discoverer {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	defaults := config.Default().Discovery

	command := strings.TrimSpace(cfg.Command)
	args := cfg.Args
	if command == "" {
		command = defaults.Command
		args = defaults.Args
	}
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = defaults.TimeoutSeconds
	}
	fallback := strings.TrimSpace(cfg.FallbackModel)
	if fallback == "" {
		fallback = defaults.FallbackModel
	}

	return &Discoverer{
		runner:   runner,
		command:  command,
		args:     append([]string(nil), args...),
		timeout:  time.Duration(timeout) * time.Second,
		fallback: fallback,
		logger:   logger,
	}
}

// Fallback returns the model used when discovery fails.
func (d *Discoverer) Fallback() string {
	return d.fallback
}

// DefaultModel returns the first model listed by the local server, or the
// fallback when listing fails for any reason. It never returns an error.
func (d *Discoverer) DefaultModel(ctx context.Context) string {
	model, _ := d.Discover(ctx)
	return model
}

// Discover runs the listing command once and returns the default model with
// the full list. On failure the list is empty and the default is the fallback.
func (d *Discoverer) Discover(ctx context.Context) (string, []string) {
	models, err := d.Models(ctx)
	if err != nil {
		d.logger.Debug("discovery_fallback", "command", d.command, "fallback", d.fallback, "error", err)
		return d.fallback, nil
	}
	d.logger.Debug("discovery_model", "command", d.command, "model", models[0], "count", len(models))
	return models[0], models
}

// Models lists the installed models. It fails if the command fails or lists nothing.
func (d *Discoverer) Models(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	out, err := d.runner.Run(ctx, d.command, d.args...)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", d.command, err)
	}

	models := ParseModelList(string(out))
	if len(models) == 0 {
		return nil, errNoModels
	}
	return models, nil
}

var errNoModels = errors.New("no models listed")

// ParseModelList extracts model names from `ollama list` style output: a
// header row followed by one row per model, name first.
func ParseModelList(output string) []string {
	var models []string
	lines := strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if i == 0 || strings.HasPrefix(trimmed, "NAME") {
			continue
		}
		fields := strings.Fields(trimmed)
		models = append(models, fields[0])
	}
	return models
}
