package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/auth"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tools"
	"github.com/desertthunder/spx/internal/ui"
	"github.com/desertthunder/spx/internal/widget"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config   *shared.Config
	spotify  *services.SpotifyService
	sessions auth.SessionStore
	pending  auth.PendingStore
	renderer *widget.Renderer
	logger   *log.Logger
	output   io.Writer
	palette  *ui.Palette
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config   *shared.Config
	Spotify  *services.SpotifyService
	Sessions auth.SessionStore
	Pending  auth.PendingStore
	Renderer *widget.Renderer
	Logger   *log.Logger
	Output   io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Sessions == nil {
		opts.Sessions = auth.NewMemorySessionStore()
	}
	if opts.Pending == nil {
		opts.Pending = auth.NewMemoryPendingStore()
	}

	return &Runner{
		config:   opts.Config,
		spotify:  opts.Spotify,
		sessions: opts.Sessions,
		pending:  opts.Pending,
		renderer: opts.Renderer,
		logger:   opts.Logger,
		output:   opts.Output,
		palette:  ui.DefaultPalette(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, authCommand, setupCommand, toolsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// dispatcher builds a tool dispatcher from the Runner's dependencies.
func (r *Runner) dispatcher() *tools.Dispatcher {
	return tools.NewDispatcher(tools.DispatcherOpts{
		Spotify:  r.spotify,
		Sessions: r.sessions,
		Pending:  r.pending,
		Renderer: r.renderer,
		Logger:   r.logger,
	})
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
