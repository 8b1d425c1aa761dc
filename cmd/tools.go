package main

import (
	"context"

	"github.com/desertthunder/spx/internal/tools"
	"github.com/urfave/cli/v3"
)

// ToolsList prints the tool catalog the server exposes to MCP hosts.
func (r *Runner) ToolsList(ctx context.Context, cmd *cli.Command) error {
	catalog := tools.Catalog()

	if cmd.Bool("json") {
		return r.writeJSON(catalog, cmd.Bool("pretty"))
	}

	r.writePlain("%s\n", r.palette.Title("Available tools"))
	for _, tool := range catalog {
		r.writePlain("%s\n", r.palette.OK(tool.Name))
		r.writePlain("  %s\n\n", r.palette.Help(tool.Description))
	}
	r.writePlain("%d tools registered\n", len(catalog))
	return nil
}
