package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/richardwooding/freshrss-mcp/cmd"
	"github.com/richardwooding/freshrss-mcp/model"
	"github.com/richardwooding/freshrss-mcp/version"
)

// CLI is the top-level command structure.
type CLI struct {
	model.Globals

	Run cmd.RunCmd `cmd:"" default:"withargs" help:"Run the FreshRSS MCP server."`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("freshrss-mcp"),
		kong.Description("MCP server exposing a FreshRSS account to AI agents."),
		kong.UsageOnError(),
		kong.Vars{"version": version.GetVersion()},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	kctx.FatalIfErrorf(kctx.Run(&cli.Globals))
}
