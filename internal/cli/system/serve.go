package system

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/rhythm/internal/api"
	"github.com/julianstephens/rhythm/internal/cli"
	"github.com/julianstephens/rhythm/internal/jobs"
	"github.com/julianstephens/rhythm/internal/logger"
	"github.com/julianstephens/rhythm/internal/mcp"
)

// ServeCmd runs the HTTP API together with the periodic sync and
// optimization jobs.
type ServeCmd struct {
	Addr   string `help:"Listen address. Defaults to RHYTHM_HTTP_ADDR."`
	NoJobs bool   `help:"Do not run periodic sync and optimization jobs." name:"no-jobs"`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	prefs, err := ctx.Preferences()
	if err != nil {
		return err
	}

	client, cache, err := ctx.OpenOptimizer()
	if err != nil {
		return err
	}
	defer cache.Close()

	if !c.NoJobs {
		runner := jobs.New()
		if ctx.Config.RemoteEnabled() {
			syncer, closeRemote, err := ctx.OpenSyncer(ctx.Context())
			if err != nil {
				return err
			}
			defer closeRemote()
			if err := runner.AddSync(ctx.Config.SyncSchedule, syncer); err != nil {
				return err
			}
		}
		if ctx.Config.AdvisoryEnabled() {
			if err := runner.AddOptimize(ctx.Config.OptimizeSchedule, prefs.Timezone, ctx.Store, client); err != nil {
				return err
			}
		}
		runner.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			runner.Stop(stopCtx)
		}()
	}

	addr := c.Addr
	if addr == "" {
		addr = ctx.Config.HTTPAddr
	}
	ctx.Printf("Serving rhythm API on http://%s\n", addr)
	if err := api.NewServer(ctx.Planner, client, prefs.Timezone).Serve(ctx.Context(), addr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info("HTTP API stopped")
	return nil
}

// MCPCmd serves the planner as MCP tools over stdio.
type MCPCmd struct{}

func (c *MCPCmd) Run(ctx *cli.Context) error {
	prefs, err := ctx.Preferences()
	if err != nil {
		return err
	}
	client, cache, err := ctx.OpenOptimizer()
	if err != nil {
		return err
	}
	defer cache.Close()

	return mcp.NewServer(ctx.Planner, client, prefs.Timezone).Serve(ctx.Context())
}
