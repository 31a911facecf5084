// Package mcp exposes the planner as Model Context Protocol tools over
// stdio.
package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/julianstephens/rhythm/internal/constants"
	"github.com/julianstephens/rhythm/internal/models"
	"github.com/julianstephens/rhythm/internal/optimizer"
)

type Planner interface {
	Load(weekStart string) (models.WeeklyPlan, error)
	Day(date string) (models.DailyTimeline, error)
	MarkComplete(ctx context.Context, blockID, date string) (models.DailyTimeline, error)
	Skip(ctx context.Context, blockID, date string) (models.DailyTimeline, error)
	Reschedule(ctx context.Context, blockID, date string, newStart int) (models.DailyTimeline, error)
	Regenerate(ctx context.Context, weekStart string) (models.WeeklyPlan, error)
}

type Advisor interface {
	RequestOptimization(ctx context.Context, plan models.WeeklyPlan) (optimizer.Guidance, error)
}

type Server struct {
	mcpServer *mcp.Server
	planner   Planner
	advisor   Advisor
	timezone  string
}

// NewServer registers every tool. A nil advisor leaves out the optimize
// tool.
func NewServer(planner Planner, advisor Advisor, timezone string) *Server {
	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: constants.AppName, Version: constants.Version}, nil),
		planner:   planner,
		advisor:   advisor,
		timezone:  timezone,
	}
	s.registerTools()
	return s
}

// Serve runs the server on stdio until the client disconnects or ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
