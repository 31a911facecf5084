package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/julianstephens/rhythm/internal/constants"
	apperrors "github.com/julianstephens/rhythm/internal/errors"
	"github.com/julianstephens/rhythm/internal/utils"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_week",
		Description: "Get the weekly plan containing a date, with per-day timelines and weekly stats",
	}, s.handleGetWeek)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "generate_week",
		Description: "Regenerate the weekly plan containing a date. Discards completion state for that week.",
	}, s.handleGenerateWeek)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_day",
		Description: "Get the timeline for one day",
	}, s.handleGetDay)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "complete_block",
		Description: "Mark a workout or meal block as completed",
	}, s.handleComplete)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "skip_block",
		Description: "Mark a workout or meal block as skipped",
	}, s.handleSkip)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "reschedule_block",
		Description: "Move a flexible block to a new start time on the same day",
	}, s.handleReschedule)

	if s.advisor != nil {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        "optimize_week",
			Description: "Get advisory guidance and local suggestions for the week containing a date",
		}, s.handleOptimize)
	}
}

type dateInput struct {
	Date string `json:"date,omitempty" jsonschema:"Date as YYYY-MM-DD or today. Defaults to today."`
}

type blockInput struct {
	Date    string `json:"date,omitempty" jsonschema:"Date as YYYY-MM-DD or today. Defaults to today."`
	BlockID string `json:"block_id" jsonschema:"ID of the block"`
}

type rescheduleInput struct {
	Date    string `json:"date,omitempty" jsonschema:"Date as YYYY-MM-DD or today. Defaults to today."`
	BlockID string `json:"block_id" jsonschema:"ID of the block to move"`
	Start   string `json:"start" jsonschema:"New start time as HH:MM"`
}

func (s *Server) resolveDate(date string) (string, error) {
	return utils.ResolveDate(date, s.timezone)
}

func (s *Server) resolveWeek(date string) (string, error) {
	resolved, err := s.resolveDate(date)
	if err != nil {
		return "", err
	}
	d, err := utils.ParseDate(resolved)
	if err != nil {
		return "", err
	}
	return utils.WeekStart(d).Format(constants.DateFormat), nil
}

func (s *Server) handleGetWeek(ctx context.Context, req *mcp.CallToolRequest, input dateInput) (*mcp.CallToolResult, any, error) {
	weekStart, err := s.resolveWeek(input.Date)
	if err != nil {
		return nil, nil, err
	}
	plan, err := s.planner.Load(weekStart)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil, fmt.Errorf("no plan for the week of %s; call generate_week first", weekStart)
	}
	if err != nil {
		return nil, nil, err
	}
	return nil, plan, nil
}

func (s *Server) handleGenerateWeek(ctx context.Context, req *mcp.CallToolRequest, input dateInput) (*mcp.CallToolResult, any, error) {
	weekStart, err := s.resolveWeek(input.Date)
	if err != nil {
		return nil, nil, err
	}
	plan, err := s.planner.Regenerate(ctx, weekStart)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate week %s: %w", weekStart, err)
	}
	return nil, plan, nil
}

func (s *Server) handleGetDay(ctx context.Context, req *mcp.CallToolRequest, input dateInput) (*mcp.CallToolResult, any, error) {
	date, err := s.resolveDate(input.Date)
	if err != nil {
		return nil, nil, err
	}
	day, err := s.planner.Day(date)
	if err != nil {
		return nil, nil, err
	}
	return nil, day, nil
}

func (s *Server) handleComplete(ctx context.Context, req *mcp.CallToolRequest, input blockInput) (*mcp.CallToolResult, any, error) {
	date, err := s.resolveDate(input.Date)
	if err != nil {
		return nil, nil, err
	}
	day, err := s.planner.MarkComplete(ctx, input.BlockID, date)
	if err != nil {
		return nil, nil, err
	}
	return nil, day, nil
}

func (s *Server) handleSkip(ctx context.Context, req *mcp.CallToolRequest, input blockInput) (*mcp.CallToolResult, any, error) {
	date, err := s.resolveDate(input.Date)
	if err != nil {
		return nil, nil, err
	}
	day, err := s.planner.Skip(ctx, input.BlockID, date)
	if err != nil {
		return nil, nil, err
	}
	return nil, day, nil
}

func (s *Server) handleReschedule(ctx context.Context, req *mcp.CallToolRequest, input rescheduleInput) (*mcp.CallToolResult, any, error) {
	date, err := s.resolveDate(input.Date)
	if err != nil {
		return nil, nil, err
	}
	start, err := utils.ParseClock(input.Start)
	if err != nil {
		return nil, nil, err
	}
	day, err := s.planner.Reschedule(ctx, input.BlockID, date, start)
	if err != nil {
		return nil, nil, err
	}
	return nil, day, nil
}

func (s *Server) handleOptimize(ctx context.Context, req *mcp.CallToolRequest, input dateInput) (*mcp.CallToolResult, any, error) {
	weekStart, err := s.resolveWeek(input.Date)
	if err != nil {
		return nil, nil, err
	}
	plan, err := s.planner.Load(weekStart)
	if err != nil {
		return nil, nil, err
	}
	guidance, err := s.advisor.RequestOptimization(ctx, plan)
	if err != nil && !errors.Is(err, apperrors.ErrSyncUnavailable) {
		return nil, nil, err
	}
	return nil, guidance, nil
}
