// Package mcp exposes the forecaster and the rule engine as tools over the
// Model Context Protocol. The transport is stdio; all logging stays on
// stderr and the rotating file so stdout carries only protocol frames.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"riskcast/internal/config"
	"riskcast/internal/domain"
	"riskcast/internal/eventlog"
	"riskcast/internal/rules"
)

// Server holds the state shared by all tool handlers: the loaded portfolio,
// the rule engine over it and the persistent event journal.
type Server struct {
	cfg *config.AppConfig

	mu      sync.RWMutex
	path    string
	engine  *rules.Engine
	journal *eventlog.Store
}

// NewServer creates a server with no portfolio loaded. Every analytical tool
// demands a load_portfolio call first.
func NewServer(cfg *config.AppConfig) *Server {
	return &Server{cfg: cfg}
}

// Run registers the tools and serves MCP over stdio until the context is
// cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context, version string) error {
	srv := sdk.NewServer(&sdk.Implementation{
		Name:    "riskcast",
		Title:   "Dependency-aware schedule forecaster",
		Version: version,
	}, nil)
	s.register(srv)

	log.Info().Str("version", version).Msg("MCP server listening on stdio")
	return srv.Run(ctx, &sdk.StdioTransport{})
}

// current returns the loaded portfolio state or an instructive error.
func (s *Server) current() (*rules.Engine, *eventlog.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.engine == nil {
		return nil, nil, fmt.Errorf("no portfolio loaded; call load_portfolio first")
	}
	return s.engine, s.journal, nil
}

// textResult renders a payload as indented JSON, which is what MCP clients
// show the model.
func textResult(v any) (*sdk.CallToolResult, any, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: string(out)}},
	}, nil, nil
}

// errorResult reports a failure as a structured tool error so callers can
// pinpoint the offending entity or retry with reduced parameters.
func errorResult(err error) (*sdk.CallToolResult, any, error) {
	payload := map[string]any{"error": err.Error()}

	var cyc *domain.CircularDependencyError
	var est *domain.InvalidEstimateError
	var lim *domain.SimulationLimitExceededError
	var val *domain.ValidationError
	switch {
	case errors.As(err, &cyc):
		payload["type"] = "circular_dependency"
		payload["cycle"] = cyc.Cycle
	case errors.As(err, &est):
		payload["type"] = "invalid_estimate"
		payload["work_item_id"] = est.WorkItemID
	case errors.As(err, &lim):
		payload["type"] = "simulation_limit_exceeded"
		payload["requested"] = lim.Requested
		payload["max_allowed"] = lim.MaxAllowed
	case errors.As(err, &val):
		payload["type"] = "validation"
		payload["entity_kind"] = val.EntityKind
		payload["entity_id"] = val.EntityID
	}

	out, mErr := json.MarshalIndent(payload, "", "  ")
	if mErr != nil {
		out = []byte(err.Error())
	}
	return &sdk.CallToolResult{
		IsError: true,
		Content: []sdk.Content{&sdk.TextContent{Text: string(out)}},
	}, nil, nil
}
