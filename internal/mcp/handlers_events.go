package mcp

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"riskcast/internal/rules"
)

func (s *Server) handleProcessEvent(ctx context.Context, req *sdk.CallToolRequest, in processEventParams) (*sdk.CallToolResult, any, error) {
	engine, _, err := s.current()
	if err != nil {
		return errorResult(err)
	}

	ev := rules.Event{
		Kind:       rules.EventKind(in.Kind),
		DecisionID: in.DecisionID,
		WorkItemID: in.WorkItemID,
		RiskID:     in.RiskID,
	}
	if in.OccurredAt != "" {
		t, err := time.Parse(time.RFC3339, in.OccurredAt)
		if err != nil {
			return errorResult(fmt.Errorf("parse occurred_at %q: %w", in.OccurredAt, err))
		}
		ev.OccurredAt = t.UTC()
	}

	outcome, err := engine.Process(ev)
	if err != nil {
		return errorResult(err)
	}
	log.Info().
		Str("kind", in.Kind).
		Bool("no_op", outcome.NoOp).
		Int("commands", len(outcome.Applied)).
		Int("version", outcome.Version).
		Msg("Event processed")
	return textResult(outcome)
}
