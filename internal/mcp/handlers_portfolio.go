package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"riskcast/internal/domain"
	"riskcast/internal/eventlog"
	"riskcast/internal/graph"
	"riskcast/internal/loader"
	"riskcast/internal/rules"
	"riskcast/internal/visuals"
)

func (s *Server) handleLoadPortfolio(ctx context.Context, req *sdk.CallToolRequest, in loadPortfolioParams) (*sdk.CallToolResult, any, error) {
	p, err := loader.LoadPortfolio(in.Path)
	if err != nil {
		return errorResult(err)
	}

	store, err := eventlog.Open(s.cfg.JournalPath())
	if err != nil {
		return errorResult(fmt.Errorf("open journal: %w", err))
	}
	engine := rules.NewEngine(p, store)
	if err := engine.Replay(store.Records()); err != nil {
		return errorResult(fmt.Errorf("replay journal: %w", err))
	}

	s.mu.Lock()
	s.path = in.Path
	s.engine = engine
	s.journal = store
	s.mu.Unlock()

	snap := engine.Snapshot()
	log.Info().
		Str("path", in.Path).
		Int("work_items", len(p.Items)).
		Int("risks", len(p.Risks)).
		Int("journal_records", store.Count()).
		Int("snapshot_version", snap.Version).
		Msg("Portfolio loaded")

	return textResult(map[string]any{
		"path":             in.Path,
		"reference_date":   p.ReferenceDate.Format("2006-01-02"),
		"work_items":       len(p.Items),
		"milestones":       len(p.Milestones),
		"decisions":        len(p.Decisions),
		"risks":            len(p.Risks),
		"journal_records":  store.Count(),
		"snapshot_version": snap.Version,
	})
}

func (s *Server) handlePortfolioSummary(ctx context.Context, req *sdk.CallToolRequest, in emptyParams) (*sdk.CallToolResult, any, error) {
	engine, store, err := s.current()
	if err != nil {
		return errorResult(err)
	}
	snap := engine.Snapshot()
	p := snap.Portfolio()

	itemsByStatus := map[string]int{}
	var blocked []string
	for i := range p.Items {
		itemsByStatus[string(p.Items[i].Status)]++
		if p.Items[i].Status == domain.StatusBlocked {
			blocked = append(blocked, p.Items[i].ID)
		}
	}
	risksByStatus := map[string]int{}
	for i := range p.Risks {
		risksByStatus[string(p.Risks[i].Status)]++
	}
	decisionsByStatus := map[string]int{}
	for i := range p.Decisions {
		decisionsByStatus[string(p.Decisions[i].Status)]++
	}

	milestones := make([]map[string]any, 0, len(p.Milestones))
	for i := range p.Milestones {
		m := map[string]any{"id": p.Milestones[i].ID}
		if p.Milestones[i].Name != "" {
			m["name"] = p.Milestones[i].Name
		}
		if p.Milestones[i].TargetDate != nil {
			m["target_date"] = p.Milestones[i].TargetDate.Format("2006-01-02")
		}
		milestones = append(milestones, m)
	}

	return textResult(map[string]any{
		"reference_date":      p.ReferenceDate.Format("2006-01-02"),
		"snapshot_version":    snap.Version,
		"journal_records":     store.Count(),
		"items_by_status":     itemsByStatus,
		"blocked_items":       blocked,
		"risks_by_status":     risksByStatus,
		"decisions_by_status": decisionsByStatus,
		"milestones":          milestones,
	})
}

func (s *Server) handleInspectGraph(ctx context.Context, req *sdk.CallToolRequest, in emptyParams) (*sdk.CallToolResult, any, error) {
	engine, _, err := s.current()
	if err != nil {
		return errorResult(err)
	}
	p := engine.Snapshot().Portfolio()

	g, err := graph.Build(p)
	if err != nil {
		return errorResult(err)
	}

	order := make([]string, 0, len(g.Order))
	for _, i := range g.Order {
		order = append(order, g.Nodes[i].Item.ID)
	}

	var roots, leaves []string
	for _, i := range g.Order {
		n := &g.Nodes[i]
		if activeEdgeCount(g, n.In) == 0 {
			roots = append(roots, n.Item.ID)
		}
		if activeEdgeCount(g, n.Out) == 0 {
			leaves = append(leaves, n.Item.ID)
		}
	}

	type edgeInfo struct {
		From     string  `json:"from"`
		To       string  `json:"to"`
		Type     string  `json:"type"`
		LagDays  float64 `json:"lag_days,omitempty"`
		External bool    `json:"external,omitempty"`
	}
	var edges []edgeInfo
	for i := range p.Items {
		for _, dep := range p.Items[i].DependsOn {
			edges = append(edges, edgeInfo{
				From:     dep.OnID,
				To:       p.Items[i].ID,
				Type:     string(dep.Type),
				LagDays:  dep.LagDays,
				External: dep.External,
			})
		}
	}

	payload := map[string]any{
		"work_items":        len(g.Nodes),
		"active_items":      len(g.Order),
		"edges":             edges,
		"topological_order": order,
		"roots":             roots,
		"leaves":            leaves,
		"longest_chain":     longestChain(g),
	}
	if s.cfg.EnableMermaidCharts {
		payload["chart"] = visuals.GenerateDependencyFlowchart(p)
	}
	return textResult(payload)
}

// activeEdgeCount counts edges between two non-completed items. Completed
// neighbors do not make an item any less of a root or leaf.
func activeEdgeCount(g *graph.Graph, edges []graph.Edge) int {
	n := 0
	for _, e := range edges {
		if g.Nodes[e.From].Item.Completed() || g.Nodes[e.To].Item.Completed() {
			continue
		}
		n++
	}
	return n
}

// longestChain returns the ids along the deepest dependency chain among
// non-completed items, in execution order.
func longestChain(g *graph.Graph) []string {
	depth := make([]int, len(g.Nodes))
	parent := make([]int, len(g.Nodes))
	best := -1
	for _, i := range g.Order {
		depth[i] = 1
		parent[i] = -1
		for _, e := range g.Nodes[i].In {
			if g.Nodes[e.From].Item.Completed() {
				continue
			}
			if depth[e.From]+1 > depth[i] {
				depth[i] = depth[e.From] + 1
				parent[i] = e.From
			}
		}
		if best == -1 || depth[i] > depth[best] {
			best = i
		}
	}
	if best == -1 {
		return nil
	}
	var chain []string
	for i := best; i != -1; i = parent[i] {
		chain = append([]string{g.Nodes[i].Item.ID}, chain...)
	}
	return chain
}
