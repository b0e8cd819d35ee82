package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/chronicle/internal/core/domain"
)

const defaultHistoryLimit = 10

// EmptyInput is the input schema for tools that take no arguments.
type EmptyInput struct{}

// DumpStartInput is the input schema for the dump_start tool.
type DumpStartInput struct {
	MaxMessages int      `json:"max_messages,omitempty" jsonschema:"maximum messages per channel (0 = all)"`
	UseRemote   *bool    `json:"use_remote,omitempty" jsonschema:"override the remote classifier toggle"`
	ServerIDs   []string `json:"server_ids,omitempty" jsonschema:"restrict the dump to these server IDs"`
	DryRun      bool     `json:"dry_run,omitempty" jsonschema:"classify without writing files"`
}

// DumpStartOutput is the output schema for the dump_start tool.
type DumpStartOutput struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// StatusOutput is a plain acknowledgement.
type StatusOutput struct {
	Status string `json:"status"`
}

// ProgressOutput is the output schema for the dump_progress tool.
type ProgressOutput struct {
	Phase            string         `json:"phase"`
	RunID            string         `json:"run_id,omitempty"`
	Elapsed          string         `json:"elapsed,omitempty"`
	ScopesDone       int            `json:"servers_done"`
	ScopesTotal      int            `json:"servers_total"`
	CurrentScope     string         `json:"current_server,omitempty"`
	CurrentContainer string         `json:"current_channel,omitempty"`
	ContainersDone   int            `json:"channels_done"`
	ContainersTotal  int            `json:"channels_total"`
	Items            int            `json:"messages"`
	Percent          int            `json:"percent"`
	ETA              string         `json:"eta,omitempty"`
	CancelRequested  bool           `json:"cancel_requested"`
	Categories       map[string]int `json:"categories"`
	LastReport       *ReportOutput  `json:"last_report,omitempty"`
}

// ReportOutput summarises a finished run.
type ReportOutput struct {
	RunID             string         `json:"run_id"`
	Phase             string         `json:"phase"`
	Account           string         `json:"account"`
	Duration          string         `json:"duration"`
	ScopesDone        int            `json:"servers_done"`
	ScopesTotal       int            `json:"servers_total"`
	ContainersDone    int            `json:"channels_done"`
	ContainersTotal   int            `json:"channels_total"`
	ContainersSkipped int            `json:"channels_skipped"`
	Items             int            `json:"messages"`
	WriteFailures     int            `json:"write_failures"`
	Categories        map[string]int `json:"categories"`
	ArchiveLocation   string         `json:"archive_location"`
	DryRun            bool           `json:"dry_run"`
}

// ServersOutput is the output schema for the list_servers tool.
type ServersOutput struct {
	Servers []ServerOutput `json:"servers"`
	Count   int            `json:"count"`
}

// ServerOutput is one reachable server.
type ServerOutput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CategoriesOutput is the output schema for the list_categories tool.
type CategoriesOutput struct {
	Categories []CategoryOutput `json:"categories"`
}

// CategoryOutput describes one classification bucket.
type CategoryOutput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HistoryInput is the input schema for the dump_history tool.
type HistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs to return (default 10)"`
}

// HistoryOutput is the output schema for the dump_history tool.
type HistoryOutput struct {
	Runs  []RunOutput `json:"runs"`
	Count int         `json:"count"`
}

// RunOutput is one persisted run.
type RunOutput struct {
	ID              string `json:"id"`
	Phase           string `json:"phase"`
	Account         string `json:"account,omitempty"`
	StartedAt       string `json:"started_at"`
	FinishedAt      string `json:"finished_at,omitempty"`
	ContainersDone  int    `json:"channels_done"`
	ContainersTotal int    `json:"channels_total"`
	Items           int    `json:"messages"`
	WriteFailures   int    `json:"write_failures"`
	ArchiveLocation string `json:"archive_location,omitempty"`
	Error           string `json:"error,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "dump_start",
		Description: "Start archiving every reachable Discord server in the background",
	}, s.handleDumpStart)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "dump_stop",
		Description: "Request cancellation of the running dump",
	}, s.handleDumpStop)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "dump_progress",
		Description: "Report progress of the running dump, or the last report when idle",
	}, s.handleDumpProgress)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_servers",
		Description: "List the Discord servers the configured account can reach",
	}, s.handleListServers)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_categories",
		Description: "List the message classification categories",
	}, s.handleListCategories)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "open_archive",
		Description: "Open the dump folder in the system file manager",
	}, s.handleOpenArchive)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "dump_history",
		Description: "List recent dump runs, newest first",
	}, s.handleDumpHistory)
}

func (s *Server) handleDumpStart(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DumpStartInput,
) (*mcp.CallToolResult, DumpStartOutput, error) {
	if input.MaxMessages < 0 {
		return nil, DumpStartOutput{}, domain.ErrInvalidInput
	}
	opts := domain.RunOptions{
		MaxItemsPerContainer: input.MaxMessages,
		UseRemote:            input.UseRemote,
		ScopeIDs:             input.ServerIDs,
		DryRun:               input.DryRun,
		SkipReveal:           true,
	}
	runID, err := s.ports.Dump.Start(ctx, opts)
	if err != nil {
		return nil, DumpStartOutput{}, err
	}
	return nil, DumpStartOutput{RunID: runID, Status: "started"}, nil
}

func (s *Server) handleDumpStop(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	if err := s.ports.Dump.Stop(); err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, StatusOutput{Status: "stopping"}, nil
}

func (s *Server) handleDumpProgress(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, ProgressOutput, error) {
	return nil, s.progress(), nil
}

func (s *Server) handleListServers(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, ServersOutput, error) {
	scopes, err := s.ports.Dump.ListScopes(ctx)
	if err != nil {
		return nil, ServersOutput{}, err
	}

	output := ServersOutput{
		Servers: make([]ServerOutput, len(scopes)),
		Count:   len(scopes),
	}
	for i, sc := range scopes {
		output.Servers[i] = ServerOutput{ID: sc.ID, Name: sc.Name}
	}
	return nil, output, nil
}

func (s *Server) handleListCategories(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, CategoriesOutput, error) {
	return nil, s.categories(), nil
}

func (s *Server) handleOpenArchive(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	if err := s.ports.Dump.RevealArchive(ctx); err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, StatusOutput{Status: "opened"}, nil
}

func (s *Server) handleDumpHistory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HistoryInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	runs, err := s.ports.Dump.History(ctx, limit)
	if err != nil {
		return nil, HistoryOutput{}, err
	}

	output := HistoryOutput{
		Runs:  make([]RunOutput, len(runs)),
		Count: len(runs),
	}
	for i := range runs {
		output.Runs[i] = runOutput(runs[i])
	}
	return nil, output, nil
}

// progress merges the live snapshot with the last report.
func (s *Server) progress() ProgressOutput {
	snap := s.ports.Dump.Progress()
	out := ProgressOutput{
		Phase:            snap.Phase.String(),
		RunID:            snap.RunID,
		ScopesDone:       snap.ScopesDone,
		ScopesTotal:      snap.ScopesTotal,
		CurrentScope:     snap.CurrentScopeName,
		CurrentContainer: snap.CurrentContainerName,
		ContainersDone:   snap.ContainersDone,
		ContainersTotal:  snap.ContainersTotal,
		Items:            snap.ItemsTotal,
		Percent:          snap.Percent,
		CancelRequested:  snap.CancelRequested,
		Categories:       countsOutput(snap.CategoryTotals),
	}
	if snap.Phase == domain.RunPhaseRunning {
		out.Elapsed = domain.FormatDuration(snap.Elapsed)
		out.ETA = snap.ETAString()
	}
	if r, ok := s.ports.Dump.LastReport(); ok {
		rep := reportOutput(r)
		out.LastReport = &rep
	}
	return out
}

func (s *Server) categories() CategoriesOutput {
	cats := s.ports.Dump.Categories()
	out := CategoriesOutput{Categories: make([]CategoryOutput, len(cats))}
	for i, c := range cats {
		out.Categories[i] = CategoryOutput{Name: c.String(), Description: c.Description()}
	}
	return out
}

func reportOutput(r *domain.Report) ReportOutput {
	return ReportOutput{
		RunID:             r.RunID,
		Phase:             r.Phase.String(),
		Account:           r.Account,
		Duration:          domain.FormatDuration(r.Duration()),
		ScopesDone:        r.ScopesDone,
		ScopesTotal:       r.ScopesTotal,
		ContainersDone:    r.ContainersDone,
		ContainersTotal:   r.ContainersTotal,
		ContainersSkipped: r.ContainersSkipped,
		Items:             r.ItemsTotal,
		WriteFailures:     r.WriteFailures,
		Categories:        countsOutput(r.CategoryTotals),
		ArchiveLocation:   r.ArchiveLocation,
		DryRun:            r.DryRun,
	}
}

func runOutput(r domain.RunRecord) RunOutput {
	out := RunOutput{
		ID:              r.ID,
		Phase:           r.Phase.String(),
		Account:         r.Account,
		StartedAt:       r.StartedAt.Format(time.RFC3339),
		ContainersDone:  r.ContainersDone,
		ContainersTotal: r.ContainersTotal,
		Items:           r.ItemsTotal,
		WriteFailures:   r.WriteFailures,
		ArchiveLocation: r.ArchiveLocation,
		Error:           r.Error,
	}
	if !r.FinishedAt.IsZero() {
		out.FinishedAt = r.FinishedAt.Format(time.RFC3339)
	}
	return out
}

func countsOutput(c domain.CategoryCounts) map[string]int {
	out := make(map[string]int, len(c))
	for cat, n := range c {
		out[cat.String()] = n
	}
	return out
}
