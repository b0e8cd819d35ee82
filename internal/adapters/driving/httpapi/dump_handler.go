package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driving"
)

const defaultRunsLimit = 20

// DumpHandler serves the dump control routes.
type DumpHandler struct {
	service driving.DumpService
}

// NewDumpHandler creates a DumpHandler.
func NewDumpHandler(service driving.DumpService) *DumpHandler {
	return &DumpHandler{service: service}
}

// startRequest is the optional body of POST /api/dump.
type startRequest struct {
	MaxMessages int      `json:"max_messages"`
	UseRemote   *bool    `json:"use_remote"`
	ServerIDs   []string `json:"server_ids"`
	DryRun      bool     `json:"dry_run"`
}

type startResponse struct {
	RunID string `json:"run_id"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type progressResponse struct {
	Phase            string         `json:"phase"`
	RunID            string         `json:"run_id,omitempty"`
	StartedAt        *time.Time     `json:"started_at,omitempty"`
	ElapsedSeconds   float64        `json:"elapsed_seconds"`
	ServersDone      int            `json:"servers_done"`
	ServersTotal     int            `json:"servers_total"`
	CurrentServer    string         `json:"current_server,omitempty"`
	ChannelIndex     int            `json:"channel_index"`
	ChannelsInServer int            `json:"channels_in_server"`
	CurrentChannel   string         `json:"current_channel,omitempty"`
	ChannelsDone     int            `json:"channels_done"`
	ChannelsTotal    int            `json:"channels_total"`
	Messages         int            `json:"messages"`
	Percent          int            `json:"percent"`
	ETASeconds       *float64       `json:"eta_seconds,omitempty"`
	CancelRequested  bool           `json:"cancel_requested"`
	Categories       map[string]int `json:"categories"`
}

type reportResponse struct {
	RunID           string         `json:"run_id"`
	Phase           string         `json:"phase"`
	Account         string         `json:"account"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`
	Duration        string         `json:"duration"`
	ServersDone     int            `json:"servers_done"`
	ServersTotal    int            `json:"servers_total"`
	ChannelsDone    int            `json:"channels_done"`
	ChannelsTotal   int            `json:"channels_total"`
	ChannelsSkipped int            `json:"channels_skipped"`
	Messages        int            `json:"messages"`
	WriteFailures   int            `json:"write_failures"`
	Categories      map[string]int `json:"categories"`
	ArchiveLocation string         `json:"archive_location"`
	DryRun          bool           `json:"dry_run"`
}

type serverResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type categoryResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type runResponse struct {
	ID              string         `json:"id"`
	Phase           string         `json:"phase"`
	Account         string         `json:"account,omitempty"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      *time.Time     `json:"finished_at,omitempty"`
	ServersDone     int            `json:"servers_done"`
	ChannelsDone    int            `json:"channels_done"`
	ChannelsTotal   int            `json:"channels_total"`
	Messages        int            `json:"messages"`
	WriteFailures   int            `json:"write_failures"`
	Categories      map[string]int `json:"categories,omitempty"`
	ArchiveLocation string         `json:"archive_location,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// Start begins a background dump.
// POST /api/dump
func (h *DumpHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		handleServiceError(w, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}
	if req.MaxMessages < 0 {
		handleServiceError(w, fmt.Errorf("%w: max_messages must not be negative", domain.ErrInvalidInput))
		return
	}

	runID, err := h.service.Start(r.Context(), domain.RunOptions{
		MaxItemsPerContainer: req.MaxMessages,
		UseRemote:            req.UseRemote,
		ScopeIDs:             req.ServerIDs,
		DryRun:               req.DryRun,
		SkipReveal:           true,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, startResponse{RunID: runID})
}

// Stop requests cancellation of the active dump.
// POST /api/dump/stop
func (h *DumpHandler) Stop(w http.ResponseWriter, _ *http.Request) {
	if err := h.service.Stop(); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "stopping"})
}

// Progress returns the live snapshot.
// GET /api/dump/progress
func (h *DumpHandler) Progress(w http.ResponseWriter, _ *http.Request) {
	snap := h.service.Progress()
	resp := progressResponse{
		Phase:            snap.Phase.String(),
		RunID:            snap.RunID,
		ElapsedSeconds:   snap.Elapsed.Seconds(),
		ServersDone:      snap.ScopesDone,
		ServersTotal:     snap.ScopesTotal,
		CurrentServer:    snap.CurrentScopeName,
		ChannelIndex:     snap.ContainerIndexInScope,
		ChannelsInServer: snap.ContainersInScope,
		CurrentChannel:   snap.CurrentContainerName,
		ChannelsDone:     snap.ContainersDone,
		ChannelsTotal:    snap.ContainersTotal,
		Messages:         snap.ItemsTotal,
		Percent:          snap.Percent,
		CancelRequested:  snap.CancelRequested,
		Categories:       countsResponse(snap.CategoryTotals),
	}
	if !snap.StartedAt.IsZero() {
		resp.StartedAt = &snap.StartedAt
	}
	if snap.ETAKnown {
		eta := snap.ETA.Seconds()
		resp.ETASeconds = &eta
	}
	writeJSON(w, http.StatusOK, resp)
}

// Report returns the last finished run's report.
// GET /api/dump/report
func (h *DumpHandler) Report(w http.ResponseWriter, _ *http.Request) {
	r, ok := h.service.LastReport()
	if !ok {
		handleServiceError(w, fmt.Errorf("%w: no finished run", domain.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{
		RunID:           r.RunID,
		Phase:           r.Phase.String(),
		Account:         r.Account,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
		Duration:        domain.FormatDuration(r.Duration()),
		ServersDone:     r.ScopesDone,
		ServersTotal:    r.ScopesTotal,
		ChannelsDone:    r.ContainersDone,
		ChannelsTotal:   r.ContainersTotal,
		ChannelsSkipped: r.ContainersSkipped,
		Messages:        r.ItemsTotal,
		WriteFailures:   r.WriteFailures,
		Categories:      countsResponse(r.CategoryTotals),
		ArchiveLocation: r.ArchiveLocation,
		DryRun:          r.DryRun,
	})
}

// Servers lists reachable servers.
// GET /api/servers
func (h *DumpHandler) Servers(w http.ResponseWriter, r *http.Request) {
	scopes, err := h.service.ListScopes(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	resp := make([]serverResponse, len(scopes))
	for i, s := range scopes {
		resp[i] = serverResponse{ID: s.ID, Name: s.Name}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Categories lists the classification buckets.
// GET /api/categories
func (h *DumpHandler) Categories(w http.ResponseWriter, _ *http.Request) {
	cats := h.service.Categories()
	resp := make([]categoryResponse, len(cats))
	for i, c := range cats {
		resp[i] = categoryResponse{Name: c.String(), Description: c.Description()}
	}
	writeJSON(w, http.StatusOK, resp)
}

// OpenArchive reveals the dump root on the host.
// POST /api/archive/open
func (h *DumpHandler) OpenArchive(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RevealArchive(r.Context()); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "opened"})
}

// Runs lists past runs, newest first.
// GET /api/runs?limit=N
func (h *DumpHandler) Runs(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			handleServiceError(w, fmt.Errorf("%w: limit must be a positive integer", domain.ErrInvalidInput))
			return
		}
		limit = n
	}

	runs, err := h.service.History(r.Context(), limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]runResponse, len(runs))
	for i := range runs {
		rec := runs[i]
		resp[i] = runResponse{
			ID:              rec.ID,
			Phase:           rec.Phase.String(),
			Account:         rec.Account,
			StartedAt:       rec.StartedAt,
			ServersDone:     rec.ScopesDone,
			ChannelsDone:    rec.ContainersDone,
			ChannelsTotal:   rec.ContainersTotal,
			Messages:        rec.ItemsTotal,
			WriteFailures:   rec.WriteFailures,
			ArchiveLocation: rec.ArchiveLocation,
			Error:           rec.Error,
		}
		if !rec.FinishedAt.IsZero() {
			finished := rec.FinishedAt
			resp[i].FinishedAt = &finished
		}
		if len(rec.CategoryTotals) > 0 {
			resp[i].Categories = countsResponse(rec.CategoryTotals)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func countsResponse(c domain.CategoryCounts) map[string]int {
	out := make(map[string]int, len(c))
	for cat, n := range c {
		out[cat.String()] = n
	}
	return out
}
