package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/spyglass-mc/spyglass/internal/browse"
	"github.com/spyglass-mc/spyglass/internal/errors"
	"github.com/spyglass-mc/spyglass/internal/format"
	"github.com/spyglass-mc/spyglass/internal/query"
	"github.com/spyglass-mc/spyglass/internal/record"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store  Store
	prober browse.Prober
}

// Store is the record-layer surface the tools consume.
type Store interface {
	Count(ctx context.Context, d *query.Descriptor) (int, error)
	RecordAt(ctx context.Context, d *query.Descriptor, index int) (*record.Record, error)
	FindByAddress(ctx context.Context, ip string, port int) (*record.Record, error)
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store Store, prober browse.Prober) *Handlers {
	return &Handlers{store: store, prober: prober}
}

// Request types for each tool

// FindRequest represents the arguments for server_find.
type FindRequest struct {
	IP          string `json:"ip,omitempty"`
	Hostname    string `json:"hostname,omitempty"`
	Version     string `json:"version,omitempty"`
	Protocol    int    `json:"protocol,omitempty"`
	MaxPlayers  int    `json:"max_players,omitempty"`
	OnlineGte   int    `json:"online_gte,omitempty"`
	PlayerID    string `json:"player_id,omitempty"`
	Description string `json:"description,omitempty"`
	Country     string `json:"country,omitempty"`
	Cracked     *bool  `json:"cracked,omitempty"`
	HasFavicon  *bool  `json:"has_favicon,omitempty"`
	Whitelisted *bool  `json:"whitelisted,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

// AtRequest represents the arguments for server_at.
type AtRequest struct {
	State string `json:"state"`
	Index int    `json:"index,omitempty"`
}

// CountRequest represents the arguments for server_count.
type CountRequest struct {
	State string `json:"state"`
}

// ProbeRequest represents the arguments for server_probe.
type ProbeRequest struct {
	IP   string `json:"ip"`
	Port int    `json:"port,omitempty"`
}

// serverSummary is what tools return per record; the favicon payload is
// stripped since MCP clients have no use for it.
type serverSummary struct {
	ID          string `json:"id"`
	Address     string `json:"address"`
	Hostname    string `json:"hostname,omitempty"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Protocol    int    `json:"protocol"`
	Online      int    `json:"players_online"`
	Max         int    `json:"players_max"`
	SampleCount int    `json:"sample_count"`
	Cracked     *bool  `json:"cracked,omitempty"`
	Modded      bool   `json:"modded"`
	LastSeen    int64  `json:"last_seen"`
}

func summarize(r *record.Record) serverSummary {
	return serverSummary{
		ID:          r.ID,
		Address:     r.Address(),
		Hostname:    r.Hostname,
		Description: format.MOTD(r.Description),
		Version:     format.Clean(r.Version.Name),
		Protocol:    r.Version.Protocol,
		Online:      r.Players.Online,
		Max:         r.Players.Max,
		SampleCount: len(r.Players.Sample),
		Cracked:     r.Cracked,
		Modded:      r.Modded(),
		LastSeen:    r.LastSeen,
	}
}

// Tool definitions

var findToolDef = mcp.NewTool("server_find",
	mcp.WithDescription("Search the discovered-server collection with filters. Returns matching servers plus the serialized browse state for follow-up calls."),
	mcp.WithString("ip", mcp.Description("Exact IP address")),
	mcp.WithString("hostname", mcp.Description("Hostname substring")),
	mcp.WithString("version", mcp.Description("Version name substring")),
	mcp.WithNumber("protocol", mcp.Description("Exact protocol number")),
	mcp.WithNumber("max_players", mcp.Description("Exact declared player limit")),
	mcp.WithNumber("online_gte", mcp.Description("Minimum online player count")),
	mcp.WithString("player_id", mcp.Description("UUID seen in the player sample")),
	mcp.WithString("description", mcp.Description("MOTD substring")),
	mcp.WithString("country", mcp.Description("Two-letter country code")),
	mcp.WithBoolean("cracked", mcp.Description("Only cracked (or only premium) servers")),
	mcp.WithBoolean("has_favicon", mcp.Description("Only servers with (or without) a favicon")),
	mcp.WithBoolean("whitelisted", mcp.Description("Only whitelisted (or open) servers")),
	mcp.WithNumber("limit", mcp.Description("Maximum servers to return, default 10")),
)

var atToolDef = mcp.NewTool("server_at",
	mcp.WithDescription("Fetch the server at an index of a previously returned browse state."),
	mcp.WithString("state", mcp.Required(), mcp.Description("Serialized browse state from server_find")),
	mcp.WithNumber("index", mcp.Description("Zero-based position, default 0")),
)

var countToolDef = mcp.NewTool("server_count",
	mcp.WithDescription("Count the servers matching a browse state."),
	mcp.WithString("state", mcp.Required(), mcp.Description("Serialized browse state from server_find")),
)

var probeToolDef = mcp.NewTool("server_probe",
	mcp.WithDescription("Ping one server for live status. Returns null when the target is unreachable."),
	mcp.WithString("ip", mcp.Required(), mcp.Description("IP address or hostname")),
	mcp.WithNumber("port", mcp.Description("Port, default 25565")),
)

// Handler implementations

// HandleFind handles the server_find tool call.
func (h *Handlers) HandleFind(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[FindRequest](req)
	if err != nil {
		return errorResult(errors.NewMalformedState(err.Error())), nil
	}

	d := query.Build(query.FindInput{
		IP:          input.IP,
		Hostname:    input.Hostname,
		Version:     input.Version,
		Protocol:    input.Protocol,
		MaxPlayers:  input.MaxPlayers,
		OnlineGte:   input.OnlineGte,
		PlayerID:    input.PlayerID,
		Description: input.Description,
		Country:     input.Country,
		Cracked:     input.Cracked,
		HasFavicon:  input.HasFavicon,
		Whitelisted: input.Whitelisted,
	})

	total, err := h.store.Count(ctx, d)
	if err != nil {
		return errorResult(err), nil
	}

	limit := input.Limit
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	if limit > total {
		limit = total
	}

	servers := make([]serverSummary, 0, limit)
	for i := 0; i < limit; i++ {
		rec, err := h.store.RecordAt(ctx, d, i)
		if err != nil {
			return errorResult(err), nil
		}
		if rec == nil {
			break
		}
		servers = append(servers, summarize(rec))
	}

	state, err := query.Encode(d)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"total":   total,
		"servers": servers,
		"state":   string(state),
	})
}

// HandleAt handles the server_at tool call.
func (h *Handlers) HandleAt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[AtRequest](req)
	if err != nil {
		return errorResult(errors.NewMalformedState(err.Error())), nil
	}

	d, err := query.Decode([]byte(input.State))
	if err != nil {
		return errorResult(err), nil
	}

	total, err := h.store.Count(ctx, d)
	if err != nil {
		return errorResult(err), nil
	}
	if input.Index < 0 || input.Index >= total {
		return errorResult(errors.NewOutOfRange(input.Index+1, total)), nil
	}

	rec, err := h.store.RecordAt(ctx, d, input.Index)
	if err != nil {
		return errorResult(err), nil
	}
	if rec == nil {
		return errorResult(errors.NewNotFound()), nil
	}

	return successResult(map[string]any{
		"index":  input.Index,
		"total":  total,
		"server": summarize(rec),
	})
}

// HandleCount handles the server_count tool call.
func (h *Handlers) HandleCount(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[CountRequest](req)
	if err != nil {
		return errorResult(errors.NewMalformedState(err.Error())), nil
	}

	d, err := query.Decode([]byte(input.State))
	if err != nil {
		return errorResult(err), nil
	}

	total, err := h.store.Count(ctx, d)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"total": total})
}

// HandleProbe handles the server_probe tool call.
func (h *Handlers) HandleProbe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[ProbeRequest](req)
	if err != nil {
		return errorResult(errors.NewMalformedState(err.Error())), nil
	}
	if input.IP == "" {
		return errorResult(errors.NewMalformedState("ip is required")), nil
	}
	port := input.Port
	if port == 0 {
		port = 25565
	}

	live, err := h.prober.Probe(ctx, input.IP, port)
	if err != nil {
		return errorResult(errors.NewProbeFailure(err)), nil
	}
	if live == nil {
		return successResult(map[string]any{"online": false})
	}

	return successResult(map[string]any{
		"online": true,
		"server": summarize(live),
	})
}

// Result helpers

// errorResult creates an MCP error result with a structured payload.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if serr, ok := err.(*errors.SpyglassError); ok {
		errorObj := map[string]any{
			"code":    serr.Code,
			"message": serr.Message,
		}
		// internal details can carry paths or SQL text; keep them local
		if serr.Code != errors.ErrInternal && serr.Details != nil {
			errorObj["details"] = serr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
