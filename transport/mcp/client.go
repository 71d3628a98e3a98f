package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/socialspot/places"
	"github.com/wricardo/socialspot/room/content"
	"github.com/wricardo/socialspot/room/router"
	"github.com/wricardo/socialspot/room/session"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"SocialSpot",
		Version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`SocialSpot - MCP Interface

This is a thin client that proxies all requests to the REST API server.
It is read-only: it lets you observe venues, rooms and game content, but
cannot act on behalf of connected users.

CONCEPTS:
- A "local" is a venue (bar, park, cafe...). Each local has one room.
- Users check in to a local and see who else is there.
- Rooms can run mini-games: quiz, truth_dare, never_have_i_ever.

AVAILABLE TOOLS:
- list_locals: Search venues near coordinates or by place name
- list_rooms: List occupied rooms with member counts
- room_details: Roster and current game of a room
- game_catalog: Size of each content pool
- server_health: Connection, session, room and game counts`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_locals",
		Description: "Search venues within 2 km of a point, or of a place name",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"lat": map[string]interface{}{
					"type":        "number",
					"description": "Latitude (use together with lng)",
				},
				"lng": map[string]interface{}{
					"type":        "number",
					"description": "Longitude (use together with lat)",
				},
				"search": map[string]interface{}{
					"type":        "string",
					"description": "Place name to geocode when no coordinates are given",
				},
			},
		},
	}, c.handleListLocals)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List every room with at least one checked-in user",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "room_details",
		Description: "Get the roster and current game of a room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"local_id": map[string]interface{}{
					"type":        "string",
					"description": "Local ID of the room",
				},
			},
			Required: []string{"local_id"},
		},
	}, c.handleRoomDetails)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_catalog",
		Description: "Show the loaded content pack and the size of each game pool",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameCatalog)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_health",
		Description: "Get connection, session, room and game counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleServerHealth)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	return args
}

// Tool handlers

func (c *Client) handleListLocals(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	params := url.Values{}
	lat, hasLat := args["lat"].(float64)
	lng, hasLng := args["lng"].(float64)
	if hasLat != hasLng {
		return mcp.NewToolResultError("lat and lng must be given together"), nil
	}
	if hasLat {
		params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
		params.Set("lng", strconv.FormatFloat(lng, 'f', -1, 64))
	}
	if search, _ := args["search"].(string); search != "" {
		params.Set("search", search)
	}
	if len(params) == 0 {
		return mcp.NewToolResultError("provide lat and lng, or search"), nil
	}

	var locals []places.Local
	if err := c.apiCall(ctx, "GET", "/api/locals?"+params.Encode(), nil, &locals); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(locals) == 0 {
		return mcp.NewToolResultText("No venues found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d venues:\n", len(locals))
	for _, l := range locals {
		fmt.Fprintf(&b, "- [%s] %s (%s): %s\n", l.ID, l.Name, l.Type, l.Description)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var rooms []session.RoomSummary
	if err := c.apiCall(ctx, "GET", "/api/rooms", nil, &rooms); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(rooms) == 0 {
		return mcp.NewToolResultText("No occupied rooms."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Occupied rooms (%d):\n", len(rooms))
	for _, r := range rooms {
		fmt.Fprintf(&b, "- local %s: %d users\n", r.LocalID, r.Members)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleRoomDetails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	localID, _ := arguments(request)["local_id"].(string)
	if localID == "" {
		return mcp.NewToolResultError("local_id is required"), nil
	}

	var view router.RoomView
	if err := c.apiCall(ctx, "GET", "/api/rooms/"+url.PathEscape(localID), nil, &view); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoom(view)), nil
}

func (c *Client) handleGameCatalog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var catalog struct {
		Source string             `json:"source"`
		Pools  []content.PoolInfo `json:"pools"`
	}
	if err := c.apiCall(ctx, "GET", "/api/games", nil, &catalog); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Content pack: %s\n", catalog.Source)
	for _, p := range catalog.Pools {
		fmt.Fprintf(&b, "- %s: %d items\n", p.Kind, p.Items)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleServerHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var health struct {
		Status  string       `json:"status"`
		Clients int          `json:"clients"`
		Stats   router.Stats `json:"stats"`
	}
	if err := c.apiCall(ctx, "GET", "/healthz", nil, &health); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Status: %s\nWebSocket clients: %d\nConnections: %d\nSessions: %d\nRooms: %d\nGames: %d\n",
		health.Status, health.Clients, health.Stats.Connections, health.Stats.Sessions, health.Stats.Rooms, health.Stats.Games)
	return mcp.NewToolResultText(result), nil
}

func formatRoom(view router.RoomView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Room %s\n", view.LocalID)

	if len(view.Users) == 0 {
		b.WriteString("Nobody is checked in.\n")
	} else {
		fmt.Fprintf(&b, "Users (%d):\n", len(view.Users))
		for _, u := range view.Users {
			fmt.Fprintf(&b, "- %s (connection %s, score %d)\n", u.Name, u.ConnectionID, u.Score)
		}
	}

	if view.Game == nil {
		b.WriteString("No game has been played here.\n")
	} else {
		fmt.Fprintf(&b, "Current game: %s (started %s)\n", view.Game.Kind, view.Game.StartedAt.Format(time.RFC3339))
	}
	return b.String()
}
