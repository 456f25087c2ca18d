package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flipmatch/flipmatch/game/engine"
	"github.com/flipmatch/flipmatch/game/themes"
)

// Client is a thin MCP client that proxies to the REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API.
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools.
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Flipmatch",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Flipmatch - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Flipmatch is a pairs (memory/concentration) game. A session has a square
board of face-down cards where every value appears on exactly two cards,
and a fixed number of player seats. Players claim seats as they join; the
round begins the moment the last seat fills.

AVAILABLE TOOLS:
- create_game: Create a new game session
- join_game: Claim a seat in a session (or reconnect to your seat)
- replay_game: Start another round of an existing session
- game_state: Get the full state of a session
- list_games: List public sessions
- list_themes: List available card themes
- game_instructions: Get comprehensive game rules`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools.
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_game",
		Description: "Create a new game session with a square board and a fixed number of player seats",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"board_size": map[string]interface{}{
					"type":        "integer",
					"description": "Side length of the square board (e.g. 4 for a 4x4 board)",
				},
				"players": map[string]interface{}{
					"type":        "integer",
					"description": "Number of player seats",
				},
				"theme": map[string]interface{}{
					"type":        "string",
					"description": "Card theme name (optional, see list_themes)",
				},
				"visibility": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"public", "private"},
					"description": "Whether the game shows up in the public directory (default public)",
				},
			},
			Required: []string{"board_size", "players"},
		},
	}, c.handleCreateGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "join_game",
		Description: "Claim a seat in a game session; rejoining with the same player id reconnects to the same seat",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": map[string]interface{}{
					"type":        "string",
					"description": "Game session ID",
				},
				"player_id": map[string]interface{}{
					"type":        "string",
					"description": "Opaque player identity",
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Display name for the seat",
				},
			},
			Required: []string{"game_id", "player_id", "name"},
		},
	}, c.handleJoinGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "replay_game",
		Description: "Start another round of an existing session, optionally under a different theme",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": map[string]interface{}{
					"type":        "string",
					"description": "Game session ID",
				},
				"theme": map[string]interface{}{
					"type":        "string",
					"description": "Theme for the new round (optional)",
				},
			},
			Required: []string{"game_id"},
		},
	}, c.handleReplayGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the full state of a game session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": map[string]interface{}{
					"type":        "string",
					"description": "Game session ID",
				},
			},
			Required: []string{"game_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_games",
		Description: "List all public game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListGames)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_themes",
		Description: "List available card themes and their pool sizes",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListThemes)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving.
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiCall performs one REST round trip and decodes the response.
func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
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

// Tool handlers

func (c *Client) handleCreateGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	boardSize, _ := args["board_size"].(float64)
	players, _ := args["players"].(float64)
	theme, _ := args["theme"].(string)
	visibility, _ := args["visibility"].(string)

	body := map[string]interface{}{
		"boardSize":   int(boardSize),
		"playerCount": int(players),
	}
	if theme != "" {
		body["theme"] = theme
	}
	if visibility != "" {
		body["visibility"] = visibility
	}

	var sess engine.Session
	if err := c.apiCall("POST", "/api/games", body, &sess); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created game %s\nBoard: %dx%d (%d cards)\nSeats: %d\nTheme: %s\n",
		sess.ID, sess.BoardSize(), sess.BoardSize(), len(sess.Cards), len(sess.Players), sess.Theme)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleJoinGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	gameID, _ := args["game_id"].(string)
	playerID, _ := args["player_id"].(string)
	name, _ := args["name"].(string)

	var player engine.Player
	err := c.apiCall("POST", fmt.Sprintf("/api/games/%s/join", gameID), map[string]string{
		"id":   playerID,
		"name": name,
	}, &player)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Joined game %s as %s (player %s)", gameID, player.Name, player.ID)), nil
}

func (c *Client) handleReplayGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	gameID, _ := args["game_id"].(string)
	theme, _ := args["theme"].(string)

	body := map[string]string{}
	if theme != "" {
		body["theme"] = theme
	}

	var sess engine.Session
	if err := c.apiCall("POST", fmt.Sprintf("/api/games/%s/replay", gameID), body, &sess); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Replayed game %s under theme %s", sess.ID, sess.Theme)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	gameID, _ := args["game_id"].(string)

	var sess engine.Session
	if err := c.apiCall("GET", fmt.Sprintf("/api/games/%s", gameID), nil, &sess); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSession(&sess)), nil
}

func (c *Client) handleListGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count int              `json:"count"`
		Games []engine.Summary `json:"games"`
	}

	if err := c.apiCall("GET", "/api/games", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Public Games (%d):\n\n", response.Count)
	for _, g := range response.Games {
		online := 0
		for _, p := range g.Players {
			if p["name"] {
				online++
			}
		}
		fmt.Fprintf(&sb, "- %s (%s, theme %s, %d/%d online)\n", g.ID, g.Size, g.Theme, online, len(g.Players))
	}

	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleListThemes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count  int            `json:"count"`
		Themes []*themes.Info `json:"themes"`
	}

	if err := c.apiCall("GET", "/api/themes", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Themes (%d):\n\n", response.Count)
	for _, t := range response.Themes {
		fmt.Fprintf(&sb, "- %s: %d faces", t.Name, t.CardsAvailable)
		if t.Description != "" {
			fmt.Fprintf(&sb, " - %s", t.Description)
		}
		sb.WriteString("\n")
	}

	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(`FLIPMATCH RULES

Setup:
- A session has a square board of face-down cards. Every value appears on
  exactly two cards. On boards with an odd number of cells one cell stays
  empty.
- The session is created with a fixed number of seats. Seats are claimed
  in order as players join; rejoining with the same player id reconnects
  to the same seat.

Flow:
- While seats are vacant the session is forming and has no active turn.
- The turn order starts at seat 0 the instant the last vacant seat fills.
- On a turn a player reveals up to the session's flip allowance (normally
  two cards). A matched pair scores; a miss counts as an inaccurate turn.
- A session can be replayed: scores reset, the deck reshuffles under the
  chosen theme, and seats keep their owners.

Sessions expire automatically after 24 hours without a write.`), nil
}

// formatSession renders a session for tool output.
func formatSession(sess *engine.Session) string {
	var sb strings.Builder

	n := sess.BoardSize()
	fmt.Fprintf(&sb, "Game %s\n", sess.ID)
	fmt.Fprintf(&sb, "Board: %dx%d (%d cards)\n", n, n, len(sess.Cards))
	fmt.Fprintf(&sb, "Theme: %s\n", sess.Theme)
	fmt.Fprintf(&sb, "Visibility: %s\n", sess.Visibility)

	if sess.Turn == engine.TurnNotStarted {
		sb.WriteString("State: forming (waiting for players)\n")
	} else {
		fmt.Fprintf(&sb, "State: active, seat %d to play\n", sess.Turn)
	}

	sb.WriteString("Seats:\n")
	for i, p := range sess.Players {
		if p.Vacant() {
			fmt.Fprintf(&sb, "  %d: <vacant>\n", i)
			continue
		}
		status := "offline"
		if p.Online {
			status = "online"
		}
		fmt.Fprintf(&sb, "  %d: %s (%s, score %d, turns %d)\n", i, p.Name, status, p.Score, p.Turns)
	}

	return sb.String()
}
