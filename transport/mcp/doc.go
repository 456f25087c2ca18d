// Package mcp exposes the game server as MCP tools.
//
// The client is a thin proxy: every tool call turns into a request
// against the REST API, so the MCP surface and the browser surface always
// agree on behavior. It serves either over stdio or mounted as an HTTP
// endpoint next to the API.
package mcp
