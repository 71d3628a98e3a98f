// Package mcp exposes the room coordinator to AI agents over the Model
// Context Protocol.
//
// The Client is a thin proxy: every tool calls the REST API and formats the
// response as text. It never talks to the router directly, so an agent sees
// exactly what any other HTTP consumer sees.
//
// MCP Tools:
//   - list_locals: Venue search by coordinates or place name
//   - list_rooms: Occupied rooms with member counts
//   - room_details: Roster and current game of a room
//   - game_catalog: Loaded content pack and pool sizes
//   - server_health: Connection, session, room and game counts
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: the serve command forwards POST /mcp to HandleMessage
package mcp
