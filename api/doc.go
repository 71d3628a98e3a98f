// Package api provides the HTTP surface of the room coordinator.
//
// The api package implements:
//   - Venue search backed by the places package
//   - Read-only room inspection for dashboards and tooling
//   - QR codes that link a venue's room
//   - WebSocket upgrade handling
//   - Static file serving for the web client
//
// Endpoints:
//
// Venues:
//   - GET /api/locals?lat=&lng=&search= - Search venues near a point or a place name
//
// Rooms:
//   - GET /api/rooms - List occupied rooms with member counts
//   - GET /api/rooms/{localId} - Roster and current game of a room
//   - GET /api/rooms/{localId}/qr - PNG QR code linking to the room
//
// Content:
//   - GET /api/games - Pool sizes of the loaded content pack
//
// Other:
//   - GET /healthz - Liveness plus connection and room counts
//   - GET /ws - WebSocket transport
//   - GET /* - Static web client with index.html fallback
//
// All endpoints allow any origin. Room snapshots never include the correct
// answer of a running quiz.
//
// Error Handling:
//
// Errors are returned as JSON with an appropriate HTTP status code:
//
//	{
//	  "error": "error message"
//	}
package api
