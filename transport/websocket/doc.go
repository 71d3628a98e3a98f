// Package websocket provides the WebSocket transport for room coordination.
//
// The package uses a hub-and-spoke model: a central Hub owns every client
// connection and runs a single event loop. Each connection gets a read pump
// and a write pump goroutine; the read pump forwards frames to the hub, the
// write pump drains the client's buffered send channel.
//
// Message Protocol:
//
// Frames are JSON envelopes in both directions:
//
//	{"event": "check_in", "data": "42"}
//	{"event": "room_users", "data": [{"connectionId": "...", "name": "Ana"}]}
//
// Connection Lifecycle:
//
// 1. Client connects to /ws and receives a random connection id
// 2. The hub registers it and calls EventHandler.Connect
// 3. Every inbound frame is passed to EventHandler.HandleFrame
// 4. On close or read error, EventHandler.Disconnect is called once
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	rt := router.New(store, table, deck, hub)
//	go hub.Run(ctx, rt)
//	http.HandleFunc("/ws", hub.ServeWS)
//
// Concurrency:
//
// Handler calls never overlap, so the handler sees events in the order the
// hub received them. Emit never blocks: a client that cannot keep up is
// disconnected.
package websocket
