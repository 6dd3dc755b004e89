// Package websocket pushes rover events to WebSocket subscribers.
//
// A central Hub owns every connection. Its Run loop is the only goroutine
// that touches the subscriber map; registration, removal and broadcasts
// all arrive over channels.
//
// Subscriptions:
//
// Clients connect to /ws?rover=<id> to follow one rover, or to /ws to
// follow the whole fleet. Each committed deploy, move, rotate or delete is
// pushed as:
//
//	{"rover_id": "r1", "event": "moved", "position": {"coordinates": {"x": 3, "y": 6}, "heading": "NORTH"}}
//
// Delete events carry no position.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//	svc := service.NewRoverService(service.Dependencies{Notifier: hub, ...})
//
// Backpressure:
//
// Notify never blocks a command. When the broadcast queue is full the
// event is dropped and logged, and a client whose send buffer is full is
// disconnected.
package websocket
