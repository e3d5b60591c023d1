// Package server implements the WebSocket transport for the GoChat rooms
// engine.
//
// Connections send JSON commands (create, join, send, leave, rooms); the hub
// runs them against a chat.Engine, binds the acting participant to the
// connection, and delivers the resulting events to every connection bound to
// a recipient. When a connection drops, the hub leaves each room in which it
// was the participant's last live connection.
package server
