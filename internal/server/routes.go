// Package server wires HTTP handlers into a ServeMux for the GoChat rooms
// application via routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application routes.
func SetupRoutes(h *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", h.WebSocketHandler())
	mux.HandleFunc("/rooms", h.RoomsHandler)
	mux.HandleFunc("/test", TestPageHandler)
	return mux
}
