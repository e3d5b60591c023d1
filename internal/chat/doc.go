// Package chat implements the in-memory room, presence, and broadcast engine
// behind the GoChat rooms service.
//
// The package owns room lifecycle, membership state, and message fan-out
// decisions. It performs no network or disk I/O and never logs: transports
// call into Engine and deliver the resulting events themselves through a
// Deliverer.
package chat
