// Package timeouts defines shared timeout constants used across services.
// Centralizing these values keeps adapters and the front end in agreement
// about how long an external call may take.
package timeouts

import "time"

// GatewayCall caps a single request to the chat bridge.
const GatewayCall = 5 * time.Second

// GatewayDial caps the websocket handshake with the chat bridge.
const GatewayDial = 5 * time.Second

// StoreCall caps a single storage round trip.
const StoreCall = 3 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Request caps the time spent serving one front-end request.
const Request = 30 * time.Second

// Shutdown limits how long servers wait for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
