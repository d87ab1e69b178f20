package domain

// EndpointAttempt is one read attempt made by the failover controller.
// Corresponds to endpoint_attempts table in ClickHouse.
type EndpointAttempt struct {
	Endpoint    string // RPC endpoint URL
	Method      string // JSON-RPC method
	Index       int    // position in the endpoint list
	Success     bool
	LatencyMs   int64
	Error       string // empty on success
	TimestampMs int64  // Unix timestamp in milliseconds
}
