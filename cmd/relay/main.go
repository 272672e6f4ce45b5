// Relay proxies chat-completion requests to a single upstream
// inference API over two surfaces: an OpenAI-style HTTP API with SSE
// streaming, and a duplex websocket session layer.
//
// Usage:
//
//	# Start with default configuration
//	relay run
//
//	# Start with a configuration file
//	relay run --config /etc/relay/relay.yaml
//
//	# Show version information
//	relay version
package main

func main() {
	Execute()
}
