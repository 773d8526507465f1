// The serverless proxy terminates TLS in front of the gateway API and adds
// token authentication, upstream routing, per-token rate limits, request
// auditing, and Ray cluster administration.
//
// Usage:
//
//	# Start the proxy with the default configuration file
//	serverless-proxy run
//
//	# Start with a custom configuration file
//	serverless-proxy run --config /etc/serverless/config.yaml
//
//	# Validate a configuration file without starting
//	serverless-proxy validate --config config.yaml
//
//	# Manage Ray clusters
//	serverless-proxy clusters list
//	serverless-proxy clusters create my-cluster
//
//	# Show version information
//	serverless-proxy version
package main

func main() {
	Execute()
}
