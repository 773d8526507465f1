// Package tls builds the server TLS configuration for the proxy's HTTPS
// listener on port 8443.
//
// Certificates are served through a reloader that checks the files
// periodically, so rotation by cert-manager or similar tooling takes effect
// without restarting the proxy. Optional mutual TLS verifies client
// certificates against a configured CA.
package tls
