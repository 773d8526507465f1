// Package config provides configuration loading, validation, and access for
// the serverless gateway proxy.
//
// Configuration is read from a YAML file, overlaid with SERVERLESS_* environment
// variables, filled with defaults, and validated before use. A process-wide
// singleton gives the rest of the proxy read access to the active configuration
// and supports reload without restart.
//
// Typical usage:
//
//	if err := config.Initialize("config.yaml"); err != nil {
//		log.Fatal(err)
//	}
//	cfg := config.MustGetConfig()
//
// Environment overrides follow the pattern SERVERLESS_<SECTION>_<FIELD>,
// for example SERVERLESS_PROXY_LISTEN_ADDRESS or SERVERLESS_AUTH_MODE.
package config
