// Package config handles configuration loading for the site server.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable
// expansion. Every field has a sensible default, so the server runs with
// no config file at all.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	admin:
//	  username: "${ADMIN_USER}"
//	  password: "${ADMIN_PASS}"
//
// Syntax: ${VAR_NAME}
//
// # Environment Overrides
//
// A handful of variables used by hosting platforms override the file after
// it is parsed:
//
//	PORT              listener port (overrides server.addr)
//	ADMIN_USER        seed admin username
//	ADMIN_PASS        seed admin password
//	ENABLE_KEEP_ALIVE set to "1" to enable the self-ping loop
//	KEEP_ALIVE_URL    base URL of the deployed site; the loop
//	                  requests <url>/keepalive-ping
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	session:
//	  ttl: "24h"
//	keepalive:
//	  interval: "25s"
package config
