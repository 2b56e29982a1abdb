// Package config handles configuration loading for wadash.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from WADASH_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/wadash/wadash.yaml
//  3. ~/.config/wadash/wadash.yaml
//
// `wadash init` writes Starter to the resolved path.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${WADASH_JWT_SECRET}"
//
// Unset variables expand to the empty string. The CLI loads a .env file
// from the working directory before reading the config, so secrets can live
// there during development.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax and must be positive:
//
//	auth:
//	  token_ttl: "24h"
//	provider:
//	  timeout: "10s"
//	dedupe:
//	  ttl: "24h"
//
// # Sections
//
//   - server: HTTP listen address
//   - storage: backend (file, sqlite or memory) and its location
//   - auth: JWT signing secret and token lifetime
//   - webhook: verify token for the provider's subscription handshake
//   - provider: Graph API base URL, version and request timeout
//   - dedupe: redelivery window TTL and size
//   - relay: optional Redis and AMQP mirrors of the live feed
//   - logging: level (debug, info, warn, error) and format (text, json)
//
// Every field except auth.jwt_secret has a default.
package config
