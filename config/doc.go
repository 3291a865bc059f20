// Package config loads rehabdir settings from defaults, an optional YAML
// file and REHABDIR_* environment variables, in increasing precedence.
//
// Nested keys map to environment variables by upper-casing and replacing
// dots with underscores: api.base_url is REHABDIR_API_BASE_URL. String
// values may reference the environment (`${VAR}`) or a secret
// (`secretref:file:/path`); both are resolved at load time.
package config
