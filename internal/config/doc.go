// Package config resolves litcal-mcp runtime settings.
//
// Each value is taken from the first source that sets it:
//
//  1. environment variables (LITCAL_*, VALKEY_*), after loading an optional .env file
//  2. litcal.config.yaml or litcal.config.yml in the working directory, or an explicit --config file
//  3. built-in defaults
//
// Example litcal.config.yaml:
//
//	api_base_url: https://litcal.johnromanodorazio.com/api/dev
//	default_timeout: 30
//	metadata_cache_expiry_hours: 24
//	calendar_cache_expiry_hours: 168
//	cache_dir: cache
//	cache_backend: file
//	valkey:
//	  url: localhost:6379
//	  key_prefix: "litcal:"
package config
