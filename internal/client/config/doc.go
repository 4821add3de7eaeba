// Package config loads runtime configuration for the CRM CLI.
//
// Sources, later ones winning:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file given with -c/-config or $CRM_CLIENT_CONFIG.
//  3. Command-line flags.
//
// Flags
//
//	-a string   base URL of the CRM API
//	-b string   entity backend: http or memory
//	-t int      query cache TTL (seconds)
//	-n int      page size
//	-i int      online status check interval (seconds)
//	-r int      request timeout (seconds)
//	-d string   local data directory
//	-l string   log level
//
// A JSON file looks like:
//
//	{
//	  "server_url": "https://crm.example.com",
//	  "backend": "http",
//	  "query_ttl": "2m",
//	  "page_size": 50,
//	  "online_check_interval": "5s"
//	}
package config
