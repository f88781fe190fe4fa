// Package config loads runtime configuration for the signctl operator CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. The dotenv file named by -env (".env" by default) and STUDIOSIGN_*
//     environment variables, so the CLI can share the server's .env file.
//  3. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the backend gRPC endpoint
//	-i int      online status check interval (seconds)
//	-w int      per-call timeout (seconds)
//	-t string   operator access token
//	-k string   JWT secret, only used to mint development tokens
//	-o string   directory certificates are saved to
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "3s" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "request_timeout": "10s",
//	  "output_dir": "certificates"
//	}
//
// Environment
//
//	STUDIOSIGN_SERVER_ADDR, STUDIOSIGN_ACCESS_TOKEN, STUDIOSIGN_SECRET_KEY
package config
