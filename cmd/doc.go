// Package cmd implements the command-line interface of climastro. It provides a
// hierarchical command structure for running the services and querying them.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for starting the echo, weather, horoscope and aggregator services
//   - query: Client commands for every service plus a load test (perf)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See climastro -help for a list of all commands.
package cmd
