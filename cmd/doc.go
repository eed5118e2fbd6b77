// Package cmd implements the strand command line interface.
//
// The CLI is built with cobra and viper. Every flag can also be set via
// an environment variable of the form STRAND_<FLAG> (dashes replaced by
// underscores) or an .env file in the working directory.
//
// Available commands:
//
//   - serve: starts a strand server hosting one or more databases
//   - str: string key-value operations against a running server,
//     including pipelined batch execution and benchmarks
//   - version: prints the version
//
// Example usage:
//
//	strand serve --transport tcp --endpoint localhost:9000 --engine bolt --data-dir /var/lib/strand
//	strand str set greeting "hello world" --transport tcp --transport-endpoints localhost:9000
//	strand str get greeting --transport tcp --transport-endpoints localhost:9000
//	cat keys.txt | strand str batch get --transport tcp --transport-endpoints localhost:9000
package cmd
