package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage information to the given writer.
func printUsage(w io.Writer) {
	fmt.Fprint(w, `oba - embeddable LDAP directory server

Usage:
  oba <command> [options]

Commands:
  serve       Start the LDAP server
  config      Configuration management
  reload      Reload the configuration of a running server
  version     Show version information

Use "oba <command> -h" for more information about a command.
`)
}

// printServeUsage prints the serve command usage.
func printServeUsage(w io.Writer) {
	fmt.Fprint(w, `Start the LDAP server

Usage:
  oba serve [options]

Options:
  -config string
        Path to configuration file
  -address string
        Listen address (overrides config, default ":389")
  -tls-address string
        TLS listen address (overrides config, default ":636")
  -log-level string
        Log level: debug, info, warn, error (overrides config)
  -h, -help
        Show this help message

Environment Variables:
  OBA_SERVER_ADDRESS       Override server listen address
  OBA_SERVER_TLS_ADDRESS   Override TLS listen address
  OBA_LOGGING_LEVEL        Override log level
`)
}

// printConfigUsage prints the config command usage.
func printConfigUsage(w io.Writer) {
	fmt.Fprint(w, `Configuration management

Usage:
  oba config <subcommand> [options]

Subcommands:
  validate    Validate configuration file
  init        Generate default configuration
  show        Show effective configuration

Use "oba config <subcommand> -h" for more information.
`)
}

// printVersionUsage prints the version command usage.
func printVersionUsage(w io.Writer) {
	fmt.Fprint(w, `Show version information

Usage:
  oba version [options]

Options:
  -short
        Show only version number
  -h, -help
        Show this help message
`)
}
