package main

import "flag"

// Config holds the daemon configuration.
type Config struct {
	// DataPath is the directory for persistent storage.
	DataPath string

	// HTTPAddress is the HTTP API listen address.
	HTTPAddress string

	// Verbose enables debug logging.
	Verbose bool
}

// parseFlags parses command-line flags into Config.
func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.DataPath, "data", "./data", "Data directory path")
	flag.StringVar(&cfg.HTTPAddress, "http", ":8080", "HTTP API address")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Enable debug logging")
	flag.Parse()

	return cfg
}
