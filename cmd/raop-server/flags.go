package main

import "github.com/alxayo/raop-go/internal/config"

// version is injected at build time with -ldflags "-X main.version=...".
var version = "dev"

// parseFlags thinly wraps config.Parse so main stays free of flag-parsing
// concerns.
func parseFlags(args []string) (*config.Config, error) {
	return config.Parse(args)
}
