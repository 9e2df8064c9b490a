// Package main is the single-binary entrypoint for uitrail.
package main

import "github.com/uitrail/uitrail/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
