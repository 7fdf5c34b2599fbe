// Package main provides the worksite CLI.
package main

import "github.com/mesh-intelligence/worksite/internal/cli"

func main() {
	cli.Execute()
}
