// filepath: cmd/moviedb/main.go
package main

import (
	"moviedb/internal/cli"
)

func main() {
	// Delegate all execution to the CLI package
	cli.Execute()
}
