// The main package for the chess-graph-crawler executable.
package main

import (
	"github.com/JakeFAU/chess-graph-crawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
