// The main package for the boe-sumario executable.
package main

import (
	"github.com/JakeFAU/boe-sumario-crawler/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
