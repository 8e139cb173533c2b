// Command ldmatch matches JSON-LD graph patterns against linked-data
// documents or graphs stored in a local BadgerDB database.
package main

import (
	"os"
)

func main() {
	rootCmd := newRootCommand()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
