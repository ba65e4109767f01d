// Command catalogsync publishes warehouse lineage and statistics to the
// data catalog.
package main

import (
	"os"

	"github.com/leapstack-labs/catalogsync/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
