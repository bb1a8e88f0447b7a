// Command beekeeper is the command line client and caching proxy for the
// BeeKeeper blog API.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
