// Command eve_build canonicalizes source-format streams into sealed,
// hash-chained evidence datasets.
package main

import (
	"os"

	"github.com/elekto-energy/eve-witness/pkg/witness/cli"
)

func main() {
	os.Exit(cli.BuildMain(os.Args[1:]))
}
