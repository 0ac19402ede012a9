// Command eve_golden replays every sealed dataset and WORM log against
// the invariants the evidence pipeline guarantees, running every check
// and exiting non-zero if any violation is found.
package main

import (
	"os"

	"github.com/elekto-energy/eve-witness/pkg/witness/cli"
)

func main() {
	os.Exit(cli.GoldenMain(os.Args[1:]))
}
