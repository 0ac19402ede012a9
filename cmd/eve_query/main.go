// Command eve_query answers a provenance-carrying query over sealed
// canonical datasets.
package main

import (
	"os"

	"github.com/elekto-energy/eve-witness/pkg/witness/cli"
)

func main() {
	os.Exit(cli.QueryMain(os.Args[1:]))
}
