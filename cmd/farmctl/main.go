// Command farmctl administers a farmdesk database: migrations, demo data,
// growth simulations and API tokens.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
