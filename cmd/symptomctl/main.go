// Command symptomctl is the operator CLI for the symptom checker: it queries
// a running predictor over RPC, or scores and inspects artifacts offline.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
