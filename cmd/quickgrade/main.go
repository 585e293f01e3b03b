// Command quickgrade grades a single answer from the command line.
//
//	quickgrade --expected "Paris" --student "paris" --max-score 5 --mode exact
//	quickgrade similarity --answer "..." --previous "..." --previous "..."
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(loadEngine).Execute(); err != nil {
		os.Exit(1)
	}
}
