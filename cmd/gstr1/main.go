// Command gstr1 builds GSTR-1 workbooks from section extracts on the command line.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
