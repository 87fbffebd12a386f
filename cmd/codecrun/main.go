// Command codecrun is a demo host process for the codec runtime: it loads
// configuration, stands up a concurrency-capped Manager, and drives an
// encoder -> decoder pipeline over synthetic frames to exercise the
// configure/encode/flush/close lifecycle outside of any real media source.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
