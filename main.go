package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		exitOnError(err)
	}
}

// exitOnError prints the error and exits non-zero.
func exitOnError(err error) {
	printError(err)
	os.Exit(1)
}
