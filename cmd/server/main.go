// Package main is the scry-classroom server: the HTTP API, the notification
// websocket and the housekeeping commands.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
