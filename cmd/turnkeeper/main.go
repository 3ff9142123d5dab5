// Command turnkeeper replays scripted encounters and hosts or observes
// sessions over NATS outside of Nakama.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
