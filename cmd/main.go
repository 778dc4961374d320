// Package main is the entry point for vaporfx.
//
// vaporfx renders the vapor field, evaporation bursts and the microphone
// visualizer, either in a desktop window or headless:
//
//	vaporfx run                 # desktop shell (default)
//	vaporfx render --effect evaporate --out frames/
//	vaporfx probe --duration 5s # microphone level plot
//	vaporfx version
//
// Build:
//
//	go build -o build/vaporfx ./cmd
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
