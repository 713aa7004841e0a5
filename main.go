package main

import (
	"fmt"
	"os"
	"os/exec"
)

// main.go at root is a convenience wrapper for running cmd/facade
// in production, use the binary built from cmd/facade directly
func main() {
	cmd := exec.Command("go", "run", "./cmd/facade")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
