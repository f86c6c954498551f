// Entrypoint for the latencylab CLI; delegates to cmd/root.go.
package main

import (
	"github.com/latencylab/latencylab/cmd"
)

func main() {
	cmd.Execute()
}
