/*
This is the entrypoint for the fluentdb binary.
*/
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/coregx/fluentdb/cmd"
)

func main() {
	rootCmd := cmd.NewRootCommand(os.Stdout, os.Stderr)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
