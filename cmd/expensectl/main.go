package main

import (
	"context"
	"fmt"
	"os"

	"expensetracker/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	if err := newRootCmd(openConfigured).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
