package main

import (
	"context"
	"fmt"
	"os"

	"histport.dev/histport/internal/cli"
	"histport.dev/histport/internal/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	tui.ConfigureColor()

	rootCmd := cli.NewRootCmd(version, commit, date)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", tui.ColorRed("error:"), err)
		os.Exit(cli.ExitCode(err))
	}
}
