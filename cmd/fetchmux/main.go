package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	fetchmuxcmd "github.com/ytget/fetchmux/internal/cli/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fetchmuxcmd.Execute(ctx); err != nil {
		var ee *fetchmuxcmd.ExitError
		if errors.As(err, &ee) {
			if ee.Err != nil {
				fmt.Fprintln(os.Stderr, ee.Err)
			}
			os.Exit(ee.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(fetchmuxcmd.ExitCLIError)
	}
	os.Exit(fetchmuxcmd.ExitOK)
}
