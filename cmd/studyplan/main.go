package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/studyplan/internal/cmd"
	"github.com/felixgeelhaar/studyplan/internal/exitcode"
	"github.com/felixgeelhaar/studyplan/internal/log"
	"github.com/felixgeelhaar/studyplan/internal/ux"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		exitcode.Exit(exitcode.Success)
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		fmt.Fprintln(os.Stderr, "\nOperation cancelled by user")
		exitcode.Exit(exitcode.Interrupted)
	}

	log.DefaultLogger().WithError(err).Debug("command failed", "exit_code", exitcode.DetermineExitCode(err))
	fmt.Fprintf(os.Stderr, "Error: %v\n", ux.EnhanceError(err))
	exitcode.ExitWithError(err)
}
