// Command cellsim runs and inspects cellular part simulations.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/roach88/cellsim/internal/cli"
	"github.com/roach88/cellsim/internal/logging"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		logging.New(slog.LevelError).Error("cellsim failed", "err", err, "exit_code", cli.GetExitCode(err))
		os.Exit(cli.GetExitCode(err))
	}
}
