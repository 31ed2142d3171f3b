// Command lidarqc runs the lidar data-quality pipeline.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/lidarqc/internal/adapters/driving/cli"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	app := &application{lookup: available}
	cli.SetVersion(version)
	cli.SetBootstrap(app.bootstrap)

	err := cli.Execute(ctx)
	if cerr := app.Close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "closing: %v\n", cerr)
	}
	stop()
	os.Exit(cli.ExitCode(err))
}
