// Command drtbatch runs the EIS to DRT batch pipeline over one root directory:
// raw instrument exports are trimmed, inverted into distributions of
// relaxation times and aggregated into a master matrix.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"drtbatch/internal/app"
	"drtbatch/pkg/contracts"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("drtbatch", flag.ContinueOnError)
	root := fs.String("root", "", "pipeline root holding 0_Raw_Input and the stage directories (default from config, then ./data)")
	step := fs.String("step", "all", "step to run: trim, drt, matrix or all")
	configFile := fs.String("config", "", "optional YAML configuration file")
	backend := fs.String("backend", "", "DRT backend: tikhonov or command")
	xlsx := fs.Bool("xlsx", false, "also write the master matrix as an Excel workbook")
	plot := fs.Bool("plot", false, "also render the master matrix as a PNG plot")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn or error")
	version := fs.Bool("version", false, "print the version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *version {
		fmt.Println(contracts.GetFullVersionString())
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Main(ctx, app.Options{
		ConfigFile: *configFile,
		Root:       *root,
		Step:       *step,
		Backend:    *backend,
		LogLevel:   *logLevel,
		XLSX:       *xlsx,
		Plot:       *plot,
	})
}
