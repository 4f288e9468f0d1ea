// Package app wires one drtbatch invocation together.
//
// # Initialization Flow
//
//	1. Load configuration: defaults, optional YAML file, DRTBATCH_* environment
//	2. Apply command line overrides and validate
//	3. Build the logger (console, <root>/logs/drtbatch.log or both)
//	4. Prepare the root: create 0_Raw_Input and stop if it was missing,
//	   otherwise create the output stage directories
//	5. Initialize OpenTelemetry, the DRT backend and the pipeline steps
//	6. Execute the requested step or the whole pipeline
//	7. Dump metrics to <root>/logs/metrics.prom and shut telemetry down
//
// # Usage
//
//	os.Exit(app.Main(ctx, app.Options{Root: "/data/cells", Step: "all"}))
//
// # Error Handling
//
// Errors are returned to the caller; only Main turns them into an exit
// code. Problems with individual files never fail a run.
package app
