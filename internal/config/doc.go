// Package config provides centralized configuration and path management for
// the DRT batch pipeline.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Command line flags (applied by cmd/drtbatch)
//	2. Environment variables prefixed DRTBATCH_
//	3. An optional YAML file
//	4. Default values
//
// # Environment Variables
//
//	DRTBATCH_PATHS_ROOT=/data/eis
//	DRTBATCH_LOGGING_LEVEL=debug
//	DRTBATCH_DRT_BACKEND=command
//	DRTBATCH_DRT_COMMAND=python3,scripts/pydrt_invert.py
//	DRTBATCH_TELEMETRY_METRICS=true
//
// Environment variables only tune logging, telemetry, exports and the
// inversion backend. Stage semantics depend on the root path alone.
//
// # Path Management
//
// Paths resolves the fixed stage layout below the root:
//
//	<root>/
//	  ├── 0_Raw_Input/        (instrument exports, *.txt)
//	  ├── 1_Trimmed_Data/     (trimmed_*.txt, tab separated)
//	  ├── 2_DRT_Output/       (DRT_*.txt, tau,gamma CSV)
//	  ├── 3_Summary_Matrix/   (Master_DRT_Matrix.csv)
//	  ├── logs/
//	  └── run_manifest.json
package config
