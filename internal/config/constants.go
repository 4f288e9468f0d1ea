package config

import "time"

// Application constants for the DRT batch pipeline
const (
	// Application Info
	AppName = "drtbatch"

	// EnvPrefix namespaces every environment variable read by Load
	EnvPrefix = "DRTBATCH"

	// Fixed stage directories under the root
	RawInputDirName  = "0_Raw_Input"
	TrimmedDirName   = "1_Trimmed_Data"
	DRTOutputDirName = "2_DRT_Output"
	MatrixDirName    = "3_Summary_Matrix"
	LogsDirName      = "logs"

	// RawHeaderLines is the size of the metadata block at the top of every
	// instrument export. It is a property of the export format, not a setting.
	RawHeaderLines = 18

	// File naming
	TrimmedPrefix      = "trimmed_"
	DRTPrefix          = "DRT_"
	RawExtension       = ".txt"
	TrimmedExtension   = ".txt"
	MatrixBaseName     = "Master_DRT_Matrix"
	MatrixFileName     = MatrixBaseName + ".csv"
	MatrixWorkbookName = MatrixBaseName + ".xlsx"
	MatrixPlotName     = MatrixBaseName + ".png"
	ManifestFileName   = "run_manifest.json"
	MetricsFileName    = "metrics.prom"
	LogFileName        = "drtbatch.log"

	// DRT backends
	BackendTikhonov = "tikhonov"
	BackendCommand  = "command"

	// DefaultTikhonovLambda is the regularization strength of the built-in backend
	DefaultTikhonovLambda = 1e-3

	// Stage timeouts
	DefaultTrimTimeout   = 10 * time.Minute
	DefaultDRTTimeout    = 60 * time.Minute
	DefaultMatrixTimeout = 5 * time.Minute

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// DRTResultExtensions lists the extensions the aggregator accepts
var DRTResultExtensions = []string{".csv", ".txt"}
