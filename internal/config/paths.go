package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains every path the pipeline reads or writes.
// This is the single source of truth for file locations.
type Paths struct {
	Root       string
	RawDir     string
	TrimmedDir string
	DRTDir     string
	MatrixDir  string
	LogsDir    string

	// Well-known files
	MatrixCSV    string
	MatrixXLSX   string
	MatrixPNG    string
	ManifestFile string
	MetricsFile  string
	LogFile      string
}

// NewPaths resolves the stage layout below root
func NewPaths(root string) (*Paths, error) {
	if root == "" {
		return nil, fmt.Errorf("root directory must not be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}

	matrixDir := filepath.Join(abs, MatrixDirName)
	logsDir := filepath.Join(abs, LogsDirName)

	return &Paths{
		Root:       abs,
		RawDir:     filepath.Join(abs, RawInputDirName),
		TrimmedDir: filepath.Join(abs, TrimmedDirName),
		DRTDir:     filepath.Join(abs, DRTOutputDirName),
		MatrixDir:  matrixDir,
		LogsDir:    logsDir,

		MatrixCSV:    filepath.Join(matrixDir, MatrixFileName),
		MatrixXLSX:   filepath.Join(matrixDir, MatrixWorkbookName),
		MatrixPNG:    filepath.Join(matrixDir, MatrixPlotName),
		ManifestFile: filepath.Join(abs, ManifestFileName),
		MetricsFile:  filepath.Join(logsDir, MetricsFileName),
		LogFile:      filepath.Join(logsDir, LogFileName),
	}, nil
}

// EnsureRawInput creates the raw input directory when it is missing.
// created reports whether the directory had to be created, in which case
// there is nothing to process yet.
func (p *Paths) EnsureRawInput() (created bool, err error) {
	info, err := os.Stat(p.RawDir)
	if err == nil {
		if !info.IsDir() {
			return false, fmt.Errorf("%s is not a directory", p.RawDir)
		}
		return false, nil
	}
	if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat %s: %w", p.RawDir, err)
	}
	if err := os.MkdirAll(p.RawDir, 0755); err != nil {
		return false, fmt.Errorf("failed to create directory %s: %w", p.RawDir, err)
	}
	return true, nil
}

// EnsureDirectories creates the output stage directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.TrimmedDir,
		p.DRTDir,
		p.MatrixDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// LogPathResolution logs the resolved layout at debug level
func (p *Paths) LogPathResolution() {
	slog.Debug("Resolved pipeline paths",
		slog.String("root", p.Root),
		slog.String("raw_dir", p.RawDir),
		slog.String("trimmed_dir", p.TrimmedDir),
		slog.String("drt_dir", p.DRTDir),
		slog.String("matrix_dir", p.MatrixDir),
		slog.String("logs_dir", p.LogsDir))
}
