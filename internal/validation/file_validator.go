// Package validation checks stage directories and input files before a stage
// starts reading them.
package validation

import (
	"fmt"
	"log/slog"
	"os"

	apperrors "drtbatch/internal/errors"
)

// FileValidator provides file and directory checks shared by the stages
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger}
}

// ValidateInputDirectory checks that dir exists and is a directory.
// An empty directory is valid: there is simply nothing to process.
func (v *FileValidator) ValidateInputDirectory(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("input_directory_missing", slog.String("directory", dir))
		return apperrors.NewNotFoundError(fmt.Sprintf("input directory %s", dir))
	}
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to stat directory %s", dir), err)
	}
	if !info.IsDir() {
		v.logger.Error("input_path_not_directory", slog.String("path", dir))
		return apperrors.NewValidationError(fmt.Sprintf("%s is not a directory", dir))
	}
	return nil
}

// ValidateOutputDirectory ensures dir exists and accepts new files
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("output_directory_create_failed",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	scratch, err := os.CreateTemp(dir, ".write_test-*")
	if err != nil {
		v.logger.Error("output_directory_not_writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	scratch.Close()
	os.Remove(scratch.Name())
	return nil
}

// ValidateFile checks that path is a readable regular file
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return apperrors.NewNotFoundError(fmt.Sprintf("file %s", path))
	}
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to stat file %s", path), err)
	}
	if !info.Mode().IsRegular() {
		return apperrors.NewValidationError(fmt.Sprintf("%s is not a regular file", path))
	}

	file, err := os.Open(path)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("file %s is not readable", path), err)
	}
	file.Close()

	v.logger.Debug("file_validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}
