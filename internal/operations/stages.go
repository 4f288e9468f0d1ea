package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"drtbatch/internal/config"
	"drtbatch/internal/dataprocessing"
	"drtbatch/internal/drt"
	apperrors "drtbatch/internal/errors"
	"drtbatch/internal/files"
	"drtbatch/internal/infrastructure"
	"drtbatch/internal/validation"
	"drtbatch/pkg/contracts/domain"

	"golang.org/x/sync/errgroup"
)

// stepState returns the state of id, creating a detached one when a step
// runs outside a Manager
func stepState(state *OperationState, id, name string) *StepState {
	if state != nil {
		if st := state.GetStage(id); st != nil {
			return st
		}
	}
	return NewStepState(id, name)
}

// TrimStage normalizes raw instrument exports into trimmed series
type TrimStage struct {
	BaseStage
	options *StageOptions
	logger  *slog.Logger
}

// NewTrimStage creates the trim step
func NewTrimStage(options *StageOptions, logger *slog.Logger) *TrimStage {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("step", StageIDTrim))
	opts := options.withDefaults(logger)
	return &TrimStage{
		BaseStage: NewBaseStage(StageIDTrim, StageNameTrim, nil,
			[]DataRequirement{{
				Type:       DataTypeRawFiles,
				Location:   opts.layout().RawDir,
				MinCount:   1,
				Extensions: []string{config.RawExtension},
			}},
			[]DataOutput{{
				Type:       DataTypeTrimmedFiles,
				Location:   opts.layout().TrimmedDir,
				Pattern:    config.TrimmedPrefix + "*",
				Extensions: []string{config.TrimmedExtension},
			}}),
		options: opts,
		logger:  logger,
	}
}

// Validate checks that the step has a layout to work on
func (s *TrimStage) Validate(state *OperationState) error {
	return s.options.validatePaths(s.ID())
}

// Execute trims every raw export in the raw input directory. Files already
// carrying the trimmed prefix are not candidates, so re-running is idempotent.
func (s *TrimStage) Execute(ctx context.Context, state *OperationState) error {
	st := stepState(state, s.ID(), s.Name())
	paths := s.options.Paths

	if err := s.options.Validator.ValidateInputDirectory(paths.RawDir); err != nil {
		return WrapError(err, s.ID(), "raw input directory unusable")
	}
	if err := s.options.Validator.ValidateOutputDirectory(paths.TrimmedDir); err != nil {
		return WrapError(err, s.ID(), "trimmed directory unusable")
	}

	found, err := s.options.Discovery.FindByExtensions(paths.RawDir, config.RawExtension)
	if err != nil {
		return NewExecutionError(s.ID(), err, false)
	}
	candidates := found[:0:0]
	for _, f := range found {
		if !strings.HasPrefix(f.Name, config.TrimmedPrefix) {
			candidates = append(candidates, f)
		}
	}

	counts := FileCounts{Found: len(candidates)}
	defer func() { st.RecordCounts(counts) }()

	s.logger.InfoContext(ctx, "trim_start",
		slog.String("input_dir", paths.RawDir),
		slog.Int("file_count", len(candidates)))

	progress := NewProgressTracker(st, len(candidates))
	for _, f := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}

		outcome := s.trimFile(ctx, f)
		switch outcome {
		case infrastructure.OutcomeWritten:
			counts.Written++
		case infrastructure.OutcomeRejected:
			counts.Rejected++
		default:
			counts.Failed++
		}
		s.options.Tracer.RecordFile(ctx, s.ID(), outcome)
		progress.Increment(f.Name)
	}

	s.logger.InfoContext(ctx, "trim_complete",
		slog.Int("written", counts.Written),
		slog.Int("rejected", counts.Rejected),
		slog.Int("failed", counts.Failed))
	return nil
}

// trimFile trims one raw file and returns its outcome
func (s *TrimStage) trimFile(ctx context.Context, f files.FileInfo) string {
	data, err := s.options.Files.ReadFile(f.Path)
	if err != nil {
		s.logger.ErrorContext(ctx, "file_read_failed",
			append([]any{slog.String("file", f.Name)}, apperrors.LogAttrs(err)...)...)
		return infrastructure.OutcomeFailed
	}

	series, stats, err := dataprocessing.TrimRaw(f.Name, data, config.RawHeaderLines)
	if dataprocessing.IsRejection(err) {
		s.logger.WarnContext(ctx, "file_rejected",
			slog.String("file", f.Name),
			slog.Int("raw_columns", stats.RawColumns),
			slog.String("reason", err.Error()))
		return infrastructure.OutcomeRejected
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "file_trim_failed",
			append([]any{slog.String("file", f.Name)}, apperrors.LogAttrs(err)...)...)
		return infrastructure.OutcomeFailed
	}
	if stats.RowsDropped > 0 {
		s.logger.DebugContext(ctx, "rows_dropped",
			slog.String("file", f.Name),
			slog.Int("rows_dropped", stats.RowsDropped))
	}

	outName := dataprocessing.TrimmedFileName(f.Name, config.TrimmedPrefix)
	outPath := filepath.Join(s.options.Paths.TrimmedDir, outName)
	if err := s.options.Writer.WriteTrimmedSeries(outPath, series); err != nil {
		s.logger.ErrorContext(ctx, "file_write_failed",
			slog.String("file", outName),
			slog.String("error", err.Error()))
		return infrastructure.OutcomeFailed
	}

	s.logger.InfoContext(ctx, "file_trimmed",
		slog.String("file", f.Name),
		slog.String("output", outName),
		slog.String("delimiter", stats.Delimiter),
		slog.Int("raw_columns", stats.RawColumns),
		slog.Int("rows", stats.RowsKept))
	return infrastructure.OutcomeWritten
}

// DRTStage runs the inversion backend over every trimmed series
type DRTStage struct {
	BaseStage
	options  *StageOptions
	inverter drt.Inverter
	logger   *slog.Logger
}

// NewDRTStage creates the DRT step. The inverter comes from options.
func NewDRTStage(options *StageOptions, logger *slog.Logger) *DRTStage {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("step", StageIDDRT))
	opts := options.withDefaults(logger)

	var inverter drt.Inverter
	if opts.Inverter != nil {
		inverter = drt.Checked(opts.Inverter)
	}
	return &DRTStage{
		BaseStage: NewBaseStage(StageIDDRT, StageNameDRT, []string{StageIDTrim},
			[]DataRequirement{{
				Type:       DataTypeTrimmedFiles,
				Location:   opts.layout().TrimmedDir,
				MinCount:   1,
				Extensions: []string{config.TrimmedExtension},
			}},
			[]DataOutput{{
				Type:       DataTypeDRTResults,
				Location:   opts.layout().DRTDir,
				Pattern:    config.DRTPrefix + "*",
				Extensions: config.DRTResultExtensions,
			}}),
		options:  opts,
		inverter: inverter,
		logger:   logger,
	}
}

// Validate checks the layout and the backend
func (s *DRTStage) Validate(state *OperationState) error {
	if err := s.options.validatePaths(s.ID()); err != nil {
		return err
	}
	if s.inverter == nil {
		return NewValidationError(s.ID(), "no DRT backend configured")
	}
	return nil
}

// Execute inverts every trimmed series and writes one tau,gamma CSV per file.
// A file that cannot be read or inverted is logged and skipped.
func (s *DRTStage) Execute(ctx context.Context, state *OperationState) error {
	st := stepState(state, s.ID(), s.Name())
	paths := s.options.Paths

	if err := s.options.Validator.ValidateInputDirectory(paths.TrimmedDir); err != nil {
		return WrapError(err, s.ID(), "trimmed directory unusable")
	}
	if err := s.options.Validator.ValidateOutputDirectory(paths.DRTDir); err != nil {
		return WrapError(err, s.ID(), "DRT output directory unusable")
	}

	found, err := s.options.Discovery.FindByExtensions(paths.TrimmedDir, config.TrimmedExtension)
	if err != nil {
		return NewExecutionError(s.ID(), err, false)
	}

	counts := FileCounts{Found: len(found)}
	defer func() { st.RecordCounts(counts) }()

	s.logger.InfoContext(ctx, "drt_start",
		slog.String("input_dir", paths.TrimmedDir),
		slog.String("backend", s.options.Backend),
		slog.Int("file_count", len(found)))

	progress := NewProgressTracker(st, len(found))
	for _, f := range found {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.invertFile(ctx, f)
		if err != nil && ctx.Err() != nil {
			// the step deadline or the run was cancelled mid-inversion
			return ctx.Err()
		}

		outcome := infrastructure.OutcomeWritten
		if err != nil {
			outcome = infrastructure.OutcomeFailed
			counts.Failed++
			s.logger.ErrorContext(ctx, "drt_failed",
				append([]any{slog.String("file", f.Name)}, apperrors.LogAttrs(err)...)...)
		} else {
			counts.Written++
		}
		s.options.Tracer.RecordFile(ctx, s.ID(), outcome)
		progress.Increment(f.Name)
	}

	s.logger.InfoContext(ctx, "drt_complete",
		slog.Int("written", counts.Written),
		slog.Int("failed", counts.Failed))
	return nil
}

// invertFile reads one trimmed series, inverts it and writes the result
func (s *DRTStage) invertFile(ctx context.Context, f files.FileInfo) error {
	series, err := readTrimmed(s.options.Validator, f)
	if err != nil {
		return err
	}

	start := time.Now()
	tau, gamma, err := s.inverter.Invert(ctx, series.Frequency, series.ZReal, series.ZImag)
	s.options.Tracer.RecordInversion(ctx, s.options.Backend, time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("inversion failed: %w", err)
	}

	outName := dataprocessing.DRTFileName(f.Name, config.TrimmedPrefix, config.DRTPrefix)
	outPath := filepath.Join(s.options.Paths.DRTDir, outName)
	result := domain.DRTResult{Name: outName, Tau: tau, Gamma: gamma}
	if err := s.options.Writer.WriteDRTResult(outPath, result); err != nil {
		return fmt.Errorf("failed to write %s: %w", outName, err)
	}

	s.logger.InfoContext(ctx, "drt_written",
		slog.String("file", f.Name),
		slog.String("output", outName),
		slog.Int("input_points", series.Len()),
		slog.Int("points", len(tau)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func readTrimmed(v *validation.FileValidator, f files.FileInfo) (domain.TrimmedSeries, error) {
	if err := v.ValidateFile(f.Path); err != nil {
		return domain.TrimmedSeries{}, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return domain.TrimmedSeries{}, err
	}
	defer file.Close()
	return dataprocessing.ReadTrimmedSeries(file, f.Name)
}

// MatrixStage aligns every DRT result into the master matrix
type MatrixStage struct {
	BaseStage
	options *StageOptions
	logger  *slog.Logger
}

// NewMatrixStage creates the matrix step
func NewMatrixStage(options *StageOptions, logger *slog.Logger) *MatrixStage {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("step", StageIDMatrix))
	opts := options.withDefaults(logger)
	return &MatrixStage{
		BaseStage: NewBaseStage(StageIDMatrix, StageNameMatrix, []string{StageIDDRT},
			[]DataRequirement{{
				Type:       DataTypeDRTResults,
				Location:   opts.layout().DRTDir,
				MinCount:   1,
				Extensions: config.DRTResultExtensions,
			}},
			[]DataOutput{{
				Type:       DataTypeMatrix,
				Location:   opts.layout().MatrixDir,
				Pattern:    config.MatrixBaseName + ".*",
				Extensions: []string{".csv", ".xlsx", ".png"},
			}}),
		options: opts,
		logger:  logger,
	}
}

// Validate checks that the step has a layout to work on
func (s *MatrixStage) Validate(state *OperationState) error {
	return s.options.validatePaths(s.ID())
}

// Execute reads the DRT results in numeric filename order, aggregates them
// and writes the matrix. With nothing to aggregate no file is written.
func (s *MatrixStage) Execute(ctx context.Context, state *OperationState) error {
	st := stepState(state, s.ID(), s.Name())
	paths := s.options.Paths

	if err := s.options.Validator.ValidateInputDirectory(paths.DRTDir); err != nil {
		return WrapError(err, s.ID(), "DRT output directory unusable")
	}
	if err := s.options.Validator.ValidateOutputDirectory(paths.MatrixDir); err != nil {
		return WrapError(err, s.ID(), "matrix directory unusable")
	}

	found, err := s.options.Discovery.FindByExtensions(paths.DRTDir, config.DRTResultExtensions...)
	if err != nil {
		return NewExecutionError(s.ID(), err, false)
	}

	counts := FileCounts{Found: len(found)}
	defer func() { st.RecordCounts(counts) }()

	results := make([]domain.DRTResult, 0, len(found))
	progress := NewProgressTracker(st, len(found))
	for _, f := range found {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := readDRTResult(s.options.Validator, f)
		if err != nil {
			counts.Failed++
			s.options.Tracer.RecordFile(ctx, s.ID(), infrastructure.OutcomeFailed)
			s.logger.WarnContext(ctx, "drt_result_unreadable",
				append([]any{slog.String("file", f.Name)}, apperrors.LogAttrs(err)...)...)
			progress.Increment(f.Name)
			continue
		}
		result.Name = dataprocessing.MatrixLabel(f.Name, config.DRTPrefix)
		results = append(results, result)
		progress.Increment(f.Name)
	}

	matrix, err := dataprocessing.Aggregate(results)
	if errors.Is(err, dataprocessing.ErrNoResults) {
		s.logger.ErrorContext(ctx, "matrix_aborted",
			slog.String("input_dir", paths.DRTDir),
			slog.String("reason", "no readable DRT results"))
		return NewNoInputError(s.ID(), fmt.Sprintf("no readable DRT results in %s", paths.DRTDir))
	}
	if err != nil {
		return NewExecutionError(s.ID(), err, false)
	}

	if err := s.options.Writer.WriteMatrix(paths.MatrixCSV, matrix); err != nil {
		return NewExecutionError(s.ID(), err, false)
	}
	counts.Written = len(matrix.Labels)
	for range matrix.Labels {
		s.options.Tracer.RecordFile(ctx, s.ID(), infrastructure.OutcomeWritten)
	}
	st.SetMetadata(ContextKeyOutputFile, paths.MatrixCSV)
	st.SetMetadata("rows", matrix.Rows())
	st.SetMetadata("columns", len(matrix.Labels))

	s.logger.InfoContext(ctx, "matrix_written",
		slog.String("output", paths.MatrixCSV),
		slog.Int("rows", matrix.Rows()),
		slog.Int("columns", len(matrix.Labels)))

	s.writeExports(ctx, matrix)
	return nil
}

// writeExports writes the optional workbook and plot. Failures are logged
// only; the CSV is the primary output.
func (s *MatrixStage) writeExports(ctx context.Context, matrix *domain.MasterMatrix) {
	paths := s.options.Paths
	exports := []struct {
		enabled bool
		kind    string
		path    string
		write   func(string, *domain.MasterMatrix) error
	}{
		{s.options.Export.XLSX, "workbook", paths.MatrixXLSX, s.options.Writer.WriteMatrixWorkbook},
		{s.options.Export.Plot, "plot", paths.MatrixPNG, s.options.Writer.WriteMatrixPlot},
	}

	// Exports are independent; a failed one is logged and never fails the step.
	var g errgroup.Group
	for _, e := range exports {
		if !e.enabled {
			continue
		}
		g.Go(func() error {
			if err := e.write(e.path, matrix); err != nil {
				s.logger.WarnContext(ctx, "matrix_"+e.kind+"_failed", slog.String("error", err.Error()))
				return nil
			}
			s.logger.InfoContext(ctx, "matrix_"+e.kind+"_written", slog.String("output", e.path))
			return nil
		})
	}
	g.Wait()
}

func readDRTResult(v *validation.FileValidator, f files.FileInfo) (domain.DRTResult, error) {
	if err := v.ValidateFile(f.Path); err != nil {
		return domain.DRTResult{}, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return domain.DRTResult{}, err
	}
	defer file.Close()
	return dataprocessing.ReadDRTResult(file, f.Name)
}

// StageFactory creates the pipeline steps in execution order
func StageFactory(options *StageOptions, logger *slog.Logger) []Step {
	return []Step{
		NewTrimStage(options, logger),
		NewDRTStage(options, logger),
		NewMatrixStage(options, logger),
	}
}

var (
	_ Step = (*TrimStage)(nil)
	_ Step = (*DRTStage)(nil)
	_ Step = (*MatrixStage)(nil)
)
