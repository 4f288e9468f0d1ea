package operations_test

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"drtbatch/internal/config"
	"drtbatch/internal/dataprocessing"
	"drtbatch/internal/drt"
	"drtbatch/internal/operations"
	"drtbatch/internal/operations/testutil"
	sharedtest "drtbatch/internal/shared/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoInverter maps every point to tau = 1/(2 pi f) and gamma = -Z''
func echoInverter() drt.Inverter {
	return drt.InverterFunc(func(_ context.Context, frequency, _, zImag []float64) ([]float64, []float64, error) {
		tau := make([]float64, len(frequency))
		gamma := make([]float64, len(frequency))
		for i, f := range frequency {
			tau[i] = 1 / (2 * math.Pi * f)
			gamma[i] = -zImag[i]
		}
		return tau, gamma, nil
	})
}

type pipeline struct {
	paths   *config.Paths
	manager *operations.Manager
	handler *sharedtest.BufferedSlogHandler
}

func newPipeline(t *testing.T, inverter drt.Inverter, export config.ExportConfig) *pipeline {
	t.Helper()
	paths := testutil.NewPipelineRoot(t)
	logger, handler := sharedtest.NewTestLogger(t)

	options := &operations.StageOptions{Paths: paths, Inverter: inverter, Export: export}
	registry := operations.NewRegistry()
	for _, step := range operations.StageFactory(options, logger) {
		require.NoError(t, registry.Register(step))
	}
	cfg := operations.NewConfigBuilder().WithManifestPath(paths.ManifestFile).Build()

	return &pipeline{
		paths:   paths,
		manager: operations.NewManager(registry, cfg, nil, logger),
		handler: handler,
	}
}

func (p *pipeline) run(t *testing.T, step string) *operations.OperationResponse {
	t.Helper()
	resp, err := p.manager.Execute(context.Background(), stepRequest(step))
	require.NoError(t, err)
	require.Equal(t, operations.OperationStatusCompleted, resp.Status)
	return resp
}

func (p *pipeline) addRaw(t *testing.T, name string, points int, extra ...float64) {
	t.Helper()
	freq, zr, zi := testutil.RCSweep(points, 10, 100, 1e-3)
	testutil.WriteFile(t, p.paths.RawDir, name, testutil.RawExport("\t", freq, zr, zi, extra...))
}

func readMatrix(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestPipelineEndToEnd(t *testing.T) {
	p := newPipeline(t, echoInverter(), config.ExportConfig{})
	// created out of numeric order on purpose
	p.addRaw(t, "sample10.txt", 12)
	p.addRaw(t, "sample2.txt", 12, 0.5)
	p.addRaw(t, "sample1.txt", 12)

	resp := p.run(t, operations.StepAll)
	for _, id := range []string{operations.StageIDTrim, operations.StageIDDRT, operations.StageIDMatrix} {
		assert.Equal(t, operations.StepStatusCompleted, resp.Steps[id].Status, id)
	}

	assert.ElementsMatch(t,
		[]string{"trimmed_sample1.txt", "trimmed_sample2.txt", "trimmed_sample10.txt"},
		testutil.ListDir(t, p.paths.TrimmedDir))
	assert.ElementsMatch(t,
		[]string{"DRT_sample1.txt", "DRT_sample2.txt", "DRT_sample10.txt"},
		testutil.ListDir(t, p.paths.DRTDir))

	records := readMatrix(t, p.paths.MatrixCSV)
	require.Len(t, records, 13)
	assert.Equal(t, []string{"Tau", "sample1", "sample2", "sample10"}, records[0])

	// the extra column of sample2 must not leak into the trimmed series
	f, err := os.Open(filepath.Join(p.paths.TrimmedDir, "trimmed_sample2.txt"))
	require.NoError(t, err)
	defer f.Close()
	series, err := dataprocessing.ReadTrimmedSeries(f, "trimmed_sample2.txt")
	require.NoError(t, err)
	assert.Equal(t, 12, series.Len())
	line := strings.SplitN(testutil.ReadFile(t, f.Name()), "\n", 2)[0]
	assert.Len(t, strings.Split(line, "\t"), 3)

	assert.True(t, p.handler.ContainsMessage("matrix_written"))
	sharedtest.AssertNoErrors(t, p.handler)
}

func TestPipelineTrimIsIdempotent(t *testing.T) {
	p := newPipeline(t, echoInverter(), config.ExportConfig{})
	p.addRaw(t, "cell_A.txt", 8)

	p.run(t, operations.StageIDTrim)
	out := filepath.Join(p.paths.TrimmedDir, "trimmed_cell_A.txt")
	first := testutil.ReadFile(t, out)

	// a stray trimmed file in the raw directory is never trimmed again
	testutil.WriteFile(t, p.paths.RawDir, "trimmed_cell_A.txt", first)

	resp := p.run(t, operations.StageIDTrim)
	assert.Equal(t, first, testutil.ReadFile(t, out))
	assert.Equal(t, []string{"trimmed_cell_A.txt"}, testutil.ListDir(t, p.paths.TrimmedDir))
	assert.Equal(t, 1, resp.Steps[operations.StageIDTrim].Metadata[operations.ContextKeyFilesFound])
}

func TestPipelineTrimRejectsNarrowFiles(t *testing.T) {
	p := newPipeline(t, echoInverter(), config.ExportConfig{})
	p.addRaw(t, "good.txt", 6)

	var b strings.Builder
	for i := range config.RawHeaderLines {
		b.WriteString("header ")
		b.WriteString(string(rune('a' + i)))
		b.WriteString("\n")
	}
	b.WriteString("1000\t5.0\n100\t6.0\n")
	testutil.WriteFile(t, p.paths.RawDir, "narrow.txt", b.String())

	resp := p.run(t, operations.StageIDTrim)

	assert.Equal(t, []string{"trimmed_good.txt"}, testutil.ListDir(t, p.paths.TrimmedDir))
	md := resp.Steps[operations.StageIDTrim].Metadata
	assert.Equal(t, 2, md[operations.ContextKeyFilesFound])
	assert.Equal(t, 1, md[operations.ContextKeyFilesWritten])
	assert.Equal(t, 1, md[operations.ContextKeyFilesRejected])
	assert.True(t, p.handler.ContainsMessage("file_rejected"))
}

func TestPipelineMatrixWithoutResults(t *testing.T) {
	p := newPipeline(t, echoInverter(), config.ExportConfig{})
	prior := "Tau,old\n1,10\n2,20\n"
	testutil.WriteFile(t, p.paths.MatrixDir, filepath.Base(p.paths.MatrixCSV), prior)

	resp := p.run(t, operations.StageIDMatrix)
	assert.Equal(t, operations.StepStatusSkipped, resp.Steps[operations.StageIDMatrix].Status)
	assert.Equal(t, prior, testutil.ReadFile(t, p.paths.MatrixCSV))

	// results that are all unreadable abort the step the same way
	testutil.WriteFile(t, p.paths.DRTDir, "DRT_broken.csv", "")
	testutil.WriteFile(t, p.paths.DRTDir, "DRT_garbage.txt", "tau,gamma\nx,y\n")
	resp = p.run(t, operations.StageIDMatrix)
	assert.Equal(t, operations.StepStatusSkipped, resp.Steps[operations.StageIDMatrix].Status)
	assert.Equal(t, prior, testutil.ReadFile(t, p.paths.MatrixCSV))
	assert.True(t, p.handler.ContainsMessage("matrix_aborted"))
	assert.Len(t, p.handler.FindRecords("drt_result_unreadable"), 2)
}

func TestPipelineMatrixLabelsStripLeadingMarkerAndOneSuffix(t *testing.T) {
	p := newPipeline(t, echoInverter(), config.ExportConfig{})
	testutil.WriteFile(t, p.paths.DRTDir, "DRT_cell.csv.txt", "tau,gamma\n1,10\n2,20\n")
	testutil.WriteFile(t, p.paths.DRTDir, "DRT_a_DRT_b.csv", "tau,gamma\n1,11\n2,21\n")

	p.run(t, operations.StageIDMatrix)

	records := readMatrix(t, p.paths.MatrixCSV)
	assert.Equal(t, "Tau", records[0][0])
	assert.ElementsMatch(t, []string{"cell.csv", "a_DRT_b"}, records[0][1:])
}

func TestPipelineMatrixTruncatesToShortestResult(t *testing.T) {
	p := newPipeline(t, echoInverter(), config.ExportConfig{})
	testutil.WriteFile(t, p.paths.DRTDir, "DRT_a.csv", "tau,gamma\n1,10\n2,20\n3,30\n")
	testutil.WriteFile(t, p.paths.DRTDir, "DRT_b.csv", "tau,gamma\n1,11\n2,21\n")
	testutil.WriteFile(t, p.paths.DRTDir, "DRT_c.txt", "tau,gamma\n1,12\n2,22\n3,32\n4,42\n")
	testutil.WriteFile(t, p.paths.DRTDir, "notes.md", "ignored")

	resp := p.run(t, operations.StageIDMatrix)

	records := readMatrix(t, p.paths.MatrixCSV)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Tau", "a", "b", "c"}, records[0])
	assert.Equal(t, []string{"1", "10", "11", "12"}, records[1])
	assert.Equal(t, []string{"2", "20", "21", "22"}, records[2])

	md := resp.Steps[operations.StageIDMatrix].Metadata
	assert.Equal(t, 2, md["rows"])
	assert.Equal(t, 3, md["columns"])
}

func TestPipelineDRTFailuresAreSkipped(t *testing.T) {
	inverter := drt.InverterFunc(func(ctx context.Context, frequency, zReal, zImag []float64) ([]float64, []float64, error) {
		if len(frequency) < 5 {
			return nil, nil, errors.New("too few points")
		}
		return echoInverter().Invert(ctx, frequency, zReal, zImag)
	})
	p := newPipeline(t, inverter, config.ExportConfig{})
	p.addRaw(t, "long.txt", 10)
	p.addRaw(t, "short.txt", 3)

	resp := p.run(t, operations.StepAll)

	assert.Equal(t, []string{"DRT_long.txt"}, testutil.ListDir(t, p.paths.DRTDir))
	md := resp.Steps[operations.StageIDDRT].Metadata
	assert.Equal(t, 1, md[operations.ContextKeyFilesWritten])
	assert.Equal(t, 1, md[operations.ContextKeyFilesFailed])
	assert.True(t, p.handler.ContainsMessage("drt_failed"))

	records := readMatrix(t, p.paths.MatrixCSV)
	assert.Equal(t, []string{"Tau", "long"}, records[0])
}

func TestPipelineSkipsStepsWithoutInput(t *testing.T) {
	p := newPipeline(t, echoInverter(), config.ExportConfig{})

	resp := p.run(t, operations.StepAll)
	for _, id := range []string{operations.StageIDTrim, operations.StageIDDRT, operations.StageIDMatrix} {
		assert.Equal(t, operations.StepStatusSkipped, resp.Steps[id].Status, id)
	}
	assert.NoFileExists(t, p.paths.MatrixCSV)
}

func TestPipelineOptionalExports(t *testing.T) {
	p := newPipeline(t, echoInverter(), config.ExportConfig{XLSX: true, Plot: true})
	p.addRaw(t, "s1.txt", 10)
	p.addRaw(t, "s2.txt", 10)

	p.run(t, operations.StepAll)

	assert.FileExists(t, p.paths.MatrixCSV)
	assert.FileExists(t, p.paths.MatrixXLSX)
	assert.FileExists(t, p.paths.MatrixPNG)
	assert.True(t, p.handler.ContainsMessage("matrix_workbook_written"))
	assert.True(t, p.handler.ContainsMessage("matrix_plot_written"))
}

func TestPipelineManifestCounts(t *testing.T) {
	p := newPipeline(t, echoInverter(), config.ExportConfig{})
	p.addRaw(t, "x1.txt", 8)
	p.addRaw(t, "x2.txt", 8)

	resp := p.run(t, operations.StepAll)

	manifest, err := operations.LoadManifestFromFile(p.paths.ManifestFile)
	require.NoError(t, err)
	assert.Equal(t, resp.ID, manifest.OperationID)
	assert.Equal(t, operations.ManifestStatusCompleted, manifest.Status)
	require.Len(t, manifest.Stages, 3)
	assert.Equal(t, float64(2), manifest.Stages[0].Metadata[operations.ContextKeyFilesWritten])

	for _, dataType := range []string{operations.DataTypeRawFiles, operations.DataTypeTrimmedFiles, operations.DataTypeDRTResults} {
		info, ok := manifest.AvailableData[dataType]
		require.True(t, ok, dataType)
		assert.Equal(t, 2, info.FileCount, dataType)
	}
	assert.Equal(t, 1, manifest.AvailableData[operations.DataTypeMatrix].FileCount)
	assert.Equal(t, 100, manifest.GetProgress())
}

func TestPipelineManifestCountsOnlyStepOutputs(t *testing.T) {
	p := newPipeline(t, echoInverter(), config.ExportConfig{})
	p.addRaw(t, "x1.txt", 8)
	testutil.WriteFile(t, p.paths.TrimmedDir, "notes.txt", "not a trimmed series")

	p.run(t, operations.StageIDTrim)

	manifest, err := operations.LoadManifestFromFile(p.paths.ManifestFile)
	require.NoError(t, err)
	trimmed, ok := manifest.AvailableData[operations.DataTypeTrimmedFiles]
	require.True(t, ok)
	assert.Equal(t, 1, trimmed.FileCount)
	assert.Equal(t, []string{"trimmed_x1.txt"}, trimmed.Files)
	assert.Equal(t, operations.StageIDTrim, trimmed.CreatedBy)
}

func TestPipelineMissingBackend(t *testing.T) {
	paths := testutil.NewPipelineRoot(t)
	logger, _ := sharedtest.NewTestLogger(t)
	stage := operations.NewDRTStage(&operations.StageOptions{Paths: paths}, logger)

	err := stage.Validate(operations.NewOperationState("op"))
	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeValidation, operations.GetErrorType(err))
}

func TestPipelineTikhonovBackend(t *testing.T) {
	if testing.Short() {
		t.Skip("inversion is slow in short mode")
	}
	inverter, err := drt.New(config.DRTConfig{Backend: config.BackendTikhonov})
	require.NoError(t, err)

	p := newPipeline(t, inverter, config.ExportConfig{})
	p.addRaw(t, "rc.txt", 30)

	p.run(t, operations.StepAll)

	records := readMatrix(t, p.paths.MatrixCSV)
	assert.Equal(t, []string{"Tau", "rc"}, records[0])
	assert.Greater(t, len(records), 1)
}
