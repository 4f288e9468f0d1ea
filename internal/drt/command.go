package drt

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	apperrors "drtbatch/internal/errors"
	"drtbatch/pkg/contracts/domain"
)

const (
	// maxStderr bounds the amount of stderr quoted in an error
	maxStderr = 2048
	// waitDelay bounds how long output pipes are drained after the process is killed
	waitDelay = 500 * time.Millisecond
)

// Command runs an external program per sweep. The program reads CSV
// "frequency,z_real,z_imag" on stdin and writes CSV "tau,gamma" on stdout;
// a leading header row on stdout is optional.
type Command struct {
	Path string
	Args []string
}

// NewCommand creates a command inverter from argv
func NewCommand(argv []string) (*Command, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, apperrors.NewConfigError("command backend requires a program", nil)
	}
	return &Command{Path: argv[0], Args: argv[1:]}, nil
}

// Invert implements Inverter
func (c *Command) Invert(ctx context.Context, frequency, zReal, zImag []float64) ([]float64, []float64, error) {
	if err := checkInput(frequency, zReal, zImag); err != nil {
		return nil, nil, err
	}

	var stdin bytes.Buffer
	w := csv.NewWriter(&stdin)
	w.Write([]string{"frequency", "z_real", "z_imag"})
	for i := range frequency {
		w.Write([]string{
			domain.FormatFloat(frequency[i]),
			domain.FormatFloat(zReal[i]),
			domain.FormatFloat(zImag[i]),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, nil, apperrors.NewInversionError("failed to encode sweep", err)
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = &stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderr {
			msg = msg[:maxStderr]
		}
		return nil, nil, apperrors.NewInversionError(fmt.Sprintf("%s failed: %s", c.Path, msg), err)
	}

	tau, gamma, err := parseOutput(&stdout)
	if err != nil {
		return nil, nil, apperrors.NewInversionError(fmt.Sprintf("%s produced invalid output", c.Path), err)
	}
	return tau, gamma, nil
}

// parseOutput reads "tau,gamma" rows; a non-numeric first row is a header
func parseOutput(r io.Reader) ([]float64, []float64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var tau, gamma []float64
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) < 2 {
			return nil, nil, fmt.Errorf("line %d: expected 2 columns, got %d", line, len(record))
		}
		t, errT := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
		g, errG := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if errT != nil || errG != nil {
			if line == 1 {
				continue
			}
			return nil, nil, fmt.Errorf("line %d: non-numeric value", line)
		}
		tau = append(tau, t)
		gamma = append(gamma, g)
	}

	if len(tau) == 0 {
		return nil, nil, fmt.Errorf("no rows")
	}
	return tau, gamma, nil
}
