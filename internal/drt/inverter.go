package drt

import (
	"context"
	"fmt"
	"math"

	"drtbatch/internal/config"
	apperrors "drtbatch/internal/errors"
)

// Inverter computes a distribution of relaxation times from one impedance
// sweep. frequency is in Hz; zReal and zImag are the real and imaginary parts
// of the impedance. tau and gamma must have equal length.
type Inverter interface {
	Invert(ctx context.Context, frequency, zReal, zImag []float64) (tau, gamma []float64, err error)
}

// InverterFunc adapts an ordinary function to the Inverter interface
type InverterFunc func(ctx context.Context, frequency, zReal, zImag []float64) (tau, gamma []float64, err error)

// Invert calls f
func (f InverterFunc) Invert(ctx context.Context, frequency, zReal, zImag []float64) ([]float64, []float64, error) {
	return f(ctx, frequency, zReal, zImag)
}

// New builds the inverter selected by cfg.Backend
func New(cfg config.DRTConfig) (Inverter, error) {
	switch cfg.Backend {
	case "", config.BackendTikhonov:
		return NewTikhonov(config.DefaultTikhonovLambda), nil
	case config.BackendCommand:
		return NewCommand(cfg.Command)
	default:
		return nil, apperrors.NewConfigError(fmt.Sprintf("unknown DRT backend %q", cfg.Backend), nil)
	}
}

// checkInput validates the sweep handed to an inverter
func checkInput(frequency, zReal, zImag []float64) error {
	n := len(frequency)
	if n == 0 {
		return apperrors.NewValidationError("empty impedance sweep")
	}
	if len(zReal) != n || len(zImag) != n {
		return apperrors.NewValidationError(fmt.Sprintf(
			"sweep columns differ in length: frequency=%d z_real=%d z_imag=%d", n, len(zReal), len(zImag)))
	}
	for _, col := range []struct {
		name   string
		values []float64
	}{{"frequency", frequency}, {"z_real", zReal}, {"z_imag", zImag}} {
		for i, v := range col.values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return apperrors.NewValidationError(fmt.Sprintf("%s[%d] is not finite: %g", col.name, i, v)).
					WithContext("column", col.name)
			}
		}
	}
	return nil
}

// checkOutput validates what an inverter returned
func checkOutput(tau, gamma []float64) error {
	if len(tau) != len(gamma) {
		return apperrors.NewInversionError(fmt.Sprintf("tau and gamma differ in length: %d vs %d", len(tau), len(gamma)), nil)
	}
	return nil
}

// Checked wraps inv so that malformed input is rejected before the call and
// a length mismatch in the output is reported as an inversion error
func Checked(inv Inverter) Inverter {
	return InverterFunc(func(ctx context.Context, frequency, zReal, zImag []float64) ([]float64, []float64, error) {
		if err := checkInput(frequency, zReal, zImag); err != nil {
			return nil, nil, err
		}
		tau, gamma, err := inv.Invert(ctx, frequency, zReal, zImag)
		if err != nil {
			return nil, nil, err
		}
		if err := checkOutput(tau, gamma); err != nil {
			return nil, nil, err
		}
		return tau, gamma, nil
	})
}
