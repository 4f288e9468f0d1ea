package drt

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	apperrors "drtbatch/internal/errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Tikhonov is the built-in DRT backend. It fits
//
//	Z(f) = R_inf + sum_m gamma_m * dlnτ_m / (1 + j 2πf τ_m)
//
// on a τ grid of 1/f, jointly on the real and imaginary parts, with a
// first-order difference penalty on gamma and R_inf, gamma >= 0.
type Tikhonov struct {
	Lambda float64
}

// NewTikhonov creates a Tikhonov inverter with regularization strength lambda
func NewTikhonov(lambda float64) *Tikhonov {
	return &Tikhonov{Lambda: lambda}
}

// Invert implements Inverter
func (t *Tikhonov) Invert(ctx context.Context, frequency, zReal, zImag []float64) ([]float64, []float64, error) {
	if err := checkInput(frequency, zReal, zImag); err != nil {
		return nil, nil, err
	}
	for _, f := range frequency {
		if !(f > 0) || math.IsInf(f, 0) {
			return nil, nil, apperrors.NewValidationError(fmt.Sprintf("frequency must be positive and finite, got %g", f))
		}
	}

	tau := TauGrid(frequency)
	widths := logWidths(tau)

	a, b := t.system(frequency, zReal, zImag, tau, widths)

	x, err := nnls(ctx, a, b)
	if err != nil {
		return nil, nil, apperrors.NewInversionError("non-negative least squares failed", err)
	}

	gamma := make([]float64, len(tau))
	copy(gamma, x[1:])
	return tau, gamma, nil
}

// system assembles the stacked least squares problem [A; sqrt(λ)L] x = [b; 0]
// where x = (R_inf, gamma_1..gamma_M).
func (t *Tikhonov) system(frequency, zReal, zImag, tau, widths []float64) (*mat.Dense, *mat.VecDense) {
	n := len(frequency)
	m := len(tau)
	cols := m + 1
	penaltyRows := max(m-1, 0)

	a := mat.NewDense(2*n+penaltyRows, cols, nil)
	b := mat.NewVecDense(2*n+penaltyRows, nil)

	for i, f := range frequency {
		omega := 2 * math.Pi * f
		a.Set(i, 0, 1)
		for k, tk := range tau {
			wt := omega * tk
			den := 1 + wt*wt
			a.Set(i, k+1, widths[k]/den)
			a.Set(n+i, k+1, -widths[k]*wt/den)
		}
		b.SetVec(i, zReal[i])
		b.SetVec(n+i, zImag[i])
	}

	w := math.Sqrt(t.Lambda)
	for r := 0; r < penaltyRows; r++ {
		a.Set(2*n+r, r+1, -w)
		a.Set(2*n+r, r+2, w)
	}
	return a, b
}

// TauGrid returns the distinct values of 1/f in ascending order
func TauGrid(frequency []float64) []float64 {
	tau := make([]float64, 0, len(frequency))
	for _, f := range frequency {
		tau = append(tau, 1/f)
	}
	sort.Float64s(tau)

	out := tau[:0]
	for i, v := range tau {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// logWidths returns the width in ln τ of the bin around each grid point
func logWidths(tau []float64) []float64 {
	m := len(tau)
	widths := make([]float64, m)
	if m == 1 {
		widths[0] = 1
		return widths
	}
	ln := make([]float64, m)
	for i, v := range tau {
		ln[i] = math.Log(v)
	}
	for i := range ln {
		switch i {
		case 0:
			widths[i] = ln[1] - ln[0]
		case m - 1:
			widths[i] = ln[m-1] - ln[m-2]
		default:
			widths[i] = (ln[i+1] - ln[i-1]) / 2
		}
	}
	return widths
}

// nnls solves min ||Ax - b|| subject to x >= 0 with the Lawson-Hanson
// active set method.
func nnls(ctx context.Context, a *mat.Dense, b *mat.VecDense) ([]float64, error) {
	rows, cols := a.Dims()
	x := make([]float64, cols)
	passive := make([]bool, cols)

	var atb mat.VecDense
	atb.MulVec(a.T(), b)
	tol := 1e-10 * math.Max(1, floats.Norm(atb.RawVector().Data, math.Inf(1)))

	gradient := func() []float64 {
		var ax, r, w mat.VecDense
		ax.MulVec(a, mat.NewVecDense(cols, x))
		r.SubVec(b, &ax)
		w.MulVec(a.T(), &r)
		return w.RawVector().Data
	}

	maxIter := 3 * cols
	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		w := gradient()
		best, bestIdx := tol, -1
		for j := 0; j < cols; j++ {
			if !passive[j] && w[j] > best {
				best, bestIdx = w[j], j
			}
		}
		if bestIdx < 0 {
			return x, nil
		}
		passive[bestIdx] = true

		for {
			s, err := solvePassive(a, b, passive, rows, cols)
			if err != nil {
				return nil, err
			}

			feasible := true
			for j := 0; j < cols; j++ {
				if passive[j] && s[j] <= 0 {
					feasible = false
					break
				}
			}
			if feasible {
				x = s
				break
			}

			alpha := math.Inf(1)
			for j := 0; j < cols; j++ {
				if passive[j] && s[j] <= 0 {
					step := 0.0
					if d := x[j] - s[j]; d > 0 {
						step = x[j] / d
					}
					alpha = math.Min(alpha, step)
				}
			}
			for j := 0; j < cols; j++ {
				x[j] += alpha * (s[j] - x[j])
				if passive[j] && x[j] <= tol {
					passive[j] = false
					x[j] = 0
				}
			}
		}
	}
	return x, nil
}

// solvePassive solves the unconstrained least squares problem restricted to
// the passive columns and returns it embedded in a full-length vector
func solvePassive(a *mat.Dense, b *mat.VecDense, passive []bool, rows, cols int) ([]float64, error) {
	var idx []int
	for j := 0; j < cols; j++ {
		if passive[j] {
			idx = append(idx, j)
		}
	}
	s := make([]float64, cols)
	if len(idx) == 0 {
		return s, nil
	}

	sub := mat.NewDense(rows, len(idx), nil)
	for c, j := range idx {
		for r := 0; r < rows; r++ {
			sub.Set(r, c, a.At(r, j))
		}
	}

	var z mat.VecDense
	if err := z.SolveVec(sub, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, err
		}
	}

	for c, j := range idx {
		s[j] = z.AtVec(c)
	}
	return s, nil
}
