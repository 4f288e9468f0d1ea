// Package drt provides the inversion backends that turn an impedance sweep
// into a distribution of relaxation times.
//
// Backends implement Inverter. Two are available:
//
//	tikhonov  built in; regularized non-negative least squares on a 1/f grid
//	command   an external program speaking CSV on stdin and stdout
//
// New selects one from configuration:
//
//	inv, err := drt.New(cfg.DRT)
//	tau, gamma, err := drt.Checked(inv).Invert(ctx, freq, zRe, zIm)
package drt
