package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"version", []string{"-version"}, 0},
		{"unknown flag", []string{"-bogus"}, 2},
		{"bad step", []string{"-root", t.TempDir(), "-step", "plot", "-log-level", "error"}, 1},
		{"fresh root", []string{"-root", filepath.Join(t.TempDir(), "new"), "-log-level", "error"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(tt.args))
		})
	}
}

func TestRunCreatesRawInput(t *testing.T) {
	root := filepath.Join(t.TempDir(), "cells")
	assert.Equal(t, 0, run([]string{"-root", root, "-log-level", "error"}))

	info, err := os.Stat(filepath.Join(root, "0_Raw_Input"))
	assert.NoError(t, err)
	assert.True(t, info.IsDir())
}
