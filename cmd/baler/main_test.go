package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func writeInput(t *testing.T, path string, rows int) {
	t.Helper()
	var b strings.Builder
	b.WriteString("x,y,z,w\n")
	for i := 0; i < rows; i++ {
		u := float64(i) / float64(rows)
		fmt.Fprintf(&b, "%g,%g,%g,%g\n", 10+u, 20+2*u, 30-u, 40+3*u)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func TestModesEndToEnd(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "input.csv")
	writeInput(t, input, 200)

	_, err := run(t, "new-project", "-p", root, "--input", input)
	require.NoError(t, err)
	_, err = run(t, "new-project", "-p", root)
	require.Error(t, err, "second new-project must not overwrite the config")

	cfg := fmt.Sprintf("input_path: %s\nmodel_name: linear_AE\nepochs: 40\nlr: 0.01\nbatch_size: 16\nl1: false\nearly_stopping: false\n", input)
	require.NoError(t, os.WriteFile(filepath.Join(root, "config.yaml"), []byte(cfg), 0o644))

	out, err := run(t, "derive", "-p", root)
	require.NoError(t, err)
	require.Contains(t, out, "40 epochs")
	require.FileExists(t, filepath.Join(root, "training", "loss_data.csv"))
	require.FileExists(t, filepath.Join(root, "plotting", "loss.png"))

	out, err = run(t, "compress", "-p", root)
	require.NoError(t, err)
	require.Contains(t, out, "4 -> 2 features")
	require.FileExists(t, filepath.Join(root, "compressed_output", "compressed.blr"))

	_, err = run(t, "decompress", "-p", root)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(root, "decompressed_output", "decompressed.csv"))

	_, err = run(t, "evaluate", "-p", root, "--max-nrmse", "10", "--max-rel-error", "10")
	require.NoError(t, err)

	plotPath := filepath.Join(root, "loss-log.png")
	_, err = run(t, "plot", "-p", root, "--log", "-o", plotPath)
	require.NoError(t, err)
	require.FileExists(t, plotPath)

	out, err = run(t, "info", "-p", root)
	require.NoError(t, err)
	require.Contains(t, out, "george_SAE_small")
	require.Contains(t, out, "linear_AE")
	require.Contains(t, out, "derive")
	require.Contains(t, out, "compress")
}

func TestModesNeedProject(t *testing.T) {
	_, err := run(t, "derive", "-p", t.TempDir())
	require.ErrorContains(t, err, "not a project")
}

func TestBadLogLevel(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"derive", "-p", t.TempDir(), "--log-level", "loud"})
	require.Error(t, cmd.Execute())
}

func TestInfoWithoutProject(t *testing.T) {
	out, err := run(t, "info", "-p", t.TempDir())
	require.NoError(t, err)
	require.Contains(t, out, "device: ")
	require.NotContains(t, out, "VERSION")
}
