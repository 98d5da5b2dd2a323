package cmd

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchCommand_CSV(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.json"), janeFragments)
	writeFile(t, filepath.Join(dir, "b.json"), `[[[[0, 10], [90, 10], [90, 20], [0, 20]], "Ravi Kumar", 96]]`)
	writeFile(t, filepath.Join(dir, "readme.txt"), "ignored")

	out, _, err := runCLI(t, "batch", "--engine", "fragments", "--format", "csv", "--workers", "2", dir)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "file", rows[0][0])
	assert.Equal(t, "Jane Doe", rows[1][1])
	assert.Equal(t, "true", rows[1][5])
	assert.Equal(t, "Ravi Kumar", rows[2][1])
}

func TestBatchCommand_OutputFileAndStats(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cards", "a.json"), janeFragments)
	output := filepath.Join(dir, "out.json")

	out, stderr, err := runCLI(t, "batch", "--engine", "fragments", "--format", "json", "--output", output,
		"--stats", filepath.Join(dir, "cards"))
	require.NoError(t, err)
	assert.Contains(t, out, "Results written to")
	assert.Contains(t, stderr, "Total cards: 1")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name": "Jane Doe"`)
}

func TestBatchCommand_Errors(t *testing.T) {
	_, _, err := runCLI(t, "batch")
	require.Error(t, err)

	_, _, err = runCLI(t, "batch", "--engine", "fragments", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no card files found")
}
