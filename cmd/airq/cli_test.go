package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "../../internal/airquality/loader/testdata/tiantan_sample.csv"

func setEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "dev")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DATA_SOURCE", "")
	t.Setenv("PIPELINE_CONFIG", "")
	t.Setenv("SQLITE_DSN", "")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "airq.db"))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func TestAnalyze_Tables(t *testing.T) {
	setEnv(t)

	out, err := execute(t, "analyze", "--source", sampleCSV)
	require.NoError(t, err)

	for _, want := range []string{"Summary", "Monthly means", "Annual means", "Correlation", "PM2.5 categories", "2013-03"} {
		assert.Contains(t, out, want)
	}
}

func TestAnalyze_JSON(t *testing.T) {
	setEnv(t)

	out, err := execute(t, "analyze", "--source", sampleCSV, "--json")
	require.NoError(t, err)

	var got analysisJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, sampleCSV, got.Summary.Source)
	assert.Positive(t, got.Summary.Rows)
	assert.NotEmpty(t, got.Correlation.Columns)
	assert.Len(t, got.Summary.Categories, 4)
}

func TestAnalyze_PipelineConfigFlag(t *testing.T) {
	setEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("source: "+sampleCSV+"\ngranularities: [annual]\n"), 0o644))

	out, err := execute(t, "analyze", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Annual means")
	assert.NotContains(t, out, "Monthly means")
}

func TestAnalyze_MissingSource(t *testing.T) {
	setEnv(t)

	_, err := execute(t, "analyze", "--source", filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestExport(t *testing.T) {
	setEnv(t)
	dir := t.TempDir()

	out, err := execute(t, "export", "--source", sampleCSV, "--format", "csv", "--out", dir)
	require.NoError(t, err)

	for _, name := range []string{"monthly.csv", "annual.csv", "correlation.csv", "categories.csv"} {
		assert.FileExists(t, filepath.Join(dir, name))
		assert.Contains(t, out, filepath.Join(dir, name))
	}
}

func TestExport_BadFormat(t *testing.T) {
	setEnv(t)

	_, err := execute(t, "export", "--source", sampleCSV, "--format", "xml", "--out", t.TempDir())
	require.Error(t, err)
}

func TestMigrate(t *testing.T) {
	setEnv(t)

	out, err := execute(t, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "pending")
	assert.NotContains(t, out, "applied")

	out, err = execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "0001")
	assert.Contains(t, out, "applied")
	assert.NotContains(t, out, "pending")
}

func TestImportAndStations(t *testing.T) {
	setEnv(t)

	out, err := execute(t, "import", "--source", sampleCSV, "--station", "Tiantan-test")
	require.NoError(t, err)
	assert.Contains(t, out, sampleCSV)

	out, err = execute(t, "stations")
	require.NoError(t, err)
	assert.Contains(t, out, "Tiantan-test")
	assert.Contains(t, out, "Recent imports")
}
