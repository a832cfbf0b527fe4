package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magnber/downstream-reporting/internal/reportwriter"
)

func writeConfigFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, SourceCSV, cfg.Reference.Source)
	assert.Equal(t, "./data", cfg.Reference.Dir)
	assert.Equal(t, "./data/reference.xlsx", cfg.Reference.Workbook)
	assert.Equal(t, ",", cfg.Reference.Delimiter)
	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, "./input_archive", cfg.InputArchiveDir)
	assert.Equal(t, "./output_archive", cfg.OutputArchiveDir)
	assert.Equal(t, "./logs/reporting.log", cfg.LogFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"json"}, cfg.Output.Formats)
	assert.Equal(t, "{stem}_reports_{uuid}", cfg.Output.FileNameFormat)
	assert.Equal(t, 3, cfg.Output.RoundDecimals)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, 0, cfg.ArchiveRetentionDays)
}

func TestLoad(t *testing.T) {
	tmp := t.TempDir()
	inDir := filepath.Join(tmp, "in")
	outDir := filepath.Join(tmp, "out")
	inArchive := filepath.Join(tmp, "in_archive")
	outArchive := filepath.Join(tmp, "out_archive")
	workbook := filepath.Join(tmp, "ref.xlsx")

	content := fmt.Sprintf(`reference:
  source: workbook
  workbook: %q
input_dir: %q
output_dir: %q
input_archive_dir: %q
output_archive_dir: %q
output:
  formats: [json, csv]
  round_decimals: 2
max_concurrency: 8
`, workbook, inDir, outDir, inArchive, outArchive)

	cfg, err := Load(writeConfigFile(t, tmp, content))
	require.NoError(t, err)

	assert.Equal(t, SourceWorkbook, cfg.Reference.Source)
	assert.Equal(t, workbook, cfg.Reference.Workbook)
	assert.Equal(t, []string{"json", "csv"}, cfg.Output.Formats)
	assert.Equal(t, 2, cfg.Output.RoundDecimals)
	assert.Equal(t, 8, cfg.MaxConcurrency)

	// Unset options take their defaults.
	assert.Equal(t, "./data", cfg.Reference.Dir)
	assert.Equal(t, ",", cfg.Reference.Delimiter)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "{stem}_reports_{uuid}", cfg.Output.FileNameFormat)

	// Loading creates the working directories.
	assert.DirExists(t, inDir)
	assert.DirExists(t, outDir)
	assert.DirExists(t, inArchive)
	assert.DirExists(t, outArchive)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unsupported reference source",
			content: "reference:\n  source: sql\n",
			wantErr: "reference.source",
		},
		{
			name:    "unsupported output format",
			content: "output:\n  formats: [json, xml]\n",
			wantErr: "unknown output format",
		},
		{
			name:    "non-positive concurrency",
			content: "max_concurrency: -2\n",
			wantErr: "max_concurrency",
		},
		{
			name:    "negative retention",
			content: "archive_retention_days: -1\n",
			wantErr: "archive_retention_days",
		},
		{
			name:    "malformed yaml",
			content: "reference: [\n",
			wantErr: "failed to parse",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfigFile(t, t.TempDir(), tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_FullPrecisionRoundDecimals(t *testing.T) {
	tmp := t.TempDir()
	content := fmt.Sprintf(`input_dir: %q
output_dir: %q
input_archive_dir: %q
output_archive_dir: %q
output:
  round_decimals: -1
`,
		filepath.Join(tmp, "in"), filepath.Join(tmp, "out"),
		filepath.Join(tmp, "in_archive"), filepath.Join(tmp, "out_archive"))

	cfg, err := Load(writeConfigFile(t, tmp, content))
	require.NoError(t, err)

	assert.Equal(t, -1, cfg.Output.RoundDecimals)
}

func TestConfig_Formats(t *testing.T) {
	cfg := Default()
	cfg.Output.Formats = []string{"JSON", "Csv"}

	assert.Equal(t, []reportwriter.Format{reportwriter.FormatJSON, reportwriter.FormatCSV}, cfg.Formats())
}
