package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/upi-extractor/constants"
	"github.com/joseph-ayodele/upi-extractor/internal/common"
	"github.com/joseph-ayodele/upi-extractor/internal/export"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestExtractFromText(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("UPIX_LOG_LEVEL", "error")

	in := t.TempDir()
	files := map[string]string{
		"a.txt": "Paid ₹500 to John Doe UPI Ref No 123456789012 on 12 Jan 2024",
		"b.txt": "Received ₹750 from Asha Rao UPI Ref No 998877665544 on 5 Mar 2024",
		"c.txt": "   ",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(in, name), []byte(body), 0o644))
	}
	out := filepath.Join(t.TempDir(), "tx.xlsx")

	stdout, err := execute(t, "extract", in, "--from-text", "--out", out, "--type", "auto", "--concurrency", "2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "processed 2, skipped 1")
	assert.Contains(t, stdout, "net ₹250.00")

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.DefaultSheet)
	require.NoError(t, err)
	assert.Equal(t, export.Header, rows[0])
	assert.Equal(t, "2024-01-12", rows[1][0])
	assert.Equal(t, "2024-03-05", rows[2][0])
}

func TestClassifyCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("UPIX_LOG_LEVEL", "error")
	path := filepath.Join(t.TempDir(), "p.txt")
	require.NoError(t, os.WriteFile(path, []byte("Paid ₹500 to John Doe UPI Ref No 123456789012 on 12 Jan 2024"), 0o644))

	stdout, err := execute(t, "classify", path, "--type", "auto")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"type": "UPI"`)
	assert.Contains(t, stdout, `"amount": "500.00"`)
}

func TestWatchStopsWhenOCRUnavailable(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("UPIX_LOG_LEVEL", "error")
	t.Setenv("UPIX_OCR_TESSERACT", filepath.Join(t.TempDir(), "no-such-tesseract"))

	_, err := execute(t, "watch", t.TempDir(), "--out", filepath.Join(t.TempDir(), "w.xlsx"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrOCRUnavailable)
}

func TestParseOverride(t *testing.T) {
	got, err := parseOverride("auto")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseOverride("bank")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, constants.Passbook, *got)

	_, err = parseOverride("fax")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	stdout, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "upi-extract dev")
}
