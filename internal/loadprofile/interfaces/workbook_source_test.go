package interfaces

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"feeder-analytics/internal/loadprofile/application"
)

func writeLoadWorkbook(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]any{
		{"Time", "GI Kopo", "GI Kopo,incoming"},
		{"2020-01-01 00:00", 10, 99},
		{"2020-01-01 01:00", "-", 98},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	_, err := f.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Notes", "A1", "Catatan"))
	require.NoError(t, f.SaveAs(path))
}

func TestWorkbookSourceDirectory(t *testing.T) {
	dir := t.TempDir()
	writeLoadWorkbook(t, filepath.Join(dir, "b.xlsx"))
	writeLoadWorkbook(t, filepath.Join(dir, "a.xlsx"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "~$a.xlsx"), []byte("lock"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644))

	source, err := NewWorkbookSource(dir)
	require.NoError(t, err)

	names, err := source.Workbooks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.xlsx", "b.xlsx"}, names)

	sheets, err := source.ReadSheets(context.Background(), "a.xlsx")
	require.NoError(t, err)
	require.Len(t, sheets, 2)

	load := sheets[0]
	assert.Equal(t, "a.xlsx", load.File)
	assert.Equal(t, "Sheet1", load.Name)
	assert.Equal(t, []string{"Time", "GI Kopo", "GI Kopo,incoming"}, load.Header)
	require.Len(t, load.Rows, 2)
	assert.Equal(t, "2020-01-01 00:00", load.Rows[0][0])
	assert.Equal(t, "10", load.Rows[0][1])
	assert.Equal(t, "-", load.Rows[1][1])

	assert.Equal(t, "Notes", sheets[1].Name)
	assert.Equal(t, []string{"Catatan"}, sheets[1].Header)
	assert.Empty(t, sheets[1].Rows)
}

func TestWorkbookSourceZip(t *testing.T) {
	dir := t.TempDir()
	workbook := filepath.Join(dir, "beban.xlsx")
	writeLoadWorkbook(t, workbook)
	data, err := os.ReadFile(workbook)
	require.NoError(t, err)

	archive := filepath.Join(dir, "upload.zip")
	out, err := os.Create(archive)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	for _, name := range []string{"2020/beban.xlsx", "__MACOSX/2020/._beban.xlsx"} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	source, err := NewWorkbookSource(archive)
	require.NoError(t, err)

	names, err := source.Workbooks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2020/beban.xlsx"}, names)

	sheets, err := source.ReadSheets(context.Background(), "2020/beban.xlsx")
	require.NoError(t, err)
	require.NotEmpty(t, sheets)
	assert.Equal(t, "2020/beban.xlsx", sheets[0].File)
	assert.Equal(t, "GI Kopo", sheets[0].Header[1])

	_, err = source.ReadSheets(context.Background(), "missing.xlsx")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWorkbookSourceRejectsBadPaths(t *testing.T) {
	_, err := NewWorkbookSource("")
	assert.Error(t, err)

	_, err = NewWorkbookSource(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(file, []byte("Time"), 0o644))
	_, err = NewWorkbookSource(file)
	assert.Error(t, err)
}

func TestWorkbookSourceCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.xlsx"), []byte("not a workbook"), 0o644))

	source, err := NewWorkbookSource(dir)
	require.NoError(t, err)
	_, err = source.ReadSheets(context.Background(), "broken.xlsx")
	assert.Error(t, err)
}

func TestWorkbookSourceDateCellsNormalize(t *testing.T) {
	dir := t.TempDir()
	f := excelize.NewFile()
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	header := []any{"Time", "GI Kopo"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	for i := 0; i < 3; i++ {
		row := []any{start.Add(time.Duration(i) * 30 * time.Minute), 10 + i}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(filepath.Join(dir, "serial.xlsx")))
	require.NoError(t, f.Close())

	source, err := NewWorkbookSource(dir)
	require.NoError(t, err)
	sheets, err := source.ReadSheets(context.Background(), "serial.xlsx")
	require.NoError(t, err)
	require.NotEmpty(t, sheets)

	// raw values arrive as Excel serials, not formatted dates
	_, err = strconv.ParseFloat(sheets[0].Rows[1][0], 64)
	require.NoError(t, err, sheets[0].Rows[1][0])

	result, err := application.NewNormalizer().Normalize(sheets[0])
	require.NoError(t, err)
	assert.Zero(t, result.DroppedRecords)
	require.Len(t, result.Records, 3)
	for i, rec := range result.Records {
		assert.Equal(t, start.Add(time.Duration(i)*30*time.Minute), rec.Time)
	}
}
