package interfaces

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	loadprofile "feeder-analytics/internal/loadprofile/domain"
)

const workbookExt = ".xlsx"

// WorkbookSource reads .xlsx workbooks from a directory or from a .zip archive.
type WorkbookSource struct {
	path    string
	archive bool
}

// NewWorkbookSource checks that path is a directory or a zip file.
func NewWorkbookSource(p string) (*WorkbookSource, error) {
	if p == "" {
		return nil, errors.New("workbook source: empty path")
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("workbook source: %w", err)
	}
	if info.IsDir() {
		return &WorkbookSource{path: p}, nil
	}
	if strings.EqualFold(filepath.Ext(p), ".zip") {
		return &WorkbookSource{path: p, archive: true}, nil
	}
	return nil, fmt.Errorf("workbook source: %s is neither a directory nor a .zip archive", p)
}

// Workbooks lists workbook names in lexical order. Office lock files are ignored.
func (s *WorkbookSource) Workbooks(ctx context.Context) ([]string, error) {
	_ = ctx
	var names []string
	if s.archive {
		zr, err := zip.OpenReader(s.path)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		for _, f := range zr.File {
			if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") {
				continue
			}
			if isWorkbookName(path.Base(f.Name)) {
				names = append(names, f.Name)
			}
		}
	} else {
		entries, err := os.ReadDir(s.path)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if isWorkbookName(e.Name()) {
				names = append(names, e.Name())
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// ReadSheets loads every sheet of a workbook with raw cell values, so dates arrive as
// Excel serial numbers rather than locale-formatted strings.
func (s *WorkbookSource) ReadSheets(ctx context.Context, workbook string) ([]loadprofile.RawSheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.archive {
		return s.readFromArchive(workbook)
	}
	f, err := excelize.OpenFile(filepath.Join(s.path, workbook))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", workbook, err)
	}
	defer f.Close()
	return readSheets(f, workbook)
}

func (s *WorkbookSource) readFromArchive(workbook string) ([]loadprofile.RawSheet, error) {
	zr, err := zip.OpenReader(s.path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	for _, entry := range zr.File {
		if entry.Name != workbook {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", workbook, err)
		}
		defer rc.Close()
		return ReadWorkbook(rc, workbook)
	}
	return nil, fmt.Errorf("open %s: %w", workbook, os.ErrNotExist)
}

// ReadWorkbook parses a workbook stream into raw sheets named after file.
func ReadWorkbook(r io.Reader, file string) ([]loadprofile.RawSheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file, err)
	}
	defer f.Close()
	return readSheets(f, file)
}

func readSheets(f *excelize.File, file string) ([]loadprofile.RawSheet, error) {
	names := f.GetSheetList()
	sheets := make([]loadprofile.RawSheet, 0, len(names))
	for _, name := range names {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read %s/%s: %w", file, name, err)
		}
		sheet := loadprofile.RawSheet{File: file, Name: name}
		if len(rows) > 0 {
			sheet.Header = rows[0]
			sheet.Rows = rows[1:]
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

func isWorkbookName(name string) bool {
	if strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), workbookExt)
}
