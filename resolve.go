package pdfocr

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type Mode int

const (
	ModeFile Mode = iota
	ModeDirectory
)

func (m Mode) String() string {
	if m == ModeDirectory {
		return "directory"
	}
	return "file"
}

// Input is a resolved command line path
type Input struct {
	Path  string
	Mode  Mode
	Dir   string   // directory holding the PDFs
	Files []string // PDFs to process, in processing order
}

// IsPDFName reports whether name has a .pdf extension, ignoring case.
func IsPDFName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".pdf")
}

// Resolve classifies path as a single PDF or a directory of PDFs.
// Only the immediate children of a directory are considered.
func Resolve(path string) (Input, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Input{}, fmt.Errorf("%w: '%s'", ErrPathNotFound, path)
	} else if err != nil {
		return Input{}, fmt.Errorf("cannot access '%s': %w", path, err)
	}

	switch {
	case info.IsDir():
		entries, err := os.ReadDir(path)
		if err != nil {
			return Input{}, fmt.Errorf("read directory '%s': %w", path, err)
		}
		in := Input{Path: path, Mode: ModeDirectory, Dir: path}
		for _, e := range entries {
			if e.IsDir() || !IsPDFName(e.Name()) {
				continue
			}
			in.Files = append(in.Files, filepath.Join(path, e.Name()))
		}
		if len(in.Files) == 0 {
			return Input{}, fmt.Errorf("%w: '%s'", ErrNoPDFs, path)
		}
		sort.Strings(in.Files)
		return in, nil
	case info.Mode().IsRegular():
		if !IsPDFName(path) {
			return Input{}, fmt.Errorf("%w: '%s'", ErrNotPDF, path)
		}
		return Input{Path: path, Mode: ModeFile, Dir: filepath.Dir(path), Files: []string{path}}, nil
	default:
		return Input{}, fmt.Errorf("%w: '%s'", ErrUnsupportedPath, path)
	}
}

// OutputPath is where the transcript of pdfPath is written: <base>.txt in
// outputDir, or next to the PDF when outputDir is empty.
func OutputPath(pdfPath, outputDir string) string {
	name := filepath.Base(pdfPath)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	dir := outputDir
	if dir == "" {
		dir = filepath.Dir(pdfPath)
	}
	return filepath.Join(dir, base+".txt")
}
