package pdfocr

import (
	"errors"
	"fmt"
)

var (
	ErrPathNotFound    = errors.New("path does not exist")
	ErrNotPDF          = errors.New("not a PDF file")
	ErrNoPDFs          = errors.New("no PDF files found in directory")
	ErrUnsupportedPath = errors.New("path is neither a file nor a directory")
	ErrEmptyDocument   = errors.New("document produced no content")
	ErrOCRUnavailable  = errors.New("OCR engine unavailable")
)

// Stage identifies where processing of a single embedded image failed.
type Stage string

const (
	StageEnumerate Stage = "enumerate"
	StageDecode    Stage = "decode"
	StageOCR       Stage = "ocr"
)

// ImageError is a failure confined to one image (or, for StageEnumerate, to
// the image list of one page). Image is 1-based, and 0 when not applicable.
type ImageError struct {
	File  string
	Page  int
	Image int
	Stage Stage
	Err   error
}

func (e *ImageError) Error() string {
	if e.Image == 0 {
		return fmt.Sprintf("%s: page %d: %s images: %v", e.File, e.Page, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: page %d: image %d: %s: %v", e.File, e.Page, e.Image, e.Stage, e.Err)
}

func (e *ImageError) Unwrap() error {
	return e.Err
}
