package pdfocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
)

// Result is the transcript of one document plus what went wrong along the way.
type Result struct {
	Text           string
	Pages          int
	Images         int // embedded images found
	ImagesWithText int // images that produced an OCR block
	ImageFailures  []*ImageError
}

// Extractor produces the transcript of a PDF: for every page, the digital
// text layer followed by the OCR output of each embedded image.
type Extractor struct {
	Open       OpenFunc
	OCR        Recognizer
	Straighten *Straightener // nil disables orientation correction
	Logger     *slog.Logger
}

// Extract opens filename and builds its transcript. An error is returned only
// when the document cannot be opened or ctx is cancelled; failures of single
// images are collected in Result.ImageFailures.
func (e *Extractor) Extract(ctx context.Context, filename string) (*Result, error) {
	log := orNop(e.Logger)
	base := filepath.Base(filename)

	doc, err := e.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", base, err)
	}
	defer doc.Close()

	res := &Result{Pages: doc.PageCount()}
	log.Info("Processing file", "file", base, "pages", res.Pages)

	var t transcript
	for pageIdx := 0; pageIdx < res.Pages; pageIdx++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageNr := pageIdx + 1
		text, err := doc.PageText(pageIdx)
		if err != nil {
			log.Warn("Could not extract page text", "file", base, "page", pageNr, "error", err)
		}
		t.page(pageNr, text)

		images, err := doc.PageImages(pageIdx)
		if err != nil {
			e.fail(res, &ImageError{File: base, Page: pageNr, Stage: StageEnumerate, Err: err})
			continue
		}
		if len(images) == 0 {
			continue
		}
		log.Info("Images found for OCR", "file", base, "page", pageNr, "images", len(images))
		res.Images += len(images)

		for i, img := range images {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			imageNr := i + 1
			ocrText, ierr := e.recognize(ctx, img)
			if ierr != nil {
				ierr.File, ierr.Page, ierr.Image = base, pageNr, imageNr
				e.fail(res, ierr)
				continue
			}
			if t.image(imageNr, ocrText) {
				res.ImagesWithText++
			} else {
				log.Debug("Image produced no text", "file", base, "page", pageNr, "image", imageNr, "obj", img.ObjNr)
			}
		}
	}
	res.Text = t.String()
	return res, nil
}

func (e *Extractor) recognize(ctx context.Context, img EmbeddedImage) (string, *ImageError) {
	if img.Err != nil {
		return "", &ImageError{Stage: StageDecode, Err: img.Err}
	}
	decoded, err := DecodeImage(img.Data, img.FileType)
	if err != nil {
		return "", &ImageError{Stage: StageDecode, Err: err}
	}
	if e.Straighten != nil {
		// Straightening is best effort; OCR the image as it is if it fails
		if fixed, err := e.Straighten.Straighten(decoded); err != nil {
			orNop(e.Logger).Warn("Could not straighten image", "obj", img.ObjNr, "error", err)
		} else {
			decoded = fixed
		}
	}
	text, err := e.OCR.Recognize(ctx, decoded)
	if err != nil {
		return "", &ImageError{Stage: StageOCR, Err: err}
	}
	return text, nil
}

func (e *Extractor) fail(res *Result, ierr *ImageError) {
	res.ImageFailures = append(res.ImageFailures, ierr)
	orNop(e.Logger).Warn("Could not process image", "file", ierr.File, "page", ierr.Page, "image", ierr.Image, "stage", string(ierr.Stage), "error", ierr.Err)
}
