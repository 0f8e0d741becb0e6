package pdfocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"testing"
)

type fakePage struct {
	text      string
	textErr   error
	images    []EmbeddedImage
	imagesErr error
}

type fakeDoc struct {
	pages  []fakePage
	closed bool
}

func (d *fakeDoc) PageCount() int { return len(d.pages) }

func (d *fakeDoc) PageText(pageIdx int) (string, error) {
	return d.pages[pageIdx].text, d.pages[pageIdx].textErr
}

func (d *fakeDoc) PageImages(pageIdx int) ([]EmbeddedImage, error) {
	return d.pages[pageIdx].images, d.pages[pageIdx].imagesErr
}

func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

var errCorrupt = errors.New("cannot open document: format error")

// fakeOpener serves documents by base file name; unknown names fail to open
func fakeOpener(docs map[string]*fakeDoc) OpenFunc {
	return func(filename string) (Source, error) {
		d, ok := docs[filepath.Base(filename)]
		if !ok {
			return nil, errCorrupt
		}
		return d, nil
	}
}

// fakeOCR "recognizes" images by their width
type fakeOCR struct {
	byWidth map[int]string
	err     error
	calls   int
}

func (f *fakeOCR) Recognize(ctx context.Context, img image.Image) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.byWidth[img.Bounds().Dx()], nil
}

func (f *fakeOCR) Check(ctx context.Context) error { return nil }
func (f *fakeOCR) Close() error                    { return nil }

func pngBytes(t testing.TB, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, width, height))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func pngImage(t testing.TB, objNr, width int) EmbeddedImage {
	return EmbeddedImage{
		ObjNr:    objNr,
		Name:     fmt.Sprintf("Im%d", objNr),
		FileType: "png",
		Data:     pngBytes(t, width, 4),
	}
}
