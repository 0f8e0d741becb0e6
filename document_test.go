package pdfocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF assembles objects 1..n into a PDF with a valid xref table.
// Object 1 must be the catalog.
func buildPDF(objs ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func streamObj(dict, data string) string {
	return fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(data), data)
}

func textContent(s string) string {
	return streamObj("", fmt.Sprintf("BT /F1 24 Tf 72 700 Td (%s) Tj ET", s))
}

const helvetica = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>"

// twoPagePDF has a text layer on both pages and no images
func twoPagePDF() []byte {
	page := "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 7 0 R >> >> /Contents %d 0 R >>"
	return buildPDF(
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R 5 0 R] /Count 2 >>",
		fmt.Sprintf(page, 4),
		textContent("Primera pagina"),
		fmt.Sprintf(page, 6),
		textContent("Segunda pagina"),
		helvetica,
	)
}

const grayPixels = "\x00\xff\x00\xff\xff\x00\xff\x00"

// imagePDF is one page with a thumbnail (obj 7) and the XObject resources
// given in xobjects. Objects 5 and 6 are distinct images with identical
// pixels, object 8 is JBIG2 encoded.
func imagePDF(xobjects string) []byte {
	gray := "/Type /XObject /Subtype /Image /Width 4 /Height 2 /ColorSpace /DeviceGray /BitsPerComponent 8"
	return buildPDF(
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 9 0 R >> /XObject << "+xobjects+" >> >> /Contents 4 0 R /Thumb 7 0 R >>",
		textContent("Factura"),
		streamObj(gray, grayPixels),
		streamObj(gray, grayPixels),
		streamObj("/Width 2 /Height 2 /ColorSpace /DeviceGray /BitsPerComponent 8", "\x00\xff\xff\x00"),
		streamObj("/Type /XObject /Subtype /Image /Width 4 /Height 2 /ColorSpace /DeviceGray /BitsPerComponent 1 /Filter /JBIG2Decode", "\x97\x4a\x42\x32\x0d\x0a\x1a\x0a"),
		helvetica,
	)
}

func writePDF(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func openTestDocument(t *testing.T, data []byte) *Document {
	t.Helper()
	doc, err := NewDocumentFromFile(writePDF(t, t.TempDir(), "doc.pdf", data))
	require.NoError(t, err)
	t.Cleanup(func() { doc.Close() })
	return doc
}

func TestDocumentText(t *testing.T) {
	doc := openTestDocument(t, twoPagePDF())
	require.NoError(t, doc.ctxErr)
	assert.Equal(t, 2, doc.PageCount())

	p1, err := doc.PageText(0)
	require.NoError(t, err)
	assert.Contains(t, p1, "Primera pagina")
	p2, err := doc.PageText(1)
	require.NoError(t, err)
	assert.Contains(t, p2, "Segunda pagina")

	images, err := doc.PageImages(0)
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestDocumentFallbackText(t *testing.T) {
	doc := openTestDocument(t, twoPagePDF())
	txt, err := doc.fallbackText(1)
	require.NoError(t, err)
	assert.Contains(t, txt, "Segunda")
}

func TestDocumentImagesNotMerged(t *testing.T) {
	doc := openTestDocument(t, imagePDF("/Im2 6 0 R /Im1 5 0 R /Im3 5 0 R"))
	require.NoError(t, doc.ctxErr)

	images, err := doc.PageImages(0)
	require.NoError(t, err)
	// both identical objects, the second reference to object 5, and no thumbnail
	require.Len(t, images, 3)
	assert.Equal(t, []int{5, 5, 6}, []int{images[0].ObjNr, images[1].ObjNr, images[2].ObjNr})
	assert.Equal(t, []string{"Im1", "Im3", "Im2"}, []string{images[0].Name, images[1].Name, images[2].Name})
	for _, img := range images {
		require.NoError(t, img.Err)
		decoded, err := DecodeImage(img.Data, img.FileType)
		require.NoError(t, err)
		assert.Equal(t, 4, decoded.Bounds().Dx())
		assert.Equal(t, 2, decoded.Bounds().Dy())
	}
}

func TestDocumentJBIG2Image(t *testing.T) {
	doc := openTestDocument(t, imagePDF("/Im1 5 0 R /Im2 8 0 R"))

	images, err := doc.PageImages(0)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.NoError(t, images[0].Err)
	assert.Equal(t, 8, images[1].ObjNr)
	assert.Error(t, images[1].Err)
	assert.Empty(t, images[1].Data)
}

func TestDocumentJBIG2DoesNotStopExtraction(t *testing.T) {
	path := writePDF(t, t.TempDir(), "scan.pdf", imagePDF("/Im1 8 0 R /Im2 5 0 R"))
	ocr := &fakeOCR{byWidth: map[int]string{4: "INVOICE\n"}}
	e := &Extractor{Open: OpenDocument(nil), OCR: ocr}

	res, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "\n--- Texto de Imagen 2 (OCR) ---\nINVOICE\n")
	assert.NotContains(t, res.Text, "Texto de Imagen 1 ")
	require.Len(t, res.ImageFailures, 1)
	assert.Equal(t, StageDecode, res.ImageFailures[0].Stage)
	assert.Equal(t, 1, res.ImageFailures[0].Image)
}

func TestDocumentCloseReleasesHandles(t *testing.T) {
	doc, err := NewDocumentFromFile(writePDF(t, t.TempDir(), "doc.pdf", twoPagePDF()))
	require.NoError(t, err)
	_, err = doc.fallbackText(0)
	require.NoError(t, err)
	require.NotNil(t, doc.fallbackFile)

	require.NoError(t, doc.Close())
	buf := make([]byte, 1)
	_, err = doc.reader.(*os.File).Read(buf)
	assert.ErrorIs(t, err, os.ErrClosed)
	_, err = doc.fallbackFile.Read(buf)
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestDocumentOpenCorrupt(t *testing.T) {
	path := writePDF(t, t.TempDir(), "corrupt.pdf", []byte("%PDF-1.4\nthis is not a pdf"))
	_, err := OpenDocument(nil)(path)
	assert.Error(t, err)
}

// A directory with a two page text PDF, a one page PDF with one image, and
// a corrupt file.
func TestRunRealDocuments(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, dir, "a.pdf", twoPagePDF())
	writePDF(t, dir, "b.pdf", imagePDF("/Im1 5 0 R"))
	writePDF(t, dir, "c.pdf", []byte("garbage"))
	in, err := Resolve(dir)
	require.NoError(t, err)

	ocr := &fakeOCR{byWidth: map[int]string{4: "INVOICE\n"}}
	r := &Runner{Extractor: &Extractor{Open: OpenDocument(nil), OCR: ocr}}
	report := r.Run(context.Background(), in)
	assert.Equal(t, ExitPartial, report.ExitCode())

	a := readFile(t, filepath.Join(dir, "a.txt"))
	assert.Equal(t, 2, strings.Count(a, "--- Página "))
	assert.Less(t, strings.Index(a, "--- Página 1 ---\n\n"), strings.Index(a, "Primera pagina"))
	assert.Less(t, strings.Index(a, "Primera pagina"), strings.Index(a, "--- Página 2 ---\n\n"))
	assert.Less(t, strings.Index(a, "--- Página 2 ---\n\n"), strings.Index(a, "Segunda pagina"))
	assert.NotContains(t, a, "Texto de Imagen")

	b := readFile(t, filepath.Join(dir, "b.txt"))
	assert.Equal(t, 1, strings.Count(b, "--- Página "))
	assert.Equal(t, 1, strings.Count(b, "--- Texto de Imagen "))
	assert.Contains(t, b, "Factura")
	assert.True(t, strings.HasSuffix(b, "\n--- Texto de Imagen 1 (OCR) ---\nINVOICE\n\n"), b)

	assert.NoFileExists(t, filepath.Join(dir, "c.txt"))
}
