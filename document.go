package pdfocr

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Source is the view of an open PDF that the extractor needs.
// Page indices are 0-based.
type Source interface {
	PageCount() int
	PageText(pageIdx int) (string, error)
	PageImages(pageIdx int) ([]EmbeddedImage, error)
	Close() error
}

// OpenFunc opens a PDF for extraction.
type OpenFunc func(filename string) (Source, error)

// EmbeddedImage is a raster image object referenced from a page
type EmbeddedImage struct {
	ObjNr    int    // cross-reference object number
	Name     string // resource name, eg "Im1"
	FileType string // as reported by pdfcpu: jpg, png, tif, jpx...
	Data     []byte
	Err      error // set when the image could not be extracted from the PDF
}

// Document represents a PDF document
type Document struct {
	fz       *fitz.Document
	reader   io.ReadSeeker
	filename string
	numPages int
	log      *slog.Logger

	// pdfcpu's view of the document, parsed once. ctxErr is returned for
	// every page when parsing failed; MuPDF text still works in that case.
	ctx    *model.Context
	ctxErr error

	// Pure Go reader, opened on demand when MuPDF fails to produce text for a page
	fallbackFile *os.File
	fallback     *pdf.Reader
}

func newDocument(fz *fitz.Document, reader io.ReadSeeker, filename string) *Document {
	doc := &Document{
		fz:       fz,
		reader:   reader,
		filename: filename,
		numPages: fz.NumPage(),
		log:      nopLogger,
	}
	doc.ctx, doc.ctxErr = readContext(reader)
	return doc
}

func readContext(rs io.ReadSeeker) (*model.Context, error) {
	ctx, err := pdfapi.ReadContext(rs, model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	if err := pdfapi.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("pdfcpu validate: %w", err)
	}
	return ctx, nil
}

// Load a PDF from a file
func NewDocumentFromFile(filename string) (*Document, error) {
	fz, err := fitz.New(filename)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filename)
	if err != nil {
		fz.Close()
		return nil, err
	}
	return newDocument(fz, file, filename), nil
}

// Load a PDF from bytes
func NewDocumentFromMemory(doc []byte) (*Document, error) {
	fz, err := fitz.NewFromMemory(doc)
	if err != nil {
		return nil, err
	}
	return newDocument(fz, bytes.NewReader(doc), ""), nil
}

// OpenDocument is the OpenFunc backed by MuPDF and pdfcpu
func OpenDocument(logger *slog.Logger) OpenFunc {
	return func(filename string) (Source, error) {
		doc, err := NewDocumentFromFile(filename)
		if err != nil {
			return nil, err
		}
		doc.log = orNop(logger)
		return doc, nil
	}
}

func (d *Document) PageCount() int {
	return d.numPages
}

// PageText returns the digital text layer of a page, as produced by MuPDF.
func (d *Document) PageText(pageIdx int) (string, error) {
	txt, err := d.fz.Text(pageIdx)
	if err == nil {
		return txt, nil
	}
	d.log.Debug("mupdf text extraction failed, trying fallback", "page", pageIdx+1, "error", err)
	alt, altErr := d.fallbackText(pageIdx)
	if altErr != nil {
		return "", fmt.Errorf("page %v text: %w", pageIdx+1, err)
	}
	return alt, nil
}

func (d *Document) fallbackText(pageIdx int) (string, error) {
	if d.filename == "" {
		return "", fmt.Errorf("no fallback for in-memory documents")
	}
	if d.fallback == nil {
		f, r, err := pdf.Open(d.filename)
		if err != nil {
			return "", err
		}
		d.fallbackFile = f
		d.fallback = r
	}
	page := d.fallback.Page(pageIdx + 1)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %v not found", pageIdx+1)
	}
	return page.GetPlainText(nil)
}

// PageImages returns every image XObject the page references, including
// images inside form XObjects, ordered by object number then resource name.
// An object referenced under two names is listed twice. The page thumbnail is
// not part of the list. Images pdfcpu cannot extract carry Err instead of Data.
func (d *Document) PageImages(pageIdx int) ([]EmbeddedImage, error) {
	if d.ctxErr != nil {
		return nil, d.ctxErr
	}
	pageNr := pageIdx + 1
	pageDict, _, inh, err := d.ctx.PageDict(pageNr, true)
	if err != nil {
		return nil, err
	}
	if pageDict == nil {
		return nil, fmt.Errorf("page %v not found", pageNr)
	}
	var res types.Dict
	if inh != nil && inh.Resources != nil {
		res = inh.Resources
	} else if o, found := pageDict.Find("Resources"); found {
		if res, err = d.ctx.DereferenceDict(o); err != nil {
			return nil, err
		}
	}

	var refs []imageRef
	if err := d.collectImageRefs(res, map[int]bool{}, &refs); err != nil {
		return nil, err
	}
	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].objNr != refs[j].objNr {
			return refs[i].objNr < refs[j].objNr
		}
		return refs[i].name < refs[j].name
	})

	images := make([]EmbeddedImage, 0, len(refs))
	for _, ref := range refs {
		images = append(images, d.extractImage(ref))
	}
	return images, nil
}

type imageRef struct {
	name  string
	objNr int
	sd    *types.StreamDict
}

// collectImageRefs walks the XObject resources, descending into forms.
// visited holds the object numbers of forms already walked.
func (d *Document) collectImageRefs(res types.Dict, visited map[int]bool, refs *[]imageRef) error {
	if res == nil {
		return nil
	}
	o, found := res.Find("XObject")
	if !found {
		return nil
	}
	xobjects, err := d.ctx.DereferenceDict(o)
	if err != nil || xobjects == nil {
		return err
	}
	for name, v := range xobjects {
		ir, ok := v.(types.IndirectRef)
		if !ok {
			continue
		}
		objNr := ir.ObjectNumber.Value()
		entry, found := d.ctx.Table[objNr]
		if !found || entry == nil || entry.Free {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		switch subtype := sd.Subtype(); {
		case subtype != nil && *subtype == "Image":
			*refs = append(*refs, imageRef{name: name, objNr: objNr, sd: &sd})
		case subtype != nil && *subtype == "Form":
			if visited[objNr] {
				continue
			}
			visited[objNr] = true
			if ro, found := sd.Find("Resources"); found {
				formRes, err := d.ctx.DereferenceDict(ro)
				if err != nil {
					return err
				}
				if err := d.collectImageRefs(formRes, visited, refs); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (d *Document) extractImage(ref imageRef) EmbeddedImage {
	out := EmbeddedImage{ObjNr: ref.objNr, Name: ref.name}
	img, err := pdfcpu.ExtractImage(d.ctx, ref.sd, false, ref.name, ref.objNr, false)
	switch {
	case err != nil:
		out.Err = err
	case img == nil || img.Reader == nil:
		// eg JBIG2, which pdfcpu can not render
		out.Err = fmt.Errorf("unsupported image encoding (filter %v)", filterNames(ref.sd))
	default:
		out.FileType = img.FileType
		out.Data, out.Err = io.ReadAll(img)
	}
	return out
}

func filterNames(sd *types.StreamDict) []string {
	var names []string
	for _, f := range sd.FilterPipeline {
		names = append(names, f.Name)
	}
	return names
}

func (d *Document) Close() error {
	err := d.fz.Close()
	if closer, ok := d.reader.(io.Closer); ok {
		closer.Close()
	}
	if d.fallbackFile != nil {
		d.fallbackFile.Close()
	}
	return err
}
