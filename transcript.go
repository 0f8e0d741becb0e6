package pdfocr

import (
	"fmt"
	"strings"
)

// Delimiter lines of the transcript format. Downstream consumers parse these,
// so they must not change.
const (
	PageHeaderFormat  = "--- Página %d ---"
	ImageHeaderFormat = "--- Texto de Imagen %d (OCR) ---"
)

// transcript accumulates the text of one document
type transcript struct {
	sb strings.Builder
}

func (t *transcript) page(pageNr int, text string) {
	fmt.Fprintf(&t.sb, PageHeaderFormat+"\n\n", pageNr)
	t.sb.WriteString(text)
	t.sb.WriteString("\n")
}

// image appends an OCR block, unless the text is blank.
func (t *transcript) image(imageNr int, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	fmt.Fprintf(&t.sb, "\n"+ImageHeaderFormat+"\n", imageNr)
	t.sb.WriteString(text)
	t.sb.WriteString("\n")
	return true
}

func (t *transcript) String() string {
	return t.sb.String()
}
