package pdfocr

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// WriteText writes text to path as UTF-8, creating or truncating the file.
// Invalid byte sequences are replaced with U+FFFD.
func WriteText(text, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create '%s': %w", path, err)
	}
	if _, err := io.WriteString(f, strings.ToValidUTF8(text, "\uFFFD")); err != nil {
		f.Close()
		return fmt.Errorf("write '%s': %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close '%s': %w", path, err)
	}
	return nil
}
