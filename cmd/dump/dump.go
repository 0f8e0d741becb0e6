package main

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/bmharper/pdfocr"
)

// Prints what the extractor sees in a PDF: the size of each page's text layer,
// and every embedded image with its object number and whether it decodes.
// Useful when a transcript is missing OCR blocks.

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s <filename>\n", os.Args[0])
		return
	}
	filename := os.Args[1]
	doc, err := pdfocr.NewDocumentFromFile(filename)
	check(err)
	defer doc.Close()

	fmt.Printf("%v: %v pages\n", filename, doc.PageCount())
	for page := 0; page < doc.PageCount(); page++ {
		txt, err := doc.PageText(page)
		if err != nil {
			fmt.Printf("page %v: text error: %v\n", page+1, err)
		} else {
			fmt.Printf("page %v: %v chars of text\n", page+1, utf8.RuneCountInString(strings.TrimSpace(txt)))
		}
		images, err := doc.PageImages(page)
		if err != nil {
			fmt.Printf("  images error: %v\n", err)
			continue
		}
		for i, img := range images {
			var status string
			decoded, err := pdfocr.DecodeImage(img.Data, img.FileType)
			if img.Err != nil {
				status = img.Err.Error()
			} else if err != nil {
				status = err.Error()
			} else {
				b := decoded.Bounds()
				status = fmt.Sprintf("%vx%v", b.Dx(), b.Dy())
			}
			fmt.Printf("  image %2v: obj %5v %-6v %-4v %8v bytes  %v\n", i+1, img.ObjNr, img.Name, img.FileType, len(img.Data), status)
		}
	}
}
