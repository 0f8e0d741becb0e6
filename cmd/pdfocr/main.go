package main

import (
	"os"

	"github.com/bmharper/pdfocr/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
