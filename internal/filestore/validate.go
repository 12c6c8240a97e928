package filestore

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// pdfMagic is the fixed signature every PDF payload must start with.
var pdfMagic = []byte("%PDF-")

const (
	drawingExtension     = "pdf"
	defaultTechExtension = "xlsx"
)

var allowedTechExtensions = map[string]struct{}{
	"xlsx": {},
	"xlsm": {},
	"xls":  {},
}

// CheckPDF validates an uploaded drawing without consuming the stream:
// the filename must carry a .pdf extension and the first five bytes
// must match the PDF signature. Only the prefix is peeked; the reader
// stays positioned at the start for the subsequent Save.
func CheckPDF(filename string, br *bufio.Reader) error {
	if filename != "" {
		if ext := strings.ToLower(filepath.Ext(filename)); ext != ".pdf" {
			return fmt.Errorf("only PDF files allowed")
		}
	}

	prefix, err := br.Peek(len(pdfMagic))
	if err != nil || !bytes.HasPrefix(prefix, pdfMagic) {
		return fmt.Errorf("invalid PDF file (magic bytes check failed)")
	}
	return nil
}

// ExtensionFor returns the on-disk extension for a blob of the given
// kind. Drawings are always "pdf"; tech documents take the uploaded
// filename's extension when it is a known spreadsheet type and fall
// back to "xlsx" otherwise.
func ExtensionFor(kind Kind, filename string) string {
	if kind != KindTech {
		return drawingExtension
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if _, ok := allowedTechExtensions[ext]; ok {
		return ext
	}
	return defaultTechExtension
}
