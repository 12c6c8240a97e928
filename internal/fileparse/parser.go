// Package fileparse extracts item metadata from uploaded drawing
// filenames. Parsing is best effort and never fails: a name that
// matches nothing still yields a usable display name.
package fileparse

import (
	"regexp"
	"strings"
)

// Parsed holds fields recovered from a filename such as
// "БНС.КМД.123.456.789.001 Корпус.pdf". SectionCode and PartNumber
// are empty when not recognized; Name is always non-empty.
type Parsed struct {
	SectionCode string
	PartNumber  string
	Name        string
}

var (
	// Section codes look like two dot-joined uppercase groups at the
	// start of the name, e.g. "БНС.КМД." or "AB1.TX.".
	sectionPattern = regexp.MustCompile(`^([А-ЯA-Z0-9]+\.[А-ЯA-Z0-9]+)\.`)

	// Full part numbers: "123.456.789.001".
	partNumberPattern = regexp.MustCompile(`^(\d{2,3}\.\d{3}\.\d{3}\.\d{3})\s*(.*)$`)

	// Short numeric prefixes: "24. Ротор сборка".
	numericPrefixPattern = regexp.MustCompile(`^(\d{1,3})\.\s*(.*)$`)
)

// Parse splits filename into section code, part number and display name.
func Parse(filename string) Parsed {
	out := Parsed{}

	nameWithoutExt := filename
	if strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		nameWithoutExt = filename[:len(filename)-4]
	}
	remaining := strings.TrimSpace(nameWithoutExt)

	if m := sectionPattern.FindStringSubmatch(remaining); m != nil {
		out.SectionCode = m[1]
		remaining = strings.TrimSpace(remaining[len(m[0]):])
	}

	if m := partNumberPattern.FindStringSubmatch(remaining); m != nil {
		out.PartNumber = m[1]
		remaining = strings.TrimSpace(m[2])
	} else if m := numericPrefixPattern.FindStringSubmatch(remaining); m != nil {
		out.PartNumber = m[1]
		remaining = strings.TrimSpace(m[2])
	}

	switch {
	case remaining != "":
		out.Name = remaining
	case strings.TrimSpace(nameWithoutExt) != "":
		out.Name = strings.TrimSpace(nameWithoutExt)
	case filename != "":
		out.Name = filename
	default:
		out.Name = "unnamed"
	}

	return out
}

// FallbackPartNumber derives a part number from a filename when parsing
// found none: extension stripped, spaces replaced, capped at 100 chars.
func FallbackPartNumber(filename string) string {
	base := filename
	if idx := strings.LastIndex(filename, "."); idx > 0 {
		base = filename[:idx]
	}
	pn := strings.ReplaceAll(base, " ", "_")
	if runes := []rune(pn); len(runes) > 100 {
		pn = string(runes[:100])
	}
	return pn
}
