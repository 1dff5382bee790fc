package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// EFLReport is the fine-print reading of one Electricity Facts Label.
type EFLReport struct {
	Path      string
	Pages     int
	FinePrint FinePrint
}

// ExtractPDFText returns the plain text of every readable page, one page per
// paragraph. Pages that fail to decode are skipped.
func ExtractPDFText(content []byte) (string, int, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return b.String(), r.NumPage(), nil
}

// ScanEFLFile runs the fine-print scanner over the text of an EFL PDF.
func ScanEFLFile(path string) (EFLReport, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return EFLReport{}, err
	}
	text, pages, err := ExtractPDFText(blob)
	if err != nil {
		return EFLReport{}, err
	}
	return EFLReport{Path: path, Pages: pages, FinePrint: ScanEFLText(text)}, nil
}

// ScanEFLText scans label text. Line breaks inside a sentence are common in
// PDF output, so they are folded to spaces first.
func ScanEFLText(text string) FinePrint {
	folded := strings.Join(strings.Fields(text), " ")
	return ScanFinePrint(folded)
}
