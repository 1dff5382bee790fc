package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"wattwise/internal"
)

const (
	InputCSV  = "csv"
	InputXLSX = "xlsx"
	InputHTML = "html"
)

// DetectInputType guesses the input type from the file extension.
func DetectInputType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return InputXLSX
	case ".html", ".htm":
		return InputHTML
	default:
		return InputCSV
	}
}

func ExtractRecordsFromInput(inputType string, path string) ([]internal.RawRecord, error) {
	if inputType == "" {
		inputType = DetectInputType(path)
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ExtractRecords(inputType, blob)
}

func ExtractRecords(inputType string, content []byte) ([]internal.RawRecord, error) {
	switch inputType {
	case InputCSV:
		return parseCSV(content)
	case InputXLSX:
		return parseXLSX(content)
	case InputHTML:
		return parseHTMLTable(string(content))
	default:
		return nil, fmt.Errorf("unsupported input type: %s", inputType)
	}
}
