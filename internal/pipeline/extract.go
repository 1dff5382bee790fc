package pipeline

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xuri/excelize/v2"

	"wattwise/internal"
	"wattwise/internal/util"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// parseCSV reads a header row followed by data rows. Short rows are padded
// with empty cells and fully blank rows are dropped.
func parseCSV(content []byte) ([]internal.RawRecord, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []internal.RawRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	header = normalizeCells(header)

	out := []internal.RawRecord{}
	line := 1
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if rec, ok := rowToRecord(header, row); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// parseXLSX reads the first sheet that has a header row and data below it.
func parseXLSX(content []byte) ([]internal.RawRecord, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) < 2 {
			continue
		}

		headerIdx := -1
		for i, row := range rows {
			if !isBlankRow(row) {
				headerIdx = i
				break
			}
		}
		if headerIdx < 0 || headerIdx == len(rows)-1 {
			continue
		}
		header := normalizeCells(rows[headerIdx])

		out := []internal.RawRecord{}
		for _, row := range rows[headerIdx+1:] {
			if rec, ok := rowToRecord(header, row); ok {
				out = append(out, rec)
			}
		}
		return out, nil
	}
	return []internal.RawRecord{}, nil
}

// parseHTMLTable reads every table with a header row and at least one data
// row. Saved copies of the plan listing page are the usual input here.
func parseHTMLTable(html string) ([]internal.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	out := []internal.RawRecord{}
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}

		header := []string{}
		rows.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			header = append(header, util.NormalizeSpaces(cell.Text()))
		})

		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cells := []string{}
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				text := util.NormalizeSpaces(cell.Text())
				if text == "" {
					if href, ok := cell.Find("a").First().Attr("href"); ok {
						text = strings.TrimSpace(href)
					}
				}
				cells = append(cells, text)
			})
			if rec, ok := rowToRecord(header, cells); ok {
				out = append(out, rec)
			}
		})
	})
	return out, nil
}

func rowToRecord(header, row []string) (internal.RawRecord, bool) {
	if isBlankRow(row) {
		return nil, false
	}
	rec := make(internal.RawRecord, len(header))
	for i, name := range header {
		if name == "" {
			continue
		}
		value := ""
		if i < len(row) {
			value = strings.TrimSpace(row[i])
		}
		rec[name] = value
	}
	return rec, true
}

func normalizeCells(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
