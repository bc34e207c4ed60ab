package cli

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

const (
	tablePadding = 2
	// maxCellWidth caps free-text columns such as message previews.
	maxCellWidth = 48
)

// table collects rows and writes them as aligned columns.
type table struct {
	headers []string
	rows    [][]string
}

func newTable(headers ...string) *table {
	return &table{headers: headers}
}

func (t *table) add(cells ...string) {
	row := make([]string, len(cells))
	for i, cell := range cells {
		row[i] = fitCell(cell)
	}
	t.rows = append(t.rows, row)
}

func (t *table) write(out io.Writer) error {
	return writeTable(out, t.headers, t.rows)
}

// fitCell flattens whitespace and truncates a cell to maxCellWidth columns.
func fitCell(value string) string {
	value = strings.Join(strings.Fields(value), " ")
	if runewidth.StringWidth(stripANSI(value)) <= maxCellWidth {
		return value
	}
	return runewidth.Truncate(stripANSI(value), maxCellWidth, "…")
}

func writeTable(out io.Writer, headers []string, rows [][]string) error {
	colCount := len(headers)
	for _, row := range rows {
		colCount = max(colCount, len(row))
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	measure := func(row []string) {
		for idx, cell := range row {
			widths[idx] = max(widths[idx], runewidth.StringWidth(stripANSI(cell)))
		}
	}
	measure(headers)
	for _, row := range rows {
		measure(row)
	}

	writer := bufio.NewWriter(out)
	writeRow := func(row []string) {
		var line strings.Builder
		for idx := 0; idx < colCount; idx++ {
			cell := ""
			if idx < len(row) {
				cell = row[idx]
			}
			line.WriteString(cell)
			if idx < colCount-1 {
				padding := max(0, widths[idx]-runewidth.StringWidth(stripANSI(cell)))
				line.WriteString(strings.Repeat(" ", padding+tablePadding))
			}
		}
		writer.WriteString(strings.TrimRight(line.String(), " "))
		writer.WriteString("\n")
	}

	if len(headers) > 0 {
		writeRow(headers)
	}
	for _, row := range rows {
		writeRow(row)
	}
	return writer.Flush()
}

func writeJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func formatYesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func stripANSI(value string) string {
	if !strings.Contains(value, "\x1b[") {
		return value
	}
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		if value[i] != 0x1b || i+1 >= len(value) || value[i+1] != '[' {
			b.WriteByte(value[i])
			continue
		}
		i += 2
		for i < len(value) && (value[i] < 0x40 || value[i] > 0x7e) {
			i++
		}
	}
	return b.String()
}
