package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

func readCSV(data []byte) ([]record, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	cell := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var records []record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, record{
			Dataset:   cell(row, ColumnDataset),
			Tissue:    cell(row, ColumnTissue),
			Marker:    cell(row, ColumnMarker),
			Label:     cell(row, ColumnLabel),
			LabelCL:   cell(row, ColumnLabelCL),
			LabelID:   cell(row, ColumnLabelID),
			BroadType: cell(row, ColumnBroadType),
		})
	}
	return records, nil
}
