package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"soarbench.org/soar/logger"
	"soarbench.org/soar/storage"
	"soarbench.org/soar/types"
)

// Column names shared by the csv and parquet sample files.
const (
	ColumnDataset   = "dataset"
	ColumnTissue    = "tissue"
	ColumnMarker    = "marker"
	ColumnLabel     = "manual annotation"
	ColumnLabelCL   = "manual CLname"
	ColumnLabelID   = "manual CLID"
	ColumnBroadType = "manual broadtype"
)

var requiredColumns = []string{ColumnDataset, ColumnTissue, ColumnMarker, ColumnLabel}

// Source gives random access to the samples of an annotation benchmark.
type Source interface {
	Len() int
	Sample(i int) (types.Sample, error)
}

// record is one row of a sample file before the marker list is split.
type record struct {
	Dataset   string `parquet:"dataset"`
	Tissue    string `parquet:"tissue"`
	Marker    string `parquet:"marker"`
	Label     string `parquet:"manual annotation"`
	LabelCL   string `parquet:"manual CLname,optional"`
	LabelID   string `parquet:"manual CLID,optional"`
	BroadType string `parquet:"manual broadtype,optional"`
}

// SplitMarkers splits a comma separated marker cell and trims every gene.
func SplitMarkers(marker string) []string {
	parts := strings.Split(marker, ",")
	genes := make([]string, len(parts))
	for i, part := range parts {
		genes[i] = strings.TrimSpace(part)
	}
	return genes
}

type recordSource struct {
	records []record
	demos   types.Demos
}

func (s *recordSource) Len() int {
	return len(s.records)
}

func (s *recordSource) Sample(i int) (types.Sample, error) {
	if i < 0 || i >= len(s.records) {
		return types.Sample{}, fmt.Errorf("sample %d out of range [0, %d)", i, len(s.records))
	}
	r := s.records[i]
	return types.Sample{
		Index:     i,
		Dataset:   r.Dataset,
		Tissue:    r.Tissue,
		Genes:     SplitMarkers(r.Marker),
		Label:     r.Label,
		LabelCL:   r.LabelCL,
		LabelID:   r.LabelID,
		BroadType: r.BroadType,
		Demo:      s.demos,
	}, nil
}

// Open loads the sample file named by cfg, and the demonstrations when
// cfg.UseDemo is set.
func Open(ctx context.Context, store storage.Store, cfg types.DatasetConfig) (Source, error) {
	log := logger.NewLogger("Dataset")
	path := cfg.SourcePath()
	if path == "" {
		return nil, fmt.Errorf("dataset path is not configured")
	}

	format := cfg.Format
	if format == "" {
		format = formatFromExtension(path)
	}

	data, err := store.ReadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	var records []record
	switch format {
	case types.DatasetFormatCSV:
		records, err = readCSV(data)
	case types.DatasetFormatParquet:
		records, err = readParquet(data)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	source := &recordSource{records: records}
	if cfg.UseDemo {
		if source.demos, err = readDemos(ctx, store, cfg.DemoPath); err != nil {
			return nil, err
		}
	}
	log.Info().Str("path", path).Str("format", format).Int("samples", len(records)).
		Int("demos", len(source.demos)).Msg("Loaded dataset")
	return source, nil
}

func formatFromExtension(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return types.DatasetFormatParquet
	}
	return types.DatasetFormatCSV
}

func readDemos(ctx context.Context, store storage.Store, path string) (types.Demos, error) {
	data, err := store.ReadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read demos: %w", err)
	}
	var demos []types.Demo
	if err = json.Unmarshal(data, &demos); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return types.Demos(demos), nil
}
