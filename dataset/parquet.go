package dataset

import (
	"bytes"
	"context"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"soarbench.org/soar/storage"
)

func readParquet(data []byte) ([]record, error) {
	return parquet.Read[record](bytes.NewReader(data), int64(len(data)))
}

// ConvertCSV rewrites a csv sample file as parquet and returns the row count.
func ConvertCSV(ctx context.Context, store storage.Store, csvPath, parquetPath string) (int, error) {
	data, err := store.ReadFile(ctx, csvPath)
	if err != nil {
		return 0, err
	}
	records, err := readCSV(data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", csvPath, err)
	}

	var buf bytes.Buffer
	if err = parquet.Write(&buf, records); err != nil {
		return 0, err
	}
	if err = store.WriteFile(ctx, parquetPath, buf.Bytes()); err != nil {
		return 0, err
	}
	return len(records), nil
}
