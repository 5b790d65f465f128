package importer

import (
	"context"
	"fmt"
	"io"

	"address-search-api/internal/models"
)

// Sink bulk loads addresses into a store
type Sink interface {
	CopyAddresses(ctx context.Context, addresses []models.NewAddress) (int64, error)
}

// Summary describes a finished import
type Summary struct {
	Parsed  int
	Written int64
}

// Importer parses CSV input and writes it to a Sink in batches
type Importer struct {
	sink      Sink
	batchSize int
}

// DefaultBatchSize is the number of rows written per CopyAddresses call
const DefaultBatchSize = 5000

// New creates an importer. A batchSize below 1 uses DefaultBatchSize.
func New(sink Sink, batchSize int) *Importer {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Importer{sink: sink, batchSize: batchSize}
}

// Import parses r completely before writing anything, so a bad row leaves the store untouched.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Summary, error) {
	addresses, err := ParseCSV(r)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Parsed: len(addresses)}
	for start := 0; start < len(addresses); start += im.batchSize {
		end := min(start+im.batchSize, len(addresses))
		n, err := im.sink.CopyAddresses(ctx, addresses[start:end])
		summary.Written += n
		if err != nil {
			return summary, fmt.Errorf("importer: failed to write rows %d-%d: %w", start+1, end, err)
		}
	}
	return summary, nil
}
