package quake

import (
	"context"
)

// RecordDecoder turns a raw feed body into Records.
type RecordDecoder interface {
	Run(raw string) ([]Record, error)
}

var _ RecordDecoder = (*Decoder)(nil)

// Pipeline fetches a feed and decodes it. It holds no per-call state and is
// safe for concurrent use.
type Pipeline struct {
	fetcher Fetcher
	decoder RecordDecoder
}

func NewPipeline(fetcher Fetcher, decoder RecordDecoder) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		decoder: decoder,
	}
}

// Run returns either the decoded Records (possibly empty) or the first
// failure, unchanged. Decoding is skipped when the fetch fails.
func (p *Pipeline) Run(ctx context.Context, rawURL string) ([]Record, error) {
	body, err := p.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	records, err := p.decoder.Run(body)
	if err != nil {
		return nil, err
	}

	return records, nil
}
