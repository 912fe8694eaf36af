package access

import "context"

const SearchStatusProcessing = "processing"

type SearchResult struct {
	Status string
	Count  int
	Items  []string
}

// Searcher runs the actual lookup once access has been granted.
type Searcher interface {
	Search(ctx context.Context, term string) (SearchResult, error)
}

// PendingSearcher accepts every term and reports it as still processing.
type PendingSearcher struct{}

func (PendingSearcher) Search(ctx context.Context, term string) (SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return SearchResult{}, err
	}
	return SearchResult{Status: SearchStatusProcessing}, nil
}
