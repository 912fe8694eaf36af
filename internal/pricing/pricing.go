package pricing

import (
	"context"
	"errors"

	"github.com/BatmanBruc/bat-bot-search/types"
)

type Source interface {
	GetPrice(ctx context.Context) (int64, error)
}

// Resolver returns the persisted per-search price, or the configured default
// when none has been set.
type Resolver struct {
	src      Source
	fallback int64
}

func NewResolver(src Source, fallback int64) *Resolver {
	if fallback <= 0 {
		fallback = types.DefaultPricePerSearch
	}
	return &Resolver{src: src, fallback: fallback}
}

func (r *Resolver) Price(ctx context.Context) (int64, error) {
	if r.src == nil {
		return r.fallback, nil
	}
	p, err := r.src.GetPrice(ctx)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return r.fallback, nil
		}
		return 0, err
	}
	if p <= 0 {
		return r.fallback, nil
	}
	return p, nil
}

func (r *Resolver) Default() int64 {
	return r.fallback
}

// SearchesAvailable is how many searches a balance affords at price.
func SearchesAvailable(credits, price int64) int64 {
	if price <= 0 || credits <= 0 {
		return 0
	}
	return credits / price
}
