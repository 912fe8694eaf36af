package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/BatmanBruc/bat-bot-search/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	price int64
	err   error
}

func (s stubSource) GetPrice(context.Context) (int64, error) {
	return s.price, s.err
}

func TestResolverPrice(t *testing.T) {
	ctx := context.Background()

	p, err := NewResolver(stubSource{err: types.ErrNotFound}, 5).Price(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), p)

	p, err = NewResolver(stubSource{price: 8}, 5).Price(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8), p)

	p, err = NewResolver(nil, 0).Price(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(types.DefaultPricePerSearch), p)

	_, err = NewResolver(stubSource{err: errors.New("db down")}, 5).Price(ctx)
	require.Error(t, err)
}

func TestSearchesAvailable(t *testing.T) {
	assert.Equal(t, int64(20), SearchesAvailable(100, 5))
	assert.Equal(t, int64(0), SearchesAvailable(4, 5))
	assert.Equal(t, int64(0), SearchesAvailable(-3, 5))
	assert.Equal(t, int64(0), SearchesAvailable(10, 0))
}
