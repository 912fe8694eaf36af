package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCauseAndCode(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := fmt.Errorf("search: %w", Wrap(CodeDependency, cause, "store unavailable"))

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeDependency, CodeOf(err))
	assert.True(t, IsCode(err, CodeDependency))
	assert.True(t, MetadataFor(CodeOf(err)).Retryable)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCodeOfUncodedErrorIsInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(stdErrors.New("boom")))
	assert.False(t, IsCode(nil, CodeInternal))
	assert.Nil(t, As(nil))
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	assert.Equal(t, MetadataFor(CodeInternal), MetadataFor(Code("nope")))
}
