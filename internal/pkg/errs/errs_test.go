//go:build unit

package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"boxoffice/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMark(t *testing.T) {
	sentinel := errs.New("quota exceeded")

	t.Run("sentinel is visible to errors.Is", func(t *testing.T) {
		cause := errs.New("no remaining capacity in quota \"General admission\"")
		marked := errs.Mark(cause, sentinel)

		assert.True(t, errors.Is(marked, sentinel))
		assert.True(t, errors.Is(marked, cause))
	})

	t.Run("message stays the cause's", func(t *testing.T) {
		cause := errs.New("out of range")
		marked := errs.Mark(cause, sentinel)

		assert.Equal(t, "out of range", marked.Error())
		assert.Equal(t, "out of range", fmt.Sprintf("%v", marked))
	})

	t.Run("typed causes survive for errors.As", func(t *testing.T) {
		cause := &timeoutError{}
		marked := errs.Mark(errs.Wrap(cause, "acquiring event lock"), sentinel)

		var te *timeoutError
		require.True(t, errors.As(marked, &te))
		assert.True(t, errors.Is(marked, sentinel))
	})

	t.Run("stacked marks all hold", func(t *testing.T) {
		second := errs.New("lock timeout")
		marked := errs.Mark(errs.Mark(errs.New("boom"), sentinel), second)

		assert.True(t, errors.Is(marked, sentinel))
		assert.True(t, errors.Is(marked, second))
	})

	t.Run("nil cause yields the sentinel itself", func(t *testing.T) {
		assert.ErrorIs(t, errs.Mark(nil, sentinel), sentinel)
	})
}

type timeoutError struct{}

func (*timeoutError) Error() string { return "timeout" }
