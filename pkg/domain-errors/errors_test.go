package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCodeWalksWrappedChain(t *testing.T) {
	base := New(CodeConflict, "container exists")
	wrapped := Wrap(base, CodeInternal, "create container failed")

	assert.True(t, HasCode(wrapped, CodeInternal))
	assert.True(t, HasCode(wrapped, CodeConflict))
	assert.False(t, HasCode(wrapped, CodeNotFound))
	assert.Equal(t, CodeInternal, CodeOf(wrapped))
}

func TestHasCodeThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("load item: %w", New(CodeDeleted, "cargo item has been deleted"))

	assert.True(t, Is(err, CodeDeleted))
	assert.Equal(t, CodeDeleted, CodeOf(err))
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("disk full")

	assert.Equal(t, "not saved", Wrap(cause, CodeInternal, "not saved").Error())
	assert.Equal(t, "disk full", Wrap(cause, CodeInternal, "").Error())
	assert.ErrorIs(t, Wrap(cause, CodeInternal, "not saved"), cause)
	assert.Nil(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}
