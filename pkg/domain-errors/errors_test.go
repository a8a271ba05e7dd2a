package dErrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(New(CodeNotFound, "no such claim")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeInternal, CodeOf(nil))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeInternal, "failed to load claim")

	assert.True(t, errors.Is(err, cause))
	assert.True(t, HasCode(err, CodeInternal))
	assert.Equal(t, "failed to load claim", MessageOf(err))
}

func TestCodeSurvivesFmtWrapping(t *testing.T) {
	err := fmt.Errorf("submit: %w", New(CodeReasonRequired, "a reason is required"))

	assert.True(t, HasCode(err, CodeReasonRequired))
	assert.Equal(t, "a reason is required", MessageOf(err))
}
