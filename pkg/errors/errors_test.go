package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrNotFound, CodeOf(NotFound("company", nil)))
	assert.Equal(t, ErrInvalidTransition, CodeOf(InvalidTransition("nope")))
	assert.Equal(t, ErrInternal, CodeOf(errors.New("plain error")))
}

func TestIsCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("failed to load process: %w", NotFound("process", nil))
	assert.True(t, IsCode(err, ErrNotFound))
	assert.False(t, IsCode(err, ErrBadRequest))
	assert.False(t, IsCode(nil, ErrNotFound))
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("sql: no rows in result set")
	err := NotFound("company", cause)
	assert.Equal(t, "company not found: sql: no rows in result set", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))

	bare := Unauthorized("role may not grade")
	assert.Equal(t, "role may not grade", bare.Error())
}
