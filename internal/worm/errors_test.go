package worm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViolationError_Message(t *testing.T) {
	err := &ViolationError{RecordID: "rec-1", Key: "a", Op: OpSet, State: Written}
	assert.Equal(t, `cannot set written field "a" (record=rec-1)`, err.Error())

	err = &ViolationError{Key: "b", Op: OpDelete, State: Unwritten}
	assert.Equal(t, `cannot delete unwritten field "b"`, err.Error())
}

func TestViolationError_Matching(t *testing.T) {
	rec := FromMap(map[string]any{"a": 1}, WithIDGenerator(NewSequenceGenerator("r")))
	Install(AllFields(), rec)
	require.NoError(t, rec.Set("a", 2))

	err := rec.Set("a", 3)
	wrapped := fmt.Errorf("saving profile: %w", err)

	assert.True(t, errors.Is(wrapped, ErrReadOnly))
	assert.True(t, IsViolation(wrapped))

	var ve *ViolationError
	require.True(t, errors.As(wrapped, &ve))
	assert.Equal(t, "r-1", ve.RecordID)
	assert.Equal(t, "a", ve.Key)
	assert.Equal(t, OpSet, ve.Op)
	assert.Equal(t, Written, ve.State)
}

func TestIsViolation_Other(t *testing.T) {
	assert.False(t, IsViolation(nil))
	assert.False(t, IsViolation(errors.New("boom")))
}
