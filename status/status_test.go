package status

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode_String(t *testing.T) {
	assert.Equal(t, "OK", OK.String())
	assert.Equal(t, "BatchTooLarge", BatchTooLarge.String())
	assert.Equal(t, "Code(42)", Code(42).String())

	for _, c := range Codes() {
		assert.NotContains(t, c.String(), "Code(", "code %d has no name", int32(c))
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, OK, CodeOf(nil))
	assert.Equal(t, Internal, CodeOf(io.EOF))
	assert.Equal(t, ColumnNotFound, CodeOf(New(ColumnNotFound, "c2")))

	wrapped := fmt.Errorf("insert: %w", Errorf(TypeMismatch, "want %s", "int"))
	assert.Equal(t, TypeMismatch, CodeOf(wrapped))
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := Errorf(DimensionMismatch, "expected %d, got %d", 3, 4).AtRow(7).InColumn("c1")

	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.False(t, errors.Is(err, ErrTypeMismatch))
	assert.Equal(t, `DimensionMismatch at row 7 column "c1": expected 3, got 4`, err.Error())
}

func TestError_AttributionCopies(t *testing.T) {
	base := New(MissingValue, "no default")
	row := base.AtRow(2)

	assert.Equal(t, -1, base.Row)
	assert.Equal(t, 2, row.Row)
	assert.Empty(t, row.Column)
}

func TestWrap_KeepsCause(t *testing.T) {
	err := Wrap(CommitFailed, io.ErrShortWrite, "sink")
	require.ErrorIs(t, err, io.ErrShortWrite)
	require.ErrorIs(t, err, ErrCommitFailed)
	assert.Contains(t, err.Error(), "short write")
}
