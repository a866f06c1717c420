package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaErrorsShareSanitizedMessage(t *testing.T) {
	errs := []*Error{
		UnknownTable("Widgets"),
		UnknownColumn("Companies", "Nope"),
		UnknownIDColumn("Companies", "uid"),
	}
	for _, err := range errs {
		t.Run(string(err.Code), func(t *testing.T) {
			assert.Equal(t, KindSchema, err.Kind)
			assert.Equal(t, SchemaMismatchMessage, err.UserMessage())
			assert.True(t, IsSchema(err))
		})
	}
}

func TestErrorKeepsRawCauseOutOfUserMessage(t *testing.T) {
	err := UnknownColumn("Companies", "Secret_Column")

	assert.NotContains(t, err.UserMessage(), "Secret_Column")
	assert.Contains(t, err.Error(), "Secret_Column")
	assert.Contains(t, err.Error(), string(CodeUnknownColumn))
}

func TestHelpersSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("apply edit 2: %w", LabelRequired())

	assert.True(t, IsPermission(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.True(t, HasCode(wrapped, CodeLabelRequired))
	assert.Equal(t, KindPermission, KindOf(wrapped))
	assert.Equal(t, "set your name before making changes", UserMessage(wrapped))
}

func TestInvalidNumberCarriesInputAndExamples(t *testing.T) {
	err := InvalidNumber("abc")

	assert.True(t, IsValidation(err))
	assert.Equal(t, "abc", err.Details["input"])
	assert.Contains(t, err.UserMessage(), "1,000,000")
	assert.Contains(t, err.UserMessage(), "2.5K")
}

func TestStorageWrapsForeignErrors(t *testing.T) {
	err := Storage("commit", sql.ErrTxDone)

	require.True(t, IsStorage(err))
	assert.ErrorIs(t, err, sql.ErrTxDone)
	assert.NotContains(t, UserMessage(err), "transaction")
}

func TestStoragePassesTaxonomyThrough(t *testing.T) {
	original := RecordNotFound("Companies", "id", "c9")
	err := Storage("fetch", fmt.Errorf("wrap: %w", original))

	assert.True(t, IsNotFound(err))
	assert.Nil(t, Storage("noop", nil))
}

func TestUntaxonomizedErrorDefaults(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, KindStorage, KindOf(err))
	assert.Equal(t, CodeStorageFailure, CodeOf(err))
	assert.Equal(t, "the operation could not be completed", UserMessage(err))
}
