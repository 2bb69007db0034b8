package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "idsync/pkg/domain-errors"
)

func TestParseAccountID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseAccountID("  ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects non-positive values", func(t *testing.T) {
		for _, in := range []string{"0", "-4", "abc", "1.5"} {
			_, err := ParseAccountID(in)
			assert.Error(t, err, in)
		}
	})

	t.Run("accepts positive integer", func(t *testing.T) {
		id, err := ParseAccountID(" 42 ")
		require.NoError(t, err)
		assert.Equal(t, AccountID(42), id)
		assert.Equal(t, "42", id.String())
	})
}

func TestExternalID(t *testing.T) {
	assert.True(t, ExternalID("").IsZero())
	assert.True(t, ExternalID("   ").IsZero())
	assert.False(t, ExternalID("D1").IsZero())
	assert.Equal(t, ExternalID("D1"), NewExternalID(" D1\t"))
}

func TestParseRunID(t *testing.T) {
	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseRunID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("round trips through text encoding", func(t *testing.T) {
		id := NewRunID()
		text, err := id.MarshalText()
		require.NoError(t, err)

		var parsed RunID
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, id, parsed)
		assert.False(t, parsed.IsNil())
	})
}
