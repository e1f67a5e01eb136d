package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "atti/pkg/domain-errors"
)

func TestParseDeterminazioneID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseDeterminazioneID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects non numeric", func(t *testing.T) {
		_, err := ParseDeterminazioneID("abc")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects zero and negatives", func(t *testing.T) {
		for _, s := range []string{"0", "-3"} {
			_, err := ParseDeterminazioneID(s)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), s)
		}
	})

	t.Run("accepts positive ids", func(t *testing.T) {
		id, err := ParseDeterminazioneID(" 42 ")
		require.NoError(t, err)
		assert.Equal(t, DeterminazioneID(42), id)
		assert.Equal(t, "42", id.String())
	})
}

func TestParseAuditEventID(t *testing.T) {
	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseAuditEventID(uuid.Nil.String())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		u := uuid.New()
		id, err := ParseAuditEventID(u.String())
		require.NoError(t, err)
		assert.Equal(t, AuditEventID(u), id)
	})

	t.Run("encodes as a JSON string", func(t *testing.T) {
		id := NewAuditEventID()
		b, err := json.Marshal(id)
		require.NoError(t, err)
		assert.Equal(t, `"`+id.String()+`"`, string(b))

		var back AuditEventID
		require.NoError(t, json.Unmarshal(b, &back))
		assert.Equal(t, id, back)
	})
}
