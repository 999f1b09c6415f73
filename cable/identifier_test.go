package cable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIdentifier_KeyOrderIndependent(t *testing.T) {
	a, err := NewIdentifier(Params{"channel": "RoomChannel", "id": 1})
	require.NoError(t, err)

	b, err := NewIdentifier(Params{"id": 1, "channel": "RoomChannel"})
	require.NoError(t, err)

	assert.Equal(t, a, b, "identifiers built from the same params in different insertion order must be equal")
}

func TestNewIdentifier_DistinctParamsDiffer(t *testing.T) {
	a, err := NewIdentifier(Params{"channel": "RoomChannel", "id": 1})
	require.NoError(t, err)

	b, err := NewIdentifier(Params{"channel": "RoomChannel", "id": 2})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestNewIdentifier_IsValidJSON(t *testing.T) {
	id, err := NewIdentifier(channelParams("RoomChannel"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"channel":"RoomChannel"}`, string(id))
}

func TestNewIdentifier_SortsLexicographically(t *testing.T) {
	id, err := NewIdentifier(Params{"z": 1, "a": 2, "m": 3})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"m":3,"z":1}`, string(id))
}
