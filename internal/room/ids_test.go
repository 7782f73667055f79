// internal/room/ids_test.go
package room

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRoomIDShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := GenerateRoomID()
		require.Len(t, id, roomIDLength)
		assert.True(t, IsValidRoomID(id), "generated id %q should be valid", id)
		for _, ch := range id {
			assert.True(t, strings.ContainsRune(roomIDAlphabet, ch), "id %q uses char outside alphabet", id)
		}
	}
}

func TestIsValidRoomID(t *testing.T) {
	assert.True(t, IsValidRoomID("ABC234"))
	assert.True(t, IsValidRoomID("Z9Z9Z9"))
	assert.False(t, IsValidRoomID("abc234"))
	assert.False(t, IsValidRoomID("ABC23"))
	assert.False(t, IsValidRoomID("ABC2345"))
	assert.False(t, IsValidRoomID("ABC23!"))
	assert.False(t, IsValidRoomID(""))
}

func TestGeneratedNames(t *testing.T) {
	name := GenerateRoomName()
	parts := strings.SplitN(name, " ", 2)
	require.Len(t, parts, 2)
	assert.Contains(t, roomNameAdjectives, parts[0])
	assert.Contains(t, roomNameAnimals, parts[1])

	player := GeneratePlayerName()
	assert.GreaterOrEqual(t, len(player), 4)
}
