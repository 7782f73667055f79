// internal/room/ids.go
package room

import (
	"fmt"
	"math/rand"
	"regexp"
)

// roomIDAlphabet excludes characters that are easy to mis-transcribe
// (0/O, 1/I).
const roomIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const roomIDLength = 6

var roomIDPattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

var roomNameAdjectives = []string{
	"happy", "cheerful", "mysterious", "charming", "clever", "adorable",
	"graceful", "friendly", "gentle", "brave", "witty", "peculiar",
}

var roomNameAnimals = []string{
	"cat", "fox", "panda", "rabbit", "penguin", "owl",
	"tiger", "lion", "elephant", "giraffe", "raccoon", "dolphin",
}

var defaultPlayerNames = []string{
	"anon", "mystery", "passerby", "spectator", "newbie",
	"otaku", "binger", "seasonal", "lurker", "mascot",
}

// GenerateRoomID returns a random 6-character room code. Uniqueness is
// the registry's job (check-and-retry).
func GenerateRoomID() string {
	b := make([]byte, roomIDLength)
	for i := range b {
		b[i] = roomIDAlphabet[rand.Intn(len(roomIDAlphabet))]
	}
	return string(b)
}

// IsValidRoomID reports whether s has the shape of a room code.
func IsValidRoomID(s string) bool {
	return roomIDPattern.MatchString(s)
}

// GenerateRoomName returns a random adjective-animal display name.
func GenerateRoomName() string {
	adjective := roomNameAdjectives[rand.Intn(len(roomNameAdjectives))]
	animal := roomNameAnimals[rand.Intn(len(roomNameAnimals))]
	return adjective + " " + animal
}

// GeneratePlayerName returns a random display name for players who join
// without one.
func GeneratePlayerName() string {
	name := defaultPlayerNames[rand.Intn(len(defaultPlayerNames))]
	return fmt.Sprintf("%s%03d", name, rand.Intn(1000))
}
